// Package task runs automation scenarios against per-profile browser
// instances: one goroutine, one browser and one profile per task, with a
// central registry enforcing that no profile ever has two live tasks.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"localhost-23231/antik/internal/browser"
)

// State tracks a task through its lifecycle. Transitions are strictly
// forward; a task reaches exactly one terminal state.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateBrowserStarting
	StateRunning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateBrowserStarting:
		return "browser starting"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventKind discriminates the entries on a task's event stream.
type EventKind int

const (
	// EventLog is a human-readable progress line.
	EventLog EventKind = iota
	// EventNeedsAttention signals a challenge the task cannot solve itself
	// (e.g. a captcha); the task pauses for a grace period and continues.
	EventNeedsAttention
	// EventResult is the single terminal event of a task.
	EventResult
)

// Event is one entry on a task's ordered event stream.
type Event struct {
	Kind    EventKind
	Task    string // task ID
	Profile string
	Message string
	Err     error          // set on a failed EventResult
	Payload map[string]any // set on a successful EventResult
}

// Step is one named unit of scripted work. Steps run strictly in declared
// order; a returned error ends the task in StateFailed unless the step is
// marked best-effort, in which case the error is logged and skipped.
type Step struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context, run *Run) error
}

// Scenario is a named, ordered list of steps plus its browser policy.
type Scenario struct {
	Name  string
	Steps []Step
	// KeepBrowser leaves the browser running after the last step; ownership
	// transfers to whoever started the task, which must close it later.
	KeepBrowser bool
}

// Run is the per-task context handed to steps: the live driver plus
// scratch state shared along the step sequence.
type Run struct {
	Task    *Task
	Driver  browser.Driver
	Profile string

	// Values carries data between steps and into the success payload.
	Values map[string]any
}

// Log emits a progress line on the task's event stream.
func (r *Run) Log(format string, args ...any) {
	r.Task.emit(Event{Kind: EventLog, Task: r.Task.ID, Profile: r.Profile,
		Message: fmt.Sprintf(format, args...)})
}

// NeedsAttention surfaces a manual-intervention event, then pauses for the
// runner's grace period so a human can act, rather than failing outright.
func (r *Run) NeedsAttention(ctx context.Context, reason string) {
	r.Task.emit(Event{Kind: EventNeedsAttention, Task: r.Task.ID,
		Profile: r.Profile, Message: reason})
	log.Warn("Task needs human attention", "task", r.Task.ID, "profile", r.Profile, "reason", reason)

	select {
	case <-time.After(r.Task.attentionGrace):
	case <-ctx.Done():
	}
}

// Task is one in-flight automation run bound to a single profile.
type Task struct {
	ID       string
	Profile  string
	Scenario Scenario

	attentionGrace time.Duration
	headless       bool

	cancel context.CancelFunc
	done   chan struct{}

	// owned browser; nil until BrowserStarting succeeds. Guarded by mu.
	driver browser.Driver

	state         atomic.Int32
	resultPayload map[string]any
	resultErr     error

	// Append-only event backlog. The worker only ever appends, so a consumer
	// that starts reading after the task finished still sees every event,
	// the terminal one included.
	mu      sync.Mutex
	cond    *sync.Cond
	backlog []Event
	sealed  bool // terminal event appended, no further appends

	streamOnce sync.Once
	stream     chan Event
}

func newTask(profile string, sc Scenario, grace time.Duration) *Task {
	t := &Task{
		ID:             uuid.NewString(),
		Profile:        profile,
		Scenario:       sc,
		attentionGrace: grace,
		done:           make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Events returns the task's ordered event stream. Events are buffered until
// read, never dropped; the channel is closed after the terminal event. All
// calls return the same channel.
func (t *Task) Events() <-chan Event {
	t.streamOnce.Do(func() {
		t.stream = make(chan Event)
		go t.pump()
	})
	return t.stream
}

// pump replays the backlog onto the stream channel in order, waiting for new
// appends until the terminal event seals the backlog.
func (t *Task) pump() {
	defer close(t.stream)

	next := 0
	for {
		t.mu.Lock()
		for next >= len(t.backlog) && !t.sealed {
			t.cond.Wait()
		}
		batch := make([]Event, len(t.backlog)-next)
		copy(batch, t.backlog[next:])
		next = len(t.backlog)
		sealed := t.sealed
		t.mu.Unlock()

		for _, ev := range batch {
			t.stream <- ev
		}
		if sealed {
			return
		}
	}
}

// Done is closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Browser returns the browser handle a KeepBrowser scenario left running,
// or nil. The caller owns it and is responsible for closing it.
func (t *Task) Browser() browser.Driver {
	select {
	case <-t.done:
		if t.Scenario.KeepBrowser && t.State() == StateDone {
			t.mu.Lock()
			defer t.mu.Unlock()
			return t.driver
		}
		return nil
	default:
		return nil
	}
}

func (t *Task) setDriver(d browser.Driver) {
	t.mu.Lock()
	t.driver = d
	t.mu.Unlock()
}

// takeDriver clears the browser handle so it is closed at most once.
func (t *Task) takeDriver() browser.Driver {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.driver
	t.driver = nil
	return d
}

// emit appends an event to the backlog without blocking the worker: a slow
// consumer must not stall automation, and a late one must not lose events.
func (t *Task) emit(ev Event) {
	t.mu.Lock()
	if !t.sealed {
		t.backlog = append(t.backlog, ev)
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

// Result returns the terminal outcome once Done is closed: the success
// payload, or the failure error.
func (t *Task) Result() (map[string]any, error) {
	select {
	case <-t.done:
		return t.resultPayload, t.resultErr
	default:
		return nil, nil
	}
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	return State(t.state.Load())
}

func (t *Task) setState(s State) {
	t.state.Store(int32(s))
}

// succeed/fail record the terminal outcome exactly once; both are only
// called from the task's own goroutine.
func (t *Task) succeed(payload map[string]any) {
	t.resultPayload = payload
	t.setState(StateDone)
	// done closes before the terminal event is appended so a consumer that
	// reads it off the stream can immediately read Result.
	close(t.done)
	t.seal(Event{Kind: EventResult, Task: t.ID, Profile: t.Profile, Payload: payload})
}

func (t *Task) fail(err error) {
	t.resultErr = err
	t.setState(StateFailed)
	close(t.done)
	t.seal(Event{Kind: EventResult, Task: t.ID, Profile: t.Profile, Err: err})
}

// seal appends the terminal event and closes the backlog to further appends.
func (t *Task) seal(ev Event) {
	t.mu.Lock()
	t.backlog = append(t.backlog, ev)
	t.sealed = true
	t.cond.Broadcast()
	t.mu.Unlock()
}
