package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"localhost-23231/antik/internal/browser"
	"localhost-23231/antik/internal/profile"
	"localhost-23231/antik/internal/session"
)

// Runner errors
var (
	ErrProfileBusy    = errors.New("profile already has an active task")
	ErrUnknownProfile = errors.New("profile does not exist")
)

// DefaultAttentionGrace is how long a task pauses after surfacing a
// needs-attention event before continuing.
const DefaultAttentionGrace = 30 * time.Second

// cancelGrace bounds how long Cancel waits for the worker to reach a
// terminal state after the context is cancelled.
const cancelGrace = 5 * time.Second

// Runner schedules worker tasks. It is the single owner of the active-task
// registry: at most one live task per profile name, enumerable and
// cancellable as a set on shutdown.
type Runner struct {
	store    *profile.Store
	resolver *session.Resolver
	factory  browser.Factory

	attentionGrace time.Duration

	mu     sync.Mutex
	active map[string]*Task // keyed by profile name
	wg     sync.WaitGroup
}

// NewRunner returns a Runner that builds browsers with the given factory.
func NewRunner(store *profile.Store, factory browser.Factory) *Runner {
	return &Runner{
		store:          store,
		resolver:       session.NewResolver(store),
		factory:        factory,
		attentionGrace: DefaultAttentionGrace,
		active:         make(map[string]*Task),
	}
}

// SetAttentionGrace overrides the needs-attention pause. Used by tests and
// the CLI's --attention-grace flag.
func (r *Runner) SetAttentionGrace(d time.Duration) {
	r.attentionGrace = d
}

// Start launches a scenario against a profile on its own goroutine. It fails
// fast with ErrProfileBusy when the profile already has a live task: two
// browsers sharing one session directory would corrupt profile-local state.
func (r *Runner) Start(profileName string, sc Scenario, headless bool) (*Task, error) {
	if _, ok := r.store.Get(profileName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, profileName)
	}

	r.mu.Lock()
	if _, busy := r.active[profileName]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrProfileBusy, profileName)
	}

	t := newTask(profileName, sc, r.attentionGrace)
	t.headless = headless
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	r.active[profileName] = t
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(ctx, t)
		// A task that handed its browser to the caller keeps its profile
		// reserved until the browser is explicitly closed; everything else
		// frees the profile as soon as the worker exits.
		if t.Browser() == nil {
			r.release(profileName)
		}
	}()

	log.Info("Task started", "task", t.ID, "profile", profileName, "scenario", sc.Name)
	return t, nil
}

// release removes a finished task from the registry.
func (r *Runner) release(profileName string) {
	r.mu.Lock()
	delete(r.active, profileName)
	r.mu.Unlock()
}

// execute runs one task to its terminal state. Every failure is recovered
// here and turned into the task's terminal event; nothing propagates out of
// the worker goroutine.
func (r *Runner) execute(ctx context.Context, t *Task) {
	t.setState(StateInitializing)

	if err := r.store.Touch(t.Profile); err != nil {
		log.Error("Failed to update last_used", "profile", t.Profile, "error", err)
	}

	spec, ok := r.resolver.DriverSpecFor(t.Profile, t.headless)
	if !ok {
		t.fail(fmt.Errorf("%w: %s", ErrUnknownProfile, t.Profile))
		return
	}

	run := &Run{Task: t, Profile: t.Profile, Values: make(map[string]any)}

	if proxy, display := r.resolver.ProxyForProfile(t.Profile); proxy != "" {
		run.Log("Using proxy: %s", display)
	} else {
		run.Log("No proxy configured (direct connection)")
	}

	t.setState(StateBrowserStarting)
	run.Log("Initializing browser...")

	driver, err := r.factory.New(browser.Spec{
		Profile:    spec.Profile,
		SessionDir: spec.SessionDir,
		Headless:   spec.Headless,
		Proxy:      spec.Proxy,
	})
	if err != nil {
		t.fail(fmt.Errorf("failed to start browser: %w", err))
		return
	}
	t.setDriver(driver)
	run.Driver = driver

	t.setState(StateRunning)

	for _, step := range t.Scenario.Steps {
		if ctx.Err() != nil {
			driver.Close()
			t.setDriver(nil)
			t.fail(fmt.Errorf("task cancelled during step %q: %w", step.Name, ctx.Err()))
			return
		}

		run.Log("Step: %s", step.Name)
		if err := step.Run(ctx, run); err != nil {
			if step.BestEffort {
				run.Log("Step %q skipped: %v", step.Name, err)
				log.Debug("Best-effort step failed", "task", t.ID, "step", step.Name, "error", err)
				continue
			}
			driver.Close()
			t.setDriver(nil)
			t.fail(fmt.Errorf("step %q failed: %w", step.Name, err))
			return
		}
	}

	if !t.Scenario.KeepBrowser {
		driver.Close()
		t.setDriver(nil)
	} else {
		run.Log("Browser left open - close manually when done")
	}

	payload := run.Values
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["profile"] = t.Profile
	t.succeed(payload)
}

// Cancel stops the task running against the given profile. Safe to call for
// profiles with no live task and for tasks that already finished.
func (r *Runner) Cancel(profileName string) {
	r.mu.Lock()
	t, ok := r.active[profileName]
	r.mu.Unlock()
	if !ok {
		return
	}

	log.Info("Cancelling task", "task", t.ID, "profile", profileName)
	t.cancel()

	// The worker only observes cancellation at step boundaries, so a cancel
	// racing the final step can still let the task finish with its browser
	// open. Wait for the terminal state before inspecting the browser; a
	// KeepBrowser task that already finished passes through immediately.
	select {
	case <-t.Done():
	case <-time.After(cancelGrace):
		log.Warn("Task ignored cancellation", "task", t.ID, "profile", profileName)
		return
	}

	// Closing a surviving browser is what finally frees the profile.
	if t.Browser() != nil {
		if d := t.takeDriver(); d != nil {
			d.Close()
		}
		r.release(profileName)
	}
}

// Active returns the profiles that currently have a live task.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.active))
	for name := range r.active {
		names = append(names, name)
	}
	return names
}

// Busy reports whether the profile has a live task.
func (r *Runner) Busy(profileName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[profileName]
	return ok
}

// Shutdown cancels every live task and waits for workers to drain, bounded
// by ctx. Tasks that do not finish in time are abandoned to process exit.
func (r *Runner) Shutdown(ctx context.Context) error {
	for _, name := range r.Active() {
		r.Cancel(name)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("All tasks stopped")
		return nil
	case <-ctx.Done():
		log.Warn("Shutdown grace period elapsed with tasks still live", "active", r.Active())
		return ctx.Err()
	}
}
