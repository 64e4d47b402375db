// Package browser provides the browser-driver collaborator. The rest of the
// core treats drivers as a black box behind the Driver interface; the only
// implementation here is chromedp-backed.
package browser

import (
	"context"
	"fmt"
	"time"
)

// Driver is the capability surface the automation core needs from a browser.
// Locate-based operations wait for their target with a bounded, per-step
// timeout and fail when it elapses.
type Driver interface {
	// Navigate loads the given URL and waits for the document body.
	Navigate(ctx context.Context, url string) error

	// Sleep pauses between scripted steps, honoring ctx cancellation.
	Sleep(ctx context.Context, d time.Duration) error

	// WaitVisible waits for an element to become visible.
	WaitVisible(ctx context.Context, selector string) error

	// Click locates an element and clicks it.
	Click(ctx context.Context, selector string) error

	// SendKeys locates an element and types text into it.
	SendKeys(ctx context.Context, selector, text string) error

	// Text returns the text content of the first matching element.
	Text(ctx context.Context, selector string) (string, error)

	// PageText returns the visible text of the whole page.
	PageText(ctx context.Context) (string, error)

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// Exists reports whether a matching element is present right now,
	// without waiting for one to appear.
	Exists(ctx context.Context, selector string) bool

	// Evaluate runs a script in-page and decodes its result into out.
	Evaluate(ctx context.Context, script string, out any) error

	// Close tears down the browser instance. Closing is always an explicit,
	// separate action, never implicit in task completion.
	Close() error
}

// Factory constructs one driver per profile session. Indirection exists so
// task tests can substitute a stub for a live Chrome.
type Factory interface {
	New(spec Spec) (Driver, error)
}

// Spec describes how to construct a browser for one profile: its dedicated
// session directory, the normalized proxy and the headless flag.
type Spec struct {
	Profile    string
	SessionDir string
	Headless   bool
	Proxy      string
}

func (s Spec) String() string {
	return fmt.Sprintf("profile=%s headless=%t", s.Profile, s.Headless)
}
