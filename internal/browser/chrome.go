package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"
)

// DefaultElementTimeout bounds every locate-based operation.
const DefaultElementTimeout = 15 * time.Second

// DefaultNavigationTimeout bounds page loads, which wait on the network and
// can otherwise hang indefinitely on a dead page.
const DefaultNavigationTimeout = 60 * time.Second

// Chrome drives a real Chrome instance through chromedp. One Chrome owns one
// browser process scoped to one profile's session directory.
type Chrome struct {
	spec           Spec
	elementTimeout time.Duration
	navTimeout     time.Duration

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// ChromeFactory builds Chrome drivers.
type ChromeFactory struct {
	// ElementTimeout overrides DefaultElementTimeout when positive.
	ElementTimeout time.Duration
	// NavigationTimeout overrides DefaultNavigationTimeout when positive.
	NavigationTimeout time.Duration
}

// timeouts resolves the factory's overrides against the defaults.
func (f ChromeFactory) timeouts() (element, navigation time.Duration) {
	element = f.ElementTimeout
	if element <= 0 {
		element = DefaultElementTimeout
	}
	navigation = f.NavigationTimeout
	if navigation <= 0 {
		navigation = DefaultNavigationTimeout
	}
	return element, navigation
}

// New launches a Chrome instance for the given spec. Failure to start the
// browser (e.g. missing Chrome installation) is returned as an error.
func (f ChromeFactory) New(spec Spec) (Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", spec.Headless),
		// Launch flags the manual-inspection flow relies on; flags only,
		// no runtime evasion.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(1280, 720),
	)

	if spec.SessionDir != "" {
		opts = append(opts, chromedp.UserDataDir(spec.SessionDir))
	}
	if spec.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(spec.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser now so construction failures surface here rather
	// than on the first step.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	element, navigation := f.timeouts()

	log.Debug("Browser started", "spec", spec)
	return &Chrome{
		spec:           spec,
		elementTimeout: element,
		navTimeout:     navigation,
		allocCancel:    allocCancel,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// run executes actions against the owned browser under the caller's ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeContext(c.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// locate executes locate-based actions under the bounded element wait.
func (c *Chrome) locate(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeContext(c.ctx, ctx)
	defer cancel()
	timeoutCtx, timeoutCancel := context.WithTimeout(runCtx, c.elementTimeout)
	defer timeoutCancel()
	return chromedp.Run(timeoutCtx, actions...)
}

// mergeContext derives a chromedp-compatible context from the browser
// context that is also cancelled when the caller's ctx is.
func mergeContext(browserCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(browserCtx)
	stop := context.AfterFunc(callerCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	// Bounded like locate; a page that never reaches ready must not stall
	// the task forever.
	runCtx, cancel := mergeContext(c.ctx, ctx)
	defer cancel()
	timeoutCtx, timeoutCancel := context.WithTimeout(runCtx, c.navTimeout)
	defer timeoutCancel()
	if err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string) error {
	return c.locate(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.locate(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (c *Chrome) SendKeys(ctx context.Context, selector, text string) error {
	return c.locate(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (c *Chrome) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := c.locate(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (c *Chrome) PageText(ctx context.Context) (string, error) {
	var text string
	if err := c.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	if err := c.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (c *Chrome) Exists(ctx context.Context, selector string) bool {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	if err := c.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false
	}
	return found
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	return c.run(ctx, chromedp.Evaluate(script, out))
}

// Close tears down the tab and the browser process.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	log.Debug("Browser closed", "spec", c.spec)
	return nil
}
