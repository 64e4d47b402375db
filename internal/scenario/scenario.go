// Package scenario is the catalog of automation scripts. Each builder
// returns a task.Scenario: a named, ordered list of steps. Site-specific
// selectors live only in selectors.go so a markup change on the target site
// touches nothing outside this package.
package scenario

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"localhost-23231/antik/internal/session"
	"localhost-23231/antik/internal/task"
	"localhost-23231/antik/internal/totp"
)

var ipPattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// ManualOpen opens a profile's browser on the given URL, reads the page
// title and first heading, and leaves the browser open for manual work.
func ManualOpen(url string) task.Scenario {
	url = session.NormalizeURL(url)

	return task.Scenario{
		Name:        "manual open",
		KeepBrowser: true,
		Steps: []task.Step{
			navigate(url),
			settle(2 * time.Second),
			{
				Name: "read page",
				Run: func(ctx context.Context, run *task.Run) error {
					title, err := run.Driver.Title(ctx)
					if err != nil {
						return err
					}
					run.Values["url"] = url
					run.Values["title"] = title
					run.Log("Title: %s", title)

					heading, err := run.Driver.Text(ctx, "h1")
					if err != nil {
						heading = "No h1 found"
					}
					run.Values["heading"] = heading
					run.Log("Heading: %s", heading)
					return nil
				},
			},
		},
	}
}

// Credentials carries what the login flow needs. TwoFASecret may be empty;
// the 2FA step is then skipped with a log line.
type Credentials struct {
	Email       string
	Password    string
	TwoFASecret string
}

// Login signs a profile in: email, password, a fresh TOTP code when a seed
// is stored, and a captcha check that pauses for human help instead of
// failing. The authenticated browser stays open.
func Login(creds Credentials) task.Scenario {
	return task.Scenario{
		Name:        "login",
		KeepBrowser: true,
		Steps: []task.Step{
			navigate(selectors.loginURL),
			settle(3 * time.Second),
			{
				Name: "enter credentials",
				Run: func(ctx context.Context, run *task.Run) error {
					if err := run.Driver.SendKeys(ctx, selectors.loginEmail, creds.Email); err != nil {
						return fmt.Errorf("email field: %w", err)
					}
					if err := run.Driver.SendKeys(ctx, selectors.loginPassword, creds.Password); err != nil {
						return fmt.Errorf("password field: %w", err)
					}
					run.Log("Credentials entered (password %d chars)", len(creds.Password))
					return run.Driver.Click(ctx, selectors.loginSubmit)
				},
			},
			{
				Name: "captcha check",
				Run: func(ctx context.Context, run *task.Run) error {
					if run.Driver.Exists(ctx, selectors.captchaMarker) {
						run.NeedsAttention(ctx, "Captcha detected, solve it manually")
					}
					return nil
				},
			},
			{
				Name: "two-factor code",
				Run: func(ctx context.Context, run *task.Run) error {
					if creds.TwoFASecret == "" {
						run.Log("No 2FA secret, skipping 2FA step")
						return nil
					}
					if err := run.Driver.WaitVisible(ctx, selectors.twoFAInput); err != nil {
						return fmt.Errorf("2FA input: %w", err)
					}
					// Generated at the last possible moment so the code is
					// valid for the full remaining window.
					code, err := totp.Code(creds.TwoFASecret)
					if err != nil {
						return err
					}
					if err := run.Driver.SendKeys(ctx, selectors.twoFAInput, code); err != nil {
						return fmt.Errorf("2FA input: %w", err)
					}
					return run.Driver.Click(ctx, selectors.twoFASubmit)
				},
			},
			{
				Name: "verify signed in",
				Run: func(ctx context.Context, run *task.Run) error {
					if err := run.Driver.WaitVisible(ctx, selectors.accountMarker); err != nil {
						return fmt.Errorf("login confirmation did not appear: %w", err)
					}
					run.Values["email"] = creds.Email
					run.Log("Logged in as %s", creds.Email)
					return nil
				},
			},
		},
	}
}

// CheckProxy navigates to an IP-echo page and compares the address it
// reports with the IP embedded in the profile's proxy. The comparison
// outcome is the payload; a mismatch is a result, not a failure.
func CheckProxy(expectedIP string) task.Scenario {
	return task.Scenario{
		Name:        "check proxy",
		KeepBrowser: true,
		Steps: []task.Step{
			navigate(selectors.ipEchoURL),
			settle(4 * time.Second),
			{
				Name: "read detected IP",
				Run: func(ctx context.Context, run *task.Run) error {
					detected := ""
					if text, err := run.Driver.Text(ctx, selectors.ipEchoPrimary); err == nil {
						detected = strings.TrimSpace(text)
					}
					if detected == "" {
						if text, err := run.Driver.Text(ctx, selectors.ipEchoFallback); err == nil {
							detected = strings.TrimSpace(text)
						}
					}
					if detected == "" {
						// Last resort: scan the whole page for an IP shape.
						text, err := run.Driver.PageText(ctx)
						if err != nil {
							return fmt.Errorf("failed to read page: %w", err)
						}
						detected = ipPattern.FindString(text)
					}
					if detected == "" {
						return fmt.Errorf("could not extract IP from %s", selectors.ipEchoURL)
					}

					run.Values["proxy_ip"] = expectedIP
					run.Values["detected_ip"] = detected
					run.Values["is_match"] = detected == expectedIP
					if detected == expectedIP {
						run.Log("IPs match, proxy is working (%s)", detected)
					} else {
						run.Log("IPs do not match: expected %s, detected %s", expectedIP, detected)
					}
					return nil
				},
			},
		},
	}
}

// Inspect opens the URL with the browser settled for manual selector work
// and leaves it open. Headless makes no sense here; callers start it with
// headless off.
func Inspect(url string) task.Scenario {
	url = session.NormalizeURL(url)

	return task.Scenario{
		Name:        "inspect",
		KeepBrowser: true,
		Steps: []task.Step{
			navigate(url),
			{
				Name: "ready for inspection",
				Run: func(ctx context.Context, run *task.Run) error {
					run.Values["url"] = url
					run.Log("DevTools: F12, then Ctrl+Shift+C to pick elements")
					return nil
				},
			},
		},
	}
}

// navigate returns the shared navigation step.
func navigate(url string) task.Step {
	return task.Step{
		Name: "navigate",
		Run: func(ctx context.Context, run *task.Run) error {
			run.Log("Navigating to %s", url)
			return run.Driver.Navigate(ctx, url)
		},
	}
}

// settle returns a fixed post-load delay step.
func settle(d time.Duration) task.Step {
	return task.Step{
		Name: "wait for page",
		Run: func(ctx context.Context, run *task.Run) error {
			return run.Driver.Sleep(ctx, d)
		},
	}
}
