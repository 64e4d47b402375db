package scenario

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localhost-23231/antik/internal/browser"
	"localhost-23231/antik/internal/profile"
	"localhost-23231/antik/internal/task"
)

// scriptedDriver plays the part of a live page: selectors resolve to the
// configured texts, everything else reports element-not-found.
type scriptedDriver struct {
	mu       sync.Mutex
	title    string
	pageText string
	texts    map[string]string
	exists   map[string]bool
	evalOK   bool
	evalErr  error

	clicks []string
	typed  map[string]string
	closed bool
}

func newScriptedDriver() *scriptedDriver {
	return &scriptedDriver{
		title:  "stub page",
		texts:  map[string]string{},
		exists: map[string]bool{},
		typed:  map[string]string{},
		evalOK: true,
	}
}

func (d *scriptedDriver) Navigate(ctx context.Context, url string) error { return nil }
func (d *scriptedDriver) Sleep(ctx context.Context, dur time.Duration) error {
	// Page-settle delays are pointless against a scripted page.
	return ctx.Err()
}
func (d *scriptedDriver) WaitVisible(ctx context.Context, sel string) error { return nil }

func (d *scriptedDriver) Click(ctx context.Context, sel string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks = append(d.clicks, sel)
	return nil
}

func (d *scriptedDriver) SendKeys(ctx context.Context, sel, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typed[sel] = text
	return nil
}

func (d *scriptedDriver) Text(ctx context.Context, sel string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if text, ok := d.texts[sel]; ok {
		return text, nil
	}
	return "", errors.New("element not found: " + sel)
}

func (d *scriptedDriver) PageText(ctx context.Context) (string, error) {
	return d.pageText, nil
}

func (d *scriptedDriver) Title(ctx context.Context) (string, error) { return d.title, nil }

func (d *scriptedDriver) Exists(ctx context.Context, sel string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exists[sel]
}

func (d *scriptedDriver) Evaluate(ctx context.Context, script string, out any) error {
	if d.evalErr != nil {
		return d.evalErr
	}
	if b, ok := out.(*bool); ok {
		*b = d.evalOK
	}
	return nil
}

func (d *scriptedDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *scriptedDriver) clicked(sel string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.clicks {
		if c == sel {
			return true
		}
	}
	return false
}

type scriptedFactory struct{ driver *scriptedDriver }

func (f *scriptedFactory) New(spec browser.Spec) (browser.Driver, error) {
	return f.driver, nil
}

// runScenario executes sc against a fresh single-profile store and returns
// the drained log lines plus the terminal result.
func runScenario(t *testing.T, driver *scriptedDriver, sc task.Scenario) (logs []string, payload map[string]any, resultErr error) {
	t.Helper()

	store, err := profile.Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Create("tester", profile.Info{Email: "t@e.com"}))

	r := task.NewRunner(store, &scriptedFactory{driver: driver})
	r.SetAttentionGrace(time.Millisecond)

	tk, err := r.Start("tester", sc, true)
	require.NoError(t, err)

	for ev := range tk.Events() {
		if ev.Kind == task.EventLog {
			logs = append(logs, ev.Message)
		}
	}
	payload, resultErr = tk.Result()

	r.Cancel("tester")
	return logs, payload, resultErr
}

func TestManualOpenReadsTitleAndHeading(t *testing.T) {
	driver := newScriptedDriver()
	driver.title = "Example Domain"
	driver.texts["h1"] = "Example heading"

	_, payload, err := runScenario(t, driver, ManualOpen("example.com"))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", payload["url"])
	assert.Equal(t, "Example Domain", payload["title"])
	assert.Equal(t, "Example heading", payload["heading"])
}

func TestManualOpenWithoutHeading(t *testing.T) {
	driver := newScriptedDriver()

	_, payload, err := runScenario(t, driver, ManualOpen("https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, "No h1 found", payload["heading"])
}

func TestLoginSkipsTwoFactorWithoutSecret(t *testing.T) {
	driver := newScriptedDriver()

	logs, payload, err := runScenario(t, driver, Login(Credentials{
		Email:    "user@example.com",
		Password: "hunter22",
	}))
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", driver.typed["input[name='email']"])
	assert.Equal(t, "hunter22", driver.typed["input[name='password']"])
	assert.NotContains(t, driver.typed, "input[name='totpCode']")
	assert.Equal(t, "user@example.com", payload["email"])

	assert.Contains(t, logs, "No 2FA secret, skipping 2FA step")
	// Progress lines never carry the raw password.
	for _, line := range logs {
		assert.NotContains(t, line, "hunter22")
	}
	assert.Contains(t, logs, "Credentials entered (password 8 chars)")
}

func TestLoginTypesFreshTOTPCode(t *testing.T) {
	driver := newScriptedDriver()

	_, _, err := runScenario(t, driver, Login(Credentials{
		Email:       "user@example.com",
		Password:    "pw",
		TwoFASecret: "JBSWY3DPEHPK3PXP",
	}))
	require.NoError(t, err)

	code := driver.typed["input[name='totpCode']"]
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestCheckProxyMatch(t *testing.T) {
	driver := newScriptedDriver()
	driver.texts["#ipv4 > a"] = " 203.0.113.7 "

	_, payload, err := runScenario(t, driver, CheckProxy("203.0.113.7"))
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.7", payload["detected_ip"])
	assert.Equal(t, true, payload["is_match"])
}

func TestCheckProxyMismatchIsAResultNotAFailure(t *testing.T) {
	driver := newScriptedDriver()
	driver.texts["#ipv4 > a"] = "198.51.100.9"

	logs, payload, err := runScenario(t, driver, CheckProxy("203.0.113.7"))
	require.NoError(t, err)

	assert.Equal(t, false, payload["is_match"])
	joined := strings.Join(logs, "\n")
	assert.Contains(t, joined, "IPs do not match")
}

func TestCheckProxyFallsBackToPageScan(t *testing.T) {
	driver := newScriptedDriver()
	driver.pageText = "Your public IP address is 192.0.2.44 today"

	_, payload, err := runScenario(t, driver, CheckProxy("192.0.2.44"))
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.44", payload["detected_ip"])
}

func TestCheckProxyNoIPAnywhere(t *testing.T) {
	driver := newScriptedDriver()
	driver.pageText = "loading..."

	_, _, err := runScenario(t, driver, CheckProxy("192.0.2.44"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not extract IP")
}

func TestOpenShortMarketOrder(t *testing.T) {
	driver := newScriptedDriver()

	logs, payload, err := runScenario(t, driver, OpenShort(TradeParams{
		TokenURL:        "futures.mexc.com/exchange/BTC_USDT",
		PositionPercent: 25,
		OrderType:       OrderMarket,
	}))
	require.NoError(t, err)

	assert.True(t, driver.clicked(selectors.shortTab))
	assert.True(t, driver.clicked(selectors.marketTab))
	assert.True(t, driver.clicked(selectors.confirmOrder))
	assert.Equal(t, OrderMarket, payload["order_type"])
	assert.Equal(t, 25, payload["percent"])
	assert.Equal(t, "https://futures.mexc.com/exchange/BTC_USDT", payload["token_url"])

	// No popup on the page: the dismiss step is skipped, not fatal.
	joined := strings.Join(logs, "\n")
	assert.Contains(t, joined, `Step "dismiss promo popup" skipped`)
}

func TestOpenLongLimitOrder(t *testing.T) {
	driver := newScriptedDriver()
	driver.exists[selectors.promoClose] = true

	_, payload, err := runScenario(t, driver, OpenLong(TradeParams{
		TokenURL:        "https://futures.mexc.com/exchange/ETH_USDT",
		PositionPercent: 50,
		OrderType:       OrderLimit,
		LimitPrice:      "1234.5",
	}))
	require.NoError(t, err)

	assert.True(t, driver.clicked(selectors.promoClose))
	assert.True(t, driver.clicked(selectors.longTab))
	assert.True(t, driver.clicked(selectors.limitTab))
	assert.Equal(t, "1234.5", driver.typed[selectors.limitPriceInput])
	assert.Equal(t, OrderLimit, payload["order_type"])
}

func TestOpenPositionPercentControlMissing(t *testing.T) {
	driver := newScriptedDriver()
	driver.evalOK = false

	_, _, err := runScenario(t, driver, OpenShort(TradeParams{
		TokenURL:        "futures.mexc.com/exchange/BTC_USDT",
		PositionPercent: 10,
		OrderType:       OrderMarket,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "percent control not found")
}

func TestTradeParamsValidate(t *testing.T) {
	valid := TradeParams{
		TokenURL:        "https://futures.mexc.com/exchange/BTC_USDT",
		PositionPercent: 10,
		OrderType:       OrderMarket,
	}

	tests := []struct {
		name    string
		mutate  func(*TradeParams)
		wantErr string
	}{
		{"valid market", func(p *TradeParams) {}, ""},
		{"valid limit", func(p *TradeParams) {
			p.OrderType = OrderLimit
			p.LimitPrice = "0.042"
		}, ""},
		{"missing url", func(p *TradeParams) { p.TokenURL = "" }, "token link is required"},
		{"percent too low", func(p *TradeParams) { p.PositionPercent = 0 }, "position percent must be 1-100"},
		{"percent too high", func(p *TradeParams) { p.PositionPercent = 101 }, "position percent must be 1-100"},
		{"limit without price", func(p *TradeParams) {
			p.OrderType = OrderLimit
		}, "limit price is required"},
		{"limit with bad price", func(p *TradeParams) {
			p.OrderType = OrderLimit
			p.LimitPrice = "abc"
		}, `invalid limit price "abc"`},
		{"unknown order type", func(p *TradeParams) { p.OrderType = "Stop" }, "unknown order type"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			err := p.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
