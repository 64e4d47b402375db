package scenario

// selectors pins every site-specific CSS selector, URL and in-page script in
// one place. These encode the target site's current markup and are expected
// to break when it changes; nothing outside this file may reference them.
var selectors = struct {
	loginURL      string
	loginEmail    string
	loginPassword string
	loginSubmit   string
	captchaMarker string
	twoFAInput    string
	twoFASubmit   string
	accountMarker string

	ipEchoURL      string
	ipEchoPrimary  string
	ipEchoFallback string

	shortTab        string
	longTab         string
	marketTab       string
	limitTab        string
	limitPriceInput string
	promoClose      string
	confirmOrder    string
	percentScript   string
}{
	loginURL:      "https://www.mexc.com/login",
	loginEmail:    "input[name='email']",
	loginPassword: "input[name='password']",
	loginSubmit:   "button[type='submit']",
	captchaMarker: "div.geetest_panel, iframe[src*='captcha']",
	twoFAInput:    "input[name='totpCode']",
	twoFASubmit:   "button[data-testid='totp-submit']",
	accountMarker: "div[class*='avatar'], a[href*='/ucenter']",

	ipEchoURL:      "https://www.whatismyip.com/",
	ipEchoPrimary:  "#ipv4 > a",
	ipEchoFallback: "a[href^='/ip/']",

	shortTab:        "div[class*='openShort'], button[data-testid='contract-trade-open-short']",
	longTab:         "div[class*='openLong'], button[data-testid='contract-trade-open-long']",
	marketTab:       "div[class*='orderType'] span[data-type='market']",
	limitTab:        "div[class*='orderType'] span[data-type='limit']",
	limitPriceInput: "div[class*='priceInput'] input",
	promoClose:      "div[class*='modal'] svg[class*='close']",
	confirmOrder:    "button[class*='confirm'], button[data-testid='submit-order']",

	// Clicks the N% preset on the position-size slider; returns whether the
	// control was found.
	percentScript: `(() => {
		const target = %d;
		const marks = document.querySelectorAll("div[class*='slider'] span[class*='mark']");
		for (const m of marks) {
			if (m.textContent.trim() === target + "%%") { m.click(); return true; }
		}
		const input = document.querySelector("div[class*='percentInput'] input");
		if (input) {
			const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
			setter.call(input, String(target));
			input.dispatchEvent(new Event('input', { bubbles: true }));
			return true;
		}
		return false;
	})()`,
}
