// Package session turns stored profile configuration into driver-ready
// descriptors. Everything here is a pure transformation; no network or
// process I/O.
package session

import (
	"regexp"
	"strings"

	"localhost-23231/antik/internal/profile"
)

var proxySchemes = []string{"http://", "https://", "socks4://", "socks5://"}

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// DriverSpec describes how to construct a browser for one profile.
type DriverSpec struct {
	Profile    string
	SessionDir string
	Headless   bool
	Proxy      string // normalized, empty when no proxy is configured
}

// NormalizeURL prepends https:// to URLs missing a protocol.
func NormalizeURL(input string) string {
	url := strings.TrimSpace(input)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}

// NormalizeProxy converts a raw proxy string into scheme://[user:pass@]host:port
// form, defaulting to http://. Empty input yields an empty string.
func NormalizeProxy(input string) string {
	proxy := strings.TrimSpace(input)
	if proxy == "" {
		return ""
	}
	for _, scheme := range proxySchemes {
		if strings.HasPrefix(proxy, scheme) {
			return proxy
		}
	}
	return "http://" + proxy
}

// DisplayProxy masks embedded credentials for log and UI output, keeping the
// scheme and host:port visible.
func DisplayProxy(proxy string) string {
	// Split on the last @ so passwords containing @ stay fully masked.
	at := strings.LastIndex(proxy, "@")
	if at < 0 {
		return proxy
	}
	scheme := "http:"
	if i := strings.Index(proxy, "//"); i >= 0 {
		scheme = proxy[:i]
	}
	return scheme + "//***@" + proxy[at+1:]
}

// Resolver derives proxy configuration and driver descriptors from the
// profile store.
type Resolver struct {
	store *profile.Store
}

// NewResolver returns a Resolver backed by the given store.
func NewResolver(store *profile.Store) *Resolver {
	return &Resolver{store: store}
}

// ProxyForProfile returns the normalized proxy for a profile and a
// credential-masked display form. Profiles without a usable proxy yield an
// empty proxy and an explanatory display string.
func (r *Resolver) ProxyForProfile(name string) (proxy, display string) {
	rec, ok := r.store.Get(name)
	if !ok || strings.TrimSpace(rec.Proxy) == "" {
		return "", "No proxy"
	}

	proxy = NormalizeProxy(rec.Proxy)
	if proxy == "" {
		return "", "Invalid proxy format"
	}
	return proxy, DisplayProxy(proxy)
}

// DriverSpecFor builds the driver-construction descriptor for a profile.
func (r *Resolver) DriverSpecFor(name string, headless bool) (DriverSpec, bool) {
	rec, ok := r.store.Get(name)
	if !ok {
		return DriverSpec{}, false
	}

	proxy, _ := r.ProxyForProfile(name)
	return DriverSpec{
		Profile:    name,
		SessionDir: rec.Path,
		Headless:   headless,
		Proxy:      proxy,
	}, true
}

// ExtractIP pulls the bare IPv4 address out of a proxy string, stripping
// scheme, embedded credentials and port. Returns "" when the remainder is
// not a dotted quad. Used to cross-check a proxy against the address an
// IP-echo page reports.
func ExtractIP(proxy string) string {
	if proxy == "" {
		return ""
	}

	for _, scheme := range proxySchemes {
		proxy = strings.TrimPrefix(proxy, scheme)
	}

	if i := strings.LastIndex(proxy, "@"); i >= 0 {
		proxy = proxy[i+1:]
	}

	if i := strings.Index(proxy, ":"); i >= 0 {
		proxy = proxy[:i]
	}

	proxy = strings.TrimSpace(proxy)
	if !ipv4Pattern.MatchString(proxy) {
		return ""
	}
	return proxy
}
