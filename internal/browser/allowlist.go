// File: internal/browser/allowlist.go
package browser

import (
	"errors"
	"net/url"
	"strings"

	"github.com/xkilldash9x/handoff/internal/config"
)

// ErrDomainNotAllowed is returned when a navigation targets a host outside the allow-list.
var ErrDomainNotAllowed = errors.New("domain not in allow-list")

// Allowlist decides which hosts the browser may load top-level documents from.
// A host matches an entry when it equals the entry or is a subdomain of it.
// A nil Allowlist permits nothing but about: pages.
type Allowlist struct {
	domains []string
}

// NewAllowlist normalizes the given domains into an Allowlist. When no usable
// entry is given, config.DefaultAllowedDomains is used instead.
func NewAllowlist(domains []string) *Allowlist {
	a := &Allowlist{domains: normalizeDomains(domains)}
	if len(a.domains) == 0 {
		a.domains = normalizeDomains(config.DefaultAllowedDomains)
	}
	return a
}

func normalizeDomains(domains []string) []string {
	var out []string
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "*.")
		d = strings.Trim(d, ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Domains returns the normalized entries.
func (a *Allowlist) Domains() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.domains...)
}

// Allows reports whether rawURL may be loaded. Only http and https documents
// on listed hosts pass, plus about: pages, which carry no content.
func (a *Allowlist) Allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "about":
		return true
	case "http", "https":
	default:
		return false
	}
	return a.AllowsHost(u.Hostname())
}

// AllowsHost reports whether host matches an entry.
func (a *Allowlist) AllowsHost(host string) bool {
	if a == nil {
		return false
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, d := range a.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
