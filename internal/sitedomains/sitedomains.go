// Package sitedomains holds the site-key to preferred-domain mapping used
// to rank search results during listing resolution. The built-in defaults
// cover the common citation sites; operators can replace entries wholesale
// through a JSON override (env var or an S3-hosted document).
package sitedomains

import (
	"encoding/json"
	"fmt"
	"strings"
)

// defaults maps site keys to domains in priority order. Multiple domains
// per key allow for country TLDs and mobile/business subdomains.
var defaults = map[string][]string{
	"google_my_business": {"google.com", "maps.google.com"},
	"yelp":               {"yelp.com"},
	"healthgrades":       {"healthgrades.com"},
	"facebook":           {"facebook.com", "m.facebook.com", "business.facebook.com"},
	"linkedin":           {"linkedin.com"},
	"yellowpages":        {"yellowpages.com"},
	"apple_maps":         {"apple.com", "maps.apple.com"},
	"bing_places":        {"bing.com"},
}

// Table is an immutable site-key to domain-preference mapping.
type Table struct {
	domains map[string][]string
}

// Default returns a table containing only the built-in defaults.
func Default() *Table {
	return &Table{domains: defaults}
}

// Load merges a JSON override into the built-in defaults and returns the
// resulting table. The override maps site keys to either a single domain
// string or an array of domains; an overridden key replaces the default
// entry wholesale. An empty override yields the defaults.
func Load(overrideJSON string) (*Table, error) {
	if strings.TrimSpace(overrideJSON) == "" {
		return Default(), nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(overrideJSON), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse site domains override: %w", err)
	}

	merged := make(map[string][]string, len(defaults)+len(raw))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range raw {
		// Accept "domain" or ["domain", ...]
		var single string
		if err := json.Unmarshal(v, &single); err == nil {
			merged[k] = []string{single}
			continue
		}
		var list []string
		if err := json.Unmarshal(v, &list); err != nil {
			return nil, fmt.Errorf("site domains override for %q must be a string or array of strings", k)
		}
		merged[k] = list
	}

	return &Table{domains: merged}, nil
}

// Domains returns the preferred domains for siteKey in priority order,
// or nil if the table has no entry for it.
func (t *Table) Domains(siteKey string) []string {
	return t.domains[siteKey]
}

// PrimaryDomain returns the highest-priority domain for siteKey, or ""
// if the table has no entry. Used to narrow outgoing search queries.
func (t *Table) PrimaryDomain(siteKey string) string {
	if d := t.domains[siteKey]; len(d) > 0 {
		return d[0]
	}
	return ""
}

// Matches reports whether hostname matches a domain pattern. A hostname
// matches when it equals the pattern, is a subdomain of it, or contains it
// as a substring. The substring rule is a deliberately loose fallback for
// irregular host structures and can match unrelated domains that embed the
// pattern; it ranks trust, it is not a security boundary.
func Matches(hostname, domain string) bool {
	if hostname == "" || domain == "" {
		return false
	}
	hostname = strings.ToLower(hostname)
	domain = strings.ToLower(domain)
	return hostname == domain ||
		strings.HasSuffix(hostname, "."+domain) ||
		strings.Contains(hostname, domain)
}
