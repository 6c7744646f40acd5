// Package plan converts raw completion-service output into a sanitized
// citation plan. The completion service is treated as an untrusted data
// source: every field is coerced and validated before anything downstream
// sees it, and unparseable output degrades to a raw-text result instead of
// an error.
package plan

import (
	"strconv"
	"strings"

	"github.com/citeplan/citeplan-api/internal/urlutil"
)

// MaxDescriptionLength caps payload descriptions persisted per site.
const MaxDescriptionLength = 1000

// SiteEntry is one sanitized site selection from the plan. Field names
// follow the completion contract so entries round-trip through the API
// unchanged.
type SiteEntry struct {
	SiteKey              string   `json:"siteKey"`
	SiteName             string   `json:"siteName"`
	Score                *float64 `json:"score"`
	Reason               string   `json:"reason"`
	SearchQuery          string   `json:"searchQuery,omitempty"`
	ListingURL           string   `json:"listingUrl"`
	VerificationRequired bool     `json:"verificationRequired"`
	VerificationMethod   string   `json:"verificationMethod,omitempty"`
	Confidence           *float64 `json:"confidence"`
}

// Plan is the parse result. When Degraded is true the completion output
// could not be interpreted as JSON; SiteSelection and SitePayloads are
// empty and URLs carries whatever links were found in the raw text so a
// human can still make use of the response.
type Plan struct {
	SiteSelection []SiteEntry               `json:"siteSelection"`
	SitePayloads  map[string]map[string]any `json:"sitePayloads"`
	Raw           string                    `json:"raw"`
	URLs          []string                  `json:"urls,omitempty"`
	Degraded      bool                      `json:"-"`
}

// coerceString renders v as a trimmed string. Numbers are formatted rather
// than dropped since models occasionally emit bare numerics for text fields.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// coerceNumber extracts a numeric value, accepting numeric strings.
// Returns nil when v is absent or non-numeric. A literal 0 is a present
// value, not an absence.
func coerceNumber(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return &f
		}
	}
	return nil
}

// coerceBool is true only for boolean true or the string "true".
func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.TrimSpace(b) == "true"
	}
	return false
}

// coerceStringSlice converts an array value to trimmed strings; anything
// that is not an array becomes an empty slice.
func coerceStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, coerceString(item))
	}
	return out
}

// sanitizeEntry coerces a single raw site-selection entry. A malformed
// entry yields a mostly-empty SiteEntry rather than failing the batch.
func sanitizeEntry(raw map[string]any) SiteEntry {
	e := SiteEntry{
		SiteKey:              coerceString(raw["siteKey"]),
		Score:                coerceNumber(raw["score"]),
		Reason:               coerceString(raw["reason"]),
		SearchQuery:          coerceString(raw["searchQuery"]),
		VerificationRequired: coerceBool(raw["verificationRequired"]),
		VerificationMethod:   coerceString(raw["verificationMethod"]),
		Confidence:           coerceNumber(raw["confidence"]),
	}

	e.SiteName = coerceString(raw["siteName"])
	if e.SiteName == "" {
		e.SiteName = e.SiteKey
	}

	// Models emit the string "null" for unknown URLs often enough that it
	// needs explicit normalization; everything else must survive URL
	// validation to be kept.
	if u := coerceString(raw["listingUrl"]); u != "null" && urlutil.IsValid(u) {
		e.ListingURL = u
	}

	return e
}

// sanitizePayload coerces the known payload sub-fields (title, description,
// tags, keywords) and passes unknown keys through untouched. Each site's
// required fields differ, so the payload stays an open map.
func sanitizePayload(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw)+2)
	for k, v := range raw {
		out[k] = v
	}

	out["title"] = coerceString(raw["title"])
	desc := coerceString(raw["description"])
	// Cap counts characters, not bytes, so multibyte text is never split
	// mid-rune.
	if r := []rune(desc); len(r) > MaxDescriptionLength {
		desc = string(r[:MaxDescriptionLength])
	}
	out["description"] = desc
	out["tags"] = coerceStringSlice(raw["tags"])
	out["keywords"] = coerceStringSlice(raw["keywords"])

	return out
}

// enrichFromRawURLs assigns URLs found in the raw completion text to
// entries still lacking one. Preference per entry: a hostname containing
// the site key, then one containing the site name (whitespace stripped),
// then the first URL not yet handed out. A used-set guarantees no URL is
// assigned to two entries.
func enrichFromRawURLs(entries []SiteEntry, urls []string) {
	used := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ListingURL != "" {
			used[e.ListingURL] = true
		}
	}

	for i := range entries {
		if entries[i].ListingURL != "" {
			continue
		}
		key := strings.ToLower(entries[i].SiteKey)
		name := strings.ToLower(strings.Join(strings.Fields(entries[i].SiteName), ""))

		found := ""
		for _, u := range urls {
			if used[u] {
				continue
			}
			host := urlutil.Hostname(u)
			if key != "" && strings.Contains(host, key) {
				found = u
				break
			}
		}
		if found == "" && name != "" {
			for _, u := range urls {
				if used[u] {
					continue
				}
				if strings.Contains(urlutil.Hostname(u), name) {
					found = u
					break
				}
			}
		}
		if found == "" {
			for _, u := range urls {
				if !used[u] {
					found = u
					break
				}
			}
		}

		if found != "" && urlutil.IsValid(found) {
			entries[i].ListingURL = found
			used[found] = true
		}
	}
}
