package plan

import (
	"encoding/json"
	"strings"

	"github.com/citeplan/citeplan-api/internal/urlutil"
)

// Parse interprets raw completion text as a citation plan.
//
// Recovery ladder:
//  1. strict JSON parse starting at the first "{" (completion services
//     sometimes prepend prose),
//  2. greedy brace extraction (first "{" through last "}"), then parse,
//  3. degraded result carrying the raw text and any URLs found in it.
//
// Parse never returns an error: malformed output is a legitimate partial
// result for downstream human review, not a failure.
func Parse(raw string) *Plan {
	parsed := parseJSON(raw)
	urls := urlutil.Extract(raw)

	if parsed == nil {
		return &Plan{
			SiteSelection: []SiteEntry{},
			SitePayloads:  map[string]map[string]any{},
			Raw:           raw,
			URLs:          urls,
			Degraded:      true,
		}
	}

	rawSelection, _ := parsed["siteSelection"].([]any)
	rawPayloads, _ := parsed["sitePayloads"].(map[string]any)

	entries := make([]SiteEntry, 0, len(rawSelection))
	for _, item := range rawSelection {
		m, _ := item.(map[string]any)
		// A non-object entry sanitizes to an empty SiteEntry; it must not
		// invalidate its siblings.
		entries = append(entries, sanitizeEntry(m))
	}

	enrichFromRawURLs(entries, urls)

	payloads := make(map[string]map[string]any, len(rawPayloads))
	for key, v := range rawPayloads {
		m, _ := v.(map[string]any)
		if m == nil {
			m = map[string]any{}
		}
		payloads[key] = sanitizePayload(m)
	}

	return &Plan{
		SiteSelection: entries,
		SitePayloads:  payloads,
		Raw:           raw,
	}
}

// parseJSON attempts the strict-then-greedy parse. Returns nil when the
// text holds no parseable JSON object.
func parseJSON(raw string) map[string]any {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw[start:]), &parsed); err == nil {
		return parsed
	}

	end := strings.LastIndex(raw, "}")
	if end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
		return parsed
	}
	return nil
}
