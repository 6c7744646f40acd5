// Package urlutil provides URL helpers shared by plan parsing and
// listing resolution.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern matches http/https URLs embedded in free text. The excluded
// trailing characters (whitespace, quotes, angle brackets, closing paren)
// keep prose punctuation out of the captured URL.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s)"'<>]+`)

// IsValid reports whether s is an absolute URL with an http or https scheme.
func IsValid(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Extract returns all http/https URLs found in text, in order of
// appearance. Returns an empty slice (never nil) when none are found.
func Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, strings.TrimSpace(m))
	}
	return urls
}

// Hostname returns the lowercased hostname of rawURL, or "" if it cannot
// be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
