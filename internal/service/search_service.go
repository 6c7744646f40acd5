package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/citeplan/citeplan-api/internal/sitedomains"
	"github.com/citeplan/citeplan-api/internal/urlutil"
)

const defaultCSEBaseURL = "https://www.googleapis.com/customsearch/v1"

// cseResultCount is how many results we request per lookup. The picker
// only needs a handful of candidates to find a preferred-domain match.
const cseResultCount = 5

// SearchResult is a candidate listing URL picked from search results.
type SearchResult struct {
	URL           string
	Snippet       string
	Confidence    float64
	MatchedDomain string // empty when the top result was used as fallback
}

// SearchServiceOptions configures a SearchService.
type SearchServiceOptions struct {
	APIKey  string
	CX      string
	BaseURL string        // override for testing; defaults to the Google endpoint
	Timeout time.Duration // per-lookup timeout, default 10s
	Sites   *sitedomains.Table
	Logger  *slog.Logger
}

// SearchService finds live listing URLs via Google Programmable Search.
type SearchService struct {
	apiKey     string
	cx         string
	baseURL    string
	timeout    time.Duration
	sites      *sitedomains.Table
	logger     *slog.Logger
	httpClient *http.Client
}

// NewSearchService creates a search service.
func NewSearchService(opts SearchServiceOptions) *SearchService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultCSEBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Sites == nil {
		opts.Sites = sitedomains.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SearchService{
		apiKey:     opts.APIKey,
		cx:         opts.CX,
		baseURL:    opts.BaseURL,
		timeout:    opts.Timeout,
		sites:      opts.Sites,
		logger:     opts.Logger,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// cseItem is one search result from the Custom Search API.
type cseItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// FindListingURL searches for the business listing on the given site.
// Returns (nil, nil) when the search succeeded but produced no results.
func (s *SearchService) FindListingURL(ctx context.Context, searchQuery, siteKey string) (*SearchResult, error) {
	if s.apiKey == "" || s.cx == "" {
		return nil, &ConfigurationError{Missing: "GOOGLE_CSE_KEY or GOOGLE_CSE_CX"}
	}

	// Scope the query to the site's primary domain when we know it.
	query := searchQuery
	if domain := s.sites.PrimaryDomain(siteKey); domain != "" {
		query = searchQuery + " site:" + domain
	}

	items, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}

	picked := s.pickBest(items, siteKey)
	if picked == nil {
		return nil, nil
	}

	s.logger.Debug("listing lookup picked result",
		"site_key", siteKey,
		"url", picked.URL,
		"confidence", picked.Confidence,
		"matched_domain", picked.MatchedDomain,
	)
	return picked, nil
}

func (s *SearchService) search(ctx context.Context, query string) ([]cseItem, error) {
	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(cseResultCount))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "google-cse", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Items []cseItem `json:"items"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return parsed.Items, nil
}

// pickBest prefers results on the site's known domains, falling back to
// the top result with reduced confidence.
func (s *SearchService) pickBest(items []cseItem, siteKey string) *SearchResult {
	if len(items) == 0 {
		return nil
	}

	for _, domain := range s.sites.Domains(siteKey) {
		for _, item := range items {
			host := urlutil.Hostname(item.Link)
			matched := false
			if host != "" {
				matched = sitedomains.Matches(host, domain)
			} else {
				// Unparseable link, fall back to substring match
				matched = strings.Contains(strings.ToLower(item.Link), strings.ToLower(domain))
			}
			if matched {
				return &SearchResult{
					URL:           item.Link,
					Snippet:       snippetOrTitle(item),
					Confidence:    0.9,
					MatchedDomain: domain,
				}
			}
		}
	}

	top := items[0]
	return &SearchResult{
		URL:        top.Link,
		Snippet:    snippetOrTitle(top),
		Confidence: 0.6,
	}
}

func snippetOrTitle(item cseItem) string {
	if item.Snippet != "" {
		return item.Snippet
	}
	return item.Title
}
