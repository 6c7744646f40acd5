package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func cseResponse(items ...map[string]string) map[string]any {
	list := make([]any, 0, len(items))
	for _, i := range items {
		list = append(list, i)
	}
	return map[string]any{"items": list}
}

func newTestSearchService(t *testing.T, handler http.HandlerFunc) *SearchService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSearchService(SearchServiceOptions{
		APIKey:  "cse-key",
		CX:      "cse-cx",
		BaseURL: server.URL,
	})
}

func TestFindListingURLPreferredDomain(t *testing.T) {
	svc := newTestSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "cse-key" || q.Get("cx") != "cse-cx" {
			t.Errorf("credentials not forwarded: %v", q)
		}
		if q.Get("num") != "5" {
			t.Errorf("num = %q, want 5", q.Get("num"))
		}
		if q.Get("q") != "Acme Dental Fresno site:yelp.com" {
			t.Errorf("q = %q", q.Get("q"))
		}
		_ = json.NewEncoder(w).Encode(cseResponse(
			map[string]string{"link": "https://example.com/acme", "snippet": "some directory"},
			map[string]string{"link": "https://www.yelp.com/biz/acme-dental", "snippet": "Acme Dental on Yelp"},
		))
	})

	found, err := svc.FindListingURL(context.Background(), "Acme Dental Fresno", "yelp")
	if err != nil {
		t.Fatalf("FindListingURL() error: %v", err)
	}
	if found == nil {
		t.Fatal("FindListingURL() = nil")
	}
	if found.URL != "https://www.yelp.com/biz/acme-dental" {
		t.Errorf("URL = %q", found.URL)
	}
	if found.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", found.Confidence)
	}
	if found.MatchedDomain != "yelp.com" {
		t.Errorf("MatchedDomain = %q", found.MatchedDomain)
	}
	if found.Snippet != "Acme Dental on Yelp" {
		t.Errorf("Snippet = %q", found.Snippet)
	}
}

func TestFindListingURLTopResultFallback(t *testing.T) {
	svc := newTestSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(cseResponse(
			map[string]string{"link": "https://somewhere-else.example/acme", "title": "Acme Dental"},
		))
	})

	found, err := svc.FindListingURL(context.Background(), "Acme Dental Fresno", "yelp")
	if err != nil {
		t.Fatalf("FindListingURL() error: %v", err)
	}
	if found == nil {
		t.Fatal("FindListingURL() = nil")
	}
	if found.Confidence != 0.6 {
		t.Errorf("Confidence = %v, want 0.6", found.Confidence)
	}
	if found.MatchedDomain != "" {
		t.Errorf("MatchedDomain = %q, want empty", found.MatchedDomain)
	}
	// Snippet falls back to title when missing.
	if found.Snippet != "Acme Dental" {
		t.Errorf("Snippet = %q", found.Snippet)
	}
}

func TestFindListingURLUnknownSiteKeySkipsScoping(t *testing.T) {
	svc := newTestSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "Acme Dental Fresno" {
			t.Errorf("q = %q, want unscoped query", q)
		}
		_ = json.NewEncoder(w).Encode(cseResponse(
			map[string]string{"link": "https://directory.example/acme", "snippet": "Acme"},
		))
	})

	found, err := svc.FindListingURL(context.Background(), "Acme Dental Fresno", "unknown_site")
	if err != nil {
		t.Fatalf("FindListingURL() error: %v", err)
	}
	if found == nil || found.Confidence != 0.6 {
		t.Errorf("found = %+v, want top-result fallback", found)
	}
}

func TestFindListingURLNoResults(t *testing.T) {
	svc := newTestSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	found, err := svc.FindListingURL(context.Background(), "Acme Dental Fresno", "yelp")
	if err != nil {
		t.Fatalf("FindListingURL() error: %v", err)
	}
	if found != nil {
		t.Errorf("found = %+v, want nil for empty results", found)
	}
}

func TestFindListingURLUpstreamError(t *testing.T) {
	svc := newTestSearchService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"quota exceeded"}`))
	})

	_, err := svc.FindListingURL(context.Background(), "Acme Dental Fresno", "yelp")
	if !IsUpstreamError(err) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
}

func TestFindListingURLMissingCredentials(t *testing.T) {
	svc := NewSearchService(SearchServiceOptions{})

	_, err := svc.FindListingURL(context.Background(), "Acme Dental", "yelp")
	if !IsConfigurationError(err) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
}
