package repository

import (
	"context"
	"testing"

	"github.com/citeplan/citeplan-api/internal/models"
)

func TestCitationRepositoryCreateBatchAndGetByJobID(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := newTestJob("Baker's Corner Coffee")
	if err := repos.Jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job error: %v", err)
	}

	score := 0.95
	c1 := newTestCitation(job.ID, "yelp", 1)
	c0 := newTestCitation(job.ID, "google_my_business", 0)
	c0.Score = &score
	c0.Reason = "high local visibility"
	c0.Payload = map[string]any{"title": "Baker's Corner Coffee", "tags": []any{"coffee"}}

	// Insert out of rank order; reads must come back rank-ordered.
	if err := repos.Citations.CreateBatch(ctx, []*models.Citation{c1, c0}); err != nil {
		t.Fatalf("CreateBatch() error: %v", err)
	}

	citations, err := repos.Citations.GetByJobID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByJobID() error: %v", err)
	}
	if len(citations) != 2 {
		t.Fatalf("GetByJobID() returned %d citations, want 2", len(citations))
	}
	if citations[0].SiteKey != "google_my_business" || citations[1].SiteKey != "yelp" {
		t.Errorf("citations not in rank order: %q, %q", citations[0].SiteKey, citations[1].SiteKey)
	}
	got := citations[0]
	if got.Score == nil || *got.Score != 0.95 {
		t.Errorf("Score = %v, want 0.95", got.Score)
	}
	if got.Reason != "high local visibility" {
		t.Errorf("Reason = %q", got.Reason)
	}
	if got.PayloadString("title") != "Baker's Corner Coffee" {
		t.Errorf("Payload title = %q", got.PayloadString("title"))
	}
}

func TestCitationRepositoryCreateBatchEmpty(t *testing.T) {
	repos := setupTestRepos(t)

	if err := repos.Citations.CreateBatch(context.Background(), nil); err != nil {
		t.Fatalf("CreateBatch(nil) error: %v", err)
	}
}

func TestCitationRepositoryGetByIDNotFound(t *testing.T) {
	repos := setupTestRepos(t)

	got, err := repos.Citations.GetByID(context.Background(), "01JXNOPE")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got != nil {
		t.Errorf("GetByID() = %+v, want nil for missing citation", got)
	}
}

func TestCitationRepositoryUpdate(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := newTestJob("Acme Dental")
	if err := repos.Jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job error: %v", err)
	}
	c := newTestCitation(job.ID, "yelp", 0)
	if err := repos.Citations.CreateBatch(ctx, []*models.Citation{c}); err != nil {
		t.Fatalf("CreateBatch() error: %v", err)
	}

	conf := 0.9
	c.Status = models.CitationStatusSuccess
	c.ListingURL = "https://www.yelp.com/biz/acme-dental"
	c.ListingConfidence = &conf
	if err := repos.Citations.Update(ctx, c); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	got, err := repos.Citations.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Status != models.CitationStatusSuccess {
		t.Errorf("Status = %q, want Success", got.Status)
	}
	if got.ListingURL != "https://www.yelp.com/biz/acme-dental" {
		t.Errorf("ListingURL = %q", got.ListingURL)
	}
	if got.ListingConfidence == nil || *got.ListingConfidence != 0.9 {
		t.Errorf("ListingConfidence = %v, want 0.9", got.ListingConfidence)
	}
}

func TestCitationRepositoryUpdateErrorMessageKeepsURL(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := newTestJob("Acme Dental")
	if err := repos.Jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create job error: %v", err)
	}
	c := newTestCitation(job.ID, "facebook", 0)
	c.ListingURL = "https://www.facebook.com/acmedental"
	c.Status = models.CitationStatusSuccess
	if err := repos.Citations.CreateBatch(ctx, []*models.Citation{c}); err != nil {
		t.Fatalf("CreateBatch() error: %v", err)
	}

	c.ErrorMessage = "lookup failed: upstream timeout"
	if err := repos.Citations.Update(ctx, c); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	got, err := repos.Citations.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.ListingURL != "https://www.facebook.com/acmedental" {
		t.Errorf("ListingURL = %q, want preserved", got.ListingURL)
	}
	if got.ErrorMessage != "lookup failed: upstream timeout" {
		t.Errorf("ErrorMessage = %q", got.ErrorMessage)
	}
	if got.Status != models.CitationStatusSuccess {
		t.Errorf("Status = %q, want Success", got.Status)
	}
}
