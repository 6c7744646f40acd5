package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/citeplan/citeplan-api/internal/database/migrations"
	"github.com/citeplan/citeplan-api/internal/models"
	"github.com/citeplan/citeplan-api/internal/repository"
	"github.com/citeplan/citeplan-api/internal/service"

	_ "github.com/tursodatabase/go-libsql"
)

func newTestCitationHandler(t *testing.T) (*CitationHandler, *repository.Repositories) {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	repos := repository.NewRepositories(db)
	svc := service.NewCitationService(repos, nil, nil, nil)
	return NewCitationHandler(svc, "https://api.example.com"), repos
}

// ========================================
// CreatePlan Tests
// ========================================

func TestCreatePlan_MissingName(t *testing.T) {
	handler, _ := newTestCitationHandler(t)

	input := &CreatePlanInput{}
	input.Body.Business = models.Business{City: "Portland"}

	_, err := handler.CreatePlan(context.Background(), input)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	assertStatus(t, err, http.StatusBadRequest)
}

// ========================================
// GetJob Tests
// ========================================

func TestGetJob_NotFound(t *testing.T) {
	handler, _ := newTestCitationHandler(t)

	_, err := handler.GetJob(context.Background(), &GetJobInput{ID: "missing"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	assertStatus(t, err, http.StatusNotFound)
}

// ========================================
// ListJobs Tests
// ========================================

func TestListJobs(t *testing.T) {
	handler, repos := newTestCitationHandler(t)

	for i, name := range []string{"Acme Dental", "Baker's Corner Coffee"} {
		job := &models.CitationJob{
			ID:        "01TESTJOB" + string(rune('A'+i)),
			Business:  models.Business{Name: name, City: "Portland", State: "OR"},
			Status:    models.JobStatusPending,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
			UpdatedAt: time.Now().UTC(),
		}
		if err := repos.Jobs.Create(context.Background(), job); err != nil {
			t.Fatalf("failed to seed job: %v", err)
		}
	}

	output, err := handler.ListJobs(context.Background(), &ListJobsInput{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Body.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(output.Body.Jobs))
	}
	// Newest first
	if output.Body.Jobs[0].Business.Name != "Baker's Corner Coffee" {
		t.Errorf("Jobs[0].Business.Name = %q, want newest job first", output.Body.Jobs[0].Business.Name)
	}
}

func TestListJobs_Empty(t *testing.T) {
	handler, _ := newTestCitationHandler(t)

	output, err := handler.ListJobs(context.Background(), &ListJobsInput{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Body.Jobs) != 0 {
		t.Errorf("len(Jobs) = %d, want 0", len(output.Body.Jobs))
	}
}

// ========================================
// ResolveCitation Tests
// ========================================

func TestResolveCitation_NotFound(t *testing.T) {
	handler, _ := newTestCitationHandler(t)

	_, err := handler.ResolveCitation(context.Background(), &ResolveCitationInput{ID: "missing"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	assertStatus(t, err, http.StatusNotFound)
}

// ========================================
// mapServiceError Tests
// ========================================

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", &service.NotFoundError{Kind: "job", ID: "x"}, http.StatusNotFound},
		{"missing query", &service.MissingQueryError{CitationID: "x"}, http.StatusBadRequest},
		{"no listing found", &service.NoListingFoundError{Query: "q"}, http.StatusNotFound},
		{"configuration", &service.ConfigurationError{Missing: "GOOGLE_CSE_KEY"}, http.StatusServiceUnavailable},
		{"upstream", &service.UpstreamError{Service: "google-cse", StatusCode: 500}, http.StatusBadGateway},
		{"empty completion", &service.EmptyCompletionError{Model: "gpt-4o"}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapServiceError(tt.err, "request failed")
			assertStatus(t, err, tt.wantStatus)
		})
	}
}

// ========================================
// Helper Tests
// ========================================

func TestStatusURL(t *testing.T) {
	handler := NewCitationHandler(nil, "https://api.example.com/")
	got := handler.statusURL("01ABC")
	want := "https://api.example.com/api/v1/citations/jobs/01ABC"
	if got != want {
		t.Errorf("statusURL() = %q, want %q", got, want)
	}

	handler = NewCitationHandler(nil, "")
	if got := handler.statusURL("01ABC"); got != "" {
		t.Errorf("statusURL() = %q, want empty for unset base URL", got)
	}
}

func TestCitationBodies_Empty(t *testing.T) {
	bodies := citationBodies(nil)
	if bodies == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(bodies) != 0 {
		t.Errorf("len = %d, want 0", len(bodies))
	}
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	var statusErr huma.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected huma status error, got %T: %v", err, err)
	}
	if statusErr.GetStatus() != want {
		t.Errorf("status = %d, want %d", statusErr.GetStatus(), want)
	}
}
