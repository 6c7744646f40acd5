package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/citeplan/citeplan-api/internal/database/migrations"
	"github.com/citeplan/citeplan-api/internal/models"
	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// newTestJob builds an unsaved job for the given business name.
func newTestJob(name string) *models.CitationJob {
	now := time.Now().UTC()
	return &models.CitationJob{
		ID:        ulid.Make().String(),
		Business:  models.Business{Name: name, City: "Portland", State: "OR"},
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// newTestCitation builds an unsaved citation for a job.
func newTestCitation(jobID, siteKey string, rank int) *models.Citation {
	now := time.Now().UTC()
	return &models.Citation{
		ID:        ulid.Make().String(),
		JobID:     jobID,
		Rank:      rank,
		SiteKey:   siteKey,
		SiteName:  siteKey,
		Status:    models.CitationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
