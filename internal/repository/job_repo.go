package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/citeplan/citeplan-api/internal/models"
)

// SQLiteJobRepository implements JobRepository for SQLite.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository creates a new SQLite job repository.
func NewSQLiteJobRepository(db *sql.DB) *SQLiteJobRepository {
	return &SQLiteJobRepository{db: db}
}

func (r *SQLiteJobRepository) Create(ctx context.Context, job *models.CitationJob) error {
	businessJSON, err := json.Marshal(job.Business)
	if err != nil {
		return fmt.Errorf("failed to marshal business: %w", err)
	}

	query := `
		INSERT INTO citation_jobs (id, business_json, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		string(businessJSON),
		job.Status,
		job.CreatedAt.Format(time.RFC3339),
		job.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create citation job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) GetByID(ctx context.Context, id string) (*models.CitationJob, error) {
	query := `
		SELECT id, business_json, status, created_at, updated_at
		FROM citation_jobs WHERE id = ?
	`
	return r.scanJob(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteJobRepository) Update(ctx context.Context, job *models.CitationJob) error {
	query := `
		UPDATE citation_jobs SET status = ?, updated_at = ? WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status,
		time.Now().Format(time.RFC3339),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update citation job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) List(ctx context.Context, limit, offset int) ([]*models.CitationJob, error) {
	query := `
		SELECT id, business_json, status, created_at, updated_at
		FROM citation_jobs ORDER BY created_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query citation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.CitationJob
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *SQLiteJobRepository) scanJob(row *sql.Row) (*models.CitationJob, error) {
	var job models.CitationJob
	var businessJSON string
	var createdAt, updatedAt string

	err := row.Scan(&job.ID, &businessJSON, &job.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan citation job: %w", err)
	}

	if err := json.Unmarshal([]byte(businessJSON), &job.Business); err != nil {
		return nil, fmt.Errorf("failed to unmarshal business: %w", err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &job, nil
}

func (r *SQLiteJobRepository) scanJobFromRows(rows *sql.Rows) (*models.CitationJob, error) {
	var job models.CitationJob
	var businessJSON string
	var createdAt, updatedAt string

	if err := rows.Scan(&job.ID, &businessJSON, &job.Status, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan citation job: %w", err)
	}

	if err := json.Unmarshal([]byte(businessJSON), &job.Business); err != nil {
		return nil, fmt.Errorf("failed to unmarshal business: %w", err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &job, nil
}

// Helper functions
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
