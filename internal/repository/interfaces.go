// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"
	"database/sql"

	"github.com/citeplan/citeplan-api/internal/models"
)

// JobRepository handles citation job persistence.
type JobRepository interface {
	Create(ctx context.Context, job *models.CitationJob) error
	GetByID(ctx context.Context, id string) (*models.CitationJob, error)
	Update(ctx context.Context, job *models.CitationJob) error
	List(ctx context.Context, limit, offset int) ([]*models.CitationJob, error)
}

// CitationRepository handles citation persistence.
type CitationRepository interface {
	CreateBatch(ctx context.Context, citations []*models.Citation) error
	GetByID(ctx context.Context, id string) (*models.Citation, error)
	GetByJobID(ctx context.Context, jobID string) ([]*models.Citation, error)
	Update(ctx context.Context, citation *models.Citation) error
}

// Repositories holds all repository implementations.
type Repositories struct {
	Jobs      JobRepository
	Citations CitationRepository
}

// NewRepositories creates all repositories with the given database.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Jobs:      NewSQLiteJobRepository(db),
		Citations: NewSQLiteCitationRepository(db),
	}
}
