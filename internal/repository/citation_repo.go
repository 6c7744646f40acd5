package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/citeplan/citeplan-api/internal/models"
)

// SQLiteCitationRepository implements CitationRepository for SQLite.
type SQLiteCitationRepository struct {
	db *sql.DB
}

// NewSQLiteCitationRepository creates a new SQLite citation repository.
func NewSQLiteCitationRepository(db *sql.DB) *SQLiteCitationRepository {
	return &SQLiteCitationRepository{db: db}
}

const citationColumns = `id, job_id, rank, site_key, site_name, score, reason, payload_json,
		status, listing_url, listing_confidence, account_email, error_message, created_at, updated_at`

// CreateBatch inserts all citations in a single transaction so a plan's
// citation set is either fully persisted or not at all.
func (r *SQLiteCitationRepository) CreateBatch(ctx context.Context, citations []*models.Citation) error {
	if len(citations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO citations (` + citationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, c := range citations {
		payloadJSON := ""
		if c.Payload != nil {
			b, err := json.Marshal(c.Payload)
			if err != nil {
				return fmt.Errorf("failed to marshal payload: %w", err)
			}
			payloadJSON = string(b)
		}

		_, err := tx.ExecContext(ctx, query,
			c.ID,
			c.JobID,
			c.Rank,
			c.SiteKey,
			nullString(c.SiteName),
			nullFloat(c.Score),
			nullString(c.Reason),
			nullString(payloadJSON),
			c.Status,
			nullString(c.ListingURL),
			nullFloat(c.ListingConfidence),
			nullString(c.AccountEmail),
			nullString(c.ErrorMessage),
			c.CreatedAt.Format(time.RFC3339),
			c.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to create citation: %w", err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteCitationRepository) GetByID(ctx context.Context, id string) (*models.Citation, error) {
	query := `SELECT ` + citationColumns + ` FROM citations WHERE id = ?`
	return r.scanCitation(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteCitationRepository) GetByJobID(ctx context.Context, jobID string) ([]*models.Citation, error) {
	query := `SELECT ` + citationColumns + ` FROM citations WHERE job_id = ? ORDER BY rank ASC`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query citations: %w", err)
	}
	defer rows.Close()

	var citations []*models.Citation
	for rows.Next() {
		c, err := r.scanCitationFromRows(rows)
		if err != nil {
			return nil, err
		}
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

func (r *SQLiteCitationRepository) Update(ctx context.Context, citation *models.Citation) error {
	payloadJSON := ""
	if citation.Payload != nil {
		b, err := json.Marshal(citation.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payloadJSON = string(b)
	}

	query := `
		UPDATE citations SET site_name = ?, score = ?, reason = ?, payload_json = ?,
			status = ?, listing_url = ?, listing_confidence = ?, account_email = ?,
			error_message = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		nullString(citation.SiteName),
		nullFloat(citation.Score),
		nullString(citation.Reason),
		nullString(payloadJSON),
		citation.Status,
		nullString(citation.ListingURL),
		nullFloat(citation.ListingConfidence),
		nullString(citation.AccountEmail),
		nullString(citation.ErrorMessage),
		time.Now().Format(time.RFC3339),
		citation.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update citation: %w", err)
	}
	return nil
}

func (r *SQLiteCitationRepository) scanCitation(row *sql.Row) (*models.Citation, error) {
	var c models.Citation
	var siteName, reason, payloadJSON, listingURL, accountEmail, errorMessage sql.NullString
	var score, listingConfidence sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(
		&c.ID, &c.JobID, &c.Rank, &c.SiteKey, &siteName, &score, &reason, &payloadJSON,
		&c.Status, &listingURL, &listingConfidence, &accountEmail, &errorMessage,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan citation: %w", err)
	}

	fillCitation(&c, siteName, score, reason, payloadJSON, listingURL, listingConfidence, accountEmail, errorMessage, createdAt, updatedAt)
	return &c, nil
}

func (r *SQLiteCitationRepository) scanCitationFromRows(rows *sql.Rows) (*models.Citation, error) {
	var c models.Citation
	var siteName, reason, payloadJSON, listingURL, accountEmail, errorMessage sql.NullString
	var score, listingConfidence sql.NullFloat64
	var createdAt, updatedAt string

	err := rows.Scan(
		&c.ID, &c.JobID, &c.Rank, &c.SiteKey, &siteName, &score, &reason, &payloadJSON,
		&c.Status, &listingURL, &listingConfidence, &accountEmail, &errorMessage,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan citation: %w", err)
	}

	fillCitation(&c, siteName, score, reason, payloadJSON, listingURL, listingConfidence, accountEmail, errorMessage, createdAt, updatedAt)
	return &c, nil
}

func fillCitation(c *models.Citation,
	siteName sql.NullString, score sql.NullFloat64, reason, payloadJSON sql.NullString,
	listingURL sql.NullString, listingConfidence sql.NullFloat64,
	accountEmail, errorMessage sql.NullString, createdAt, updatedAt string,
) {
	c.SiteName = siteName.String
	c.Reason = reason.String
	c.ListingURL = listingURL.String
	c.AccountEmail = accountEmail.String
	c.ErrorMessage = errorMessage.String
	if score.Valid {
		v := score.Float64
		c.Score = &v
	}
	if listingConfidence.Valid {
		v := listingConfidence.Float64
		c.ListingConfidence = &v
	}
	if payloadJSON.Valid && payloadJSON.String != "" {
		_ = json.Unmarshal([]byte(payloadJSON.String), &c.Payload)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
}
