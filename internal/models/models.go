// Package models defines the domain models for the application.
package models

import (
	"strings"
	"time"
)

// Business is the immutable profile a plan is generated for. It has no
// identity of its own; it is embedded in the CitationJob that owns it.
type Business struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Description string `json:"description,omitempty"`
}

// SearchPhrase joins the business identity fields with any extra parts to
// build a listing lookup query, skipping empty components.
func (b Business) SearchPhrase(extra ...string) string {
	parts := []string{b.Name, b.City, b.State}
	parts = append(parts, extra...)
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			joined = append(joined, p)
		}
	}
	return strings.Join(joined, " ")
}

// JobStatus represents the status of a citation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "Pending"
	JobStatusInProgress JobStatus = "InProgress"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusFailed     JobStatus = "Failed"
)

// CitationJob is one end-to-end plan-generation request. It owns the
// Business it was created for and the ordered set of Citations the plan
// produced. Jobs are never deleted by this service.
type CitationJob struct {
	ID        string    `json:"id"`
	Business  Business  `json:"business"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Citations are populated by the join read, in site-selection rank
	// order. Not stored on the job row itself.
	Citations []*Citation `json:"citations,omitempty"`
}

// CitationStatus represents the status of a single citation.
type CitationStatus string

const (
	CitationStatusPending            CitationStatus = "Pending"
	CitationStatusInProgress         CitationStatus = "InProgress"
	CitationStatusSuccess            CitationStatus = "Success"
	CitationStatusFailed             CitationStatus = "Failed"
	CitationStatusVerificationNeeded CitationStatus = "VerificationNeeded"
)

// Citation is one business listing on one target site, tracked through
// discovery and URL resolution. Rank preserves the plan's selection
// order. Payload is an open map because each site's required fields
// differ; known sub-fields are coerced at parse time and unknown keys
// pass through untouched.
type Citation struct {
	ID                string         `json:"id"`
	JobID             string         `json:"job_id"`
	Rank              int            `json:"rank"`
	SiteKey           string         `json:"site_key"`
	SiteName          string         `json:"site_name,omitempty"`
	Score             *float64       `json:"score,omitempty"`
	Reason            string         `json:"reason,omitempty"`
	Payload           map[string]any `json:"payload,omitempty"`
	Status            CitationStatus `json:"status"`
	ListingURL        string         `json:"listing_url,omitempty"`
	ListingConfidence *float64       `json:"listing_confidence,omitempty"`
	AccountEmail      string         `json:"account_email,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// PayloadString returns the payload value for key when it is a string.
func (c *Citation) PayloadString(key string) string {
	if c.Payload == nil {
		return ""
	}
	s, _ := c.Payload[key].(string)
	return s
}

// SetPayload writes a payload value, allocating the map on first use.
func (c *Citation) SetPayload(key string, value any) {
	if c.Payload == nil {
		c.Payload = make(map[string]any)
	}
	c.Payload[key] = value
}
