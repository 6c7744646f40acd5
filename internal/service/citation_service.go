package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/citeplan/citeplan-api/internal/models"
	"github.com/citeplan/citeplan-api/internal/plan"
	"github.com/citeplan/citeplan-api/internal/repository"
)

// CitationService orchestrates plan generation, citation persistence and
// listing URL resolution.
type CitationService struct {
	repos  *repository.Repositories
	plans  *PlanService
	search *SearchService
	logger *slog.Logger
}

// NewCitationService creates a citation service.
func NewCitationService(repos *repository.Repositories, plans *PlanService, search *SearchService, logger *slog.Logger) *CitationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CitationService{repos: repos, plans: plans, search: search, logger: logger}
}

// CreatePlan generates a citation plan for the business, persists the job
// and its citations, and attempts to resolve missing listing URLs via
// search. The returned job has its citations populated.
func (s *CitationService) CreatePlan(ctx context.Context, business models.Business) (*models.CitationJob, *plan.Plan, error) {
	p, err := s.plans.GeneratePlan(ctx, business)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	job := &models.CitationJob{
		ID:        ulid.Make().String(),
		Business:  business,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Jobs.Create(ctx, job); err != nil {
		return nil, nil, err
	}

	citations := s.buildCitations(job, p, now)
	if err := s.repos.Citations.CreateBatch(ctx, citations); err != nil {
		return nil, nil, err
	}

	// Enrichment phase: resolve listing URLs the model couldn't provide.
	job.Status = models.JobStatusInProgress
	if err := s.repos.Jobs.Update(ctx, job); err != nil {
		return nil, nil, err
	}
	s.resolveMissingURLs(ctx, citations)

	if err := s.refreshJobStatus(ctx, job); err != nil {
		return nil, nil, err
	}
	return job, p, nil
}

// buildCitations turns plan entries into unsaved citation records in
// selection order.
func (s *CitationService) buildCitations(job *models.CitationJob, p *plan.Plan, now time.Time) []*models.Citation {
	citations := make([]*models.Citation, 0, len(p.SiteSelection))
	for i, entry := range p.SiteSelection {
		c := &models.Citation{
			ID:         ulid.Make().String(),
			JobID:      job.ID,
			Rank:       i,
			SiteKey:    entry.SiteKey,
			SiteName:   entry.SiteName,
			Score:      entry.Score,
			Reason:     entry.Reason,
			Status:     models.CitationStatusPending,
			ListingURL: entry.ListingURL,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if payload, ok := p.SitePayloads[entry.SiteKey]; ok {
			for k, v := range payload {
				c.SetPayload(k, v)
			}
		}
		// Keep the model's search query so lookups can reuse it later.
		if entry.SearchQuery != "" {
			c.SetPayload("searchQuery", entry.SearchQuery)
		}
		if entry.VerificationRequired {
			c.Status = models.CitationStatusVerificationNeeded
		} else if c.ListingURL != "" {
			c.Status = models.CitationStatusSuccess
		}
		citations = append(citations, c)
	}
	return citations
}

// resolveMissingURLs looks up listings for citations the plan left
// without a URL. Lookups run sequentially; a failed lookup records the
// error on the citation and moves on.
func (s *CitationService) resolveMissingURLs(ctx context.Context, citations []*models.Citation) {
	for _, c := range citations {
		if c.ListingURL != "" {
			continue
		}
		query := c.PayloadString("searchQuery")
		if query == "" {
			continue
		}

		found, err := s.search.FindListingURL(ctx, query, c.SiteKey)
		if err != nil {
			if IsConfigurationError(err) {
				s.logger.Debug("listing search not configured, skipping resolution")
				return
			}
			s.logger.Warn("listing lookup failed",
				"citation_id", c.ID,
				"site_key", c.SiteKey,
				"error", err,
			)
			c.ErrorMessage = fmt.Sprintf("lookup failed: %v", err)
			if updateErr := s.repos.Citations.Update(ctx, c); updateErr != nil {
				s.logger.Error("failed to record lookup error", "citation_id", c.ID, "error", updateErr)
			}
			continue
		}
		if found == nil {
			continue
		}

		s.applyResolution(c, found)
		if err := s.repos.Citations.Update(ctx, c); err != nil {
			s.logger.Error("failed to save resolved citation", "citation_id", c.ID, "error", err)
		}
	}
}

// applyResolution writes a search hit onto a citation. A citation that
// still needs verification keeps that status; otherwise it becomes
// successful now that it has a live URL.
func (s *CitationService) applyResolution(c *models.Citation, found *SearchResult) {
	c.ListingURL = found.URL
	c.SetPayload("searchResultSnippet", found.Snippet)
	conf := found.Confidence
	c.ListingConfidence = &conf
	c.ErrorMessage = ""
	if c.Status != models.CitationStatusVerificationNeeded {
		c.Status = models.CitationStatusSuccess
	}
}

// refreshJobStatus recomputes the job status from its citations and
// attaches them to the job. A job completes once every citation has a
// listing URL; an empty selection completes immediately.
func (s *CitationService) refreshJobStatus(ctx context.Context, job *models.CitationJob) error {
	citations, err := s.repos.Citations.GetByJobID(ctx, job.ID)
	if err != nil {
		return err
	}
	job.Citations = citations

	resolved := true
	for _, c := range citations {
		if c.ListingURL == "" {
			resolved = false
			break
		}
	}
	if resolved {
		job.Status = models.JobStatusCompleted
	} else {
		job.Status = models.JobStatusPending
	}
	return s.repos.Jobs.Update(ctx, job)
}

// GetJobStatus returns a job with its citations populated.
func (s *CitationService) GetJobStatus(ctx context.Context, jobID string) (*models.CitationJob, error) {
	job, err := s.repos.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &NotFoundError{Kind: "job", ID: jobID}
	}

	citations, err := s.repos.Citations.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job.Citations = citations
	return job, nil
}

// ListJobs returns jobs in reverse creation order. Citations are not
// attached; use GetJobStatus for the full view of a single job.
func (s *CitationService) ListJobs(ctx context.Context, limit, offset int) ([]*models.CitationJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Jobs.List(ctx, limit, offset)
}

// ReResolveCitation re-runs the listing lookup for one citation. The
// stored search query is preferred; when absent, one is built from the
// owning job's business profile. Existing listing URLs are only ever
// replaced by a fresh hit, never cleared.
func (s *CitationService) ReResolveCitation(ctx context.Context, citationID string) (*models.Citation, error) {
	citation, err := s.repos.Citations.GetByID(ctx, citationID)
	if err != nil {
		return nil, err
	}
	if citation == nil {
		return nil, &NotFoundError{Kind: "citation", ID: citationID}
	}

	query := citation.PayloadString("searchQuery")
	if query == "" {
		job, err := s.repos.Jobs.GetByID(ctx, citation.JobID)
		if err != nil {
			return nil, err
		}
		if job != nil {
			query = job.Business.SearchPhrase(citation.SiteName)
		}
	}
	if query == "" {
		return nil, &MissingQueryError{CitationID: citationID}
	}

	found, err := s.search.FindListingURL(ctx, query, citation.SiteKey)
	if err != nil {
		citation.ErrorMessage = fmt.Sprintf("lookup failed: %v", err)
		if updateErr := s.repos.Citations.Update(ctx, citation); updateErr != nil {
			s.logger.Error("failed to record lookup error", "citation_id", citation.ID, "error", updateErr)
		}
		return nil, err
	}
	if found == nil {
		citation.ErrorMessage = fmt.Sprintf("no listing found for query %q", query)
		if updateErr := s.repos.Citations.Update(ctx, citation); updateErr != nil {
			s.logger.Error("failed to record lookup error", "citation_id", citation.ID, "error", updateErr)
		}
		return nil, &NoListingFoundError{Query: query}
	}

	s.applyResolution(citation, found)
	if err := s.repos.Citations.Update(ctx, citation); err != nil {
		return nil, err
	}

	// A fresh URL may have been the last one missing on the job.
	job, err := s.repos.Jobs.GetByID(ctx, citation.JobID)
	if err == nil && job != nil {
		if err := s.refreshJobStatus(ctx, job); err != nil {
			s.logger.Error("failed to refresh job status", "job_id", job.ID, "error", err)
		}
	}

	return citation, nil
}
