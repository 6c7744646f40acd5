package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/citeplan/citeplan-api/internal/models"
	"github.com/citeplan/citeplan-api/internal/service"
)

// CitationHandler handles citation plan endpoints.
type CitationHandler struct {
	citationSvc *service.CitationService
	baseURL     string
}

// NewCitationHandler creates a new citation handler.
func NewCitationHandler(citationSvc *service.CitationService, baseURL string) *CitationHandler {
	return &CitationHandler{
		citationSvc: citationSvc,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
	}
}

// CreatePlanInput represents a citation plan request.
type CreatePlanInput struct {
	Body struct {
		Business models.Business `json:"business" doc:"Business profile to build a citation plan for. Name is required."`
	}
}

// CitationResponseBody is the API view of a single citation.
type CitationResponseBody struct {
	ID                string         `json:"id" example:"01HXYZ123ABC456DEF789" doc:"Unique citation identifier (ULID)"`
	JobID             string         `json:"job_id" example:"01HXYZ123ABC456DEF788" doc:"Owning job identifier"`
	Rank              int            `json:"rank" example:"0" doc:"Position in the plan's site selection order"`
	SiteKey           string         `json:"site_key" example:"yelp" doc:"Canonical key of the target site"`
	SiteName          string         `json:"site_name,omitempty" example:"Yelp" doc:"Display name of the target site"`
	Score             *float64       `json:"score,omitempty" example:"0.92" doc:"Plan relevance score for this site"`
	Reason            string         `json:"reason,omitempty" doc:"Why the plan selected this site"`
	Status            string         `json:"status" example:"Success" doc:"Citation status: Pending, InProgress, Success, Failed, VerificationNeeded"`
	ListingURL        string         `json:"listing_url,omitempty" format:"uri" doc:"Resolved listing URL, once found"`
	ListingConfidence *float64       `json:"listing_confidence,omitempty" example:"0.9" doc:"Confidence in the resolved URL"`
	ErrorMessage      string         `json:"error_message,omitempty" doc:"Last lookup error, if any"`
	Payload           map[string]any `json:"payload,omitempty" doc:"Site-specific listing content"`
}

// CreatePlanResponseBody is the response body for plan creation.
type CreatePlanResponseBody struct {
	JobID     string                 `json:"job_id" example:"01HXYZ123ABC456DEF788" doc:"Unique job identifier (ULID)"`
	Status    string                 `json:"status" example:"Completed" doc:"Job status: Pending, InProgress, Completed, Failed"`
	StatusURL string                 `json:"status_url,omitempty" format:"uri" doc:"URL to poll for job status"`
	Degraded  bool                   `json:"degraded,omitempty" doc:"True when the model response was not usable JSON and the plan was salvaged from raw text"`
	Raw       string                 `json:"raw,omitempty" doc:"Raw model response, returned only for degraded plans"`
	Citations []CitationResponseBody `json:"citations" doc:"Planned citations in rank order"`
}

// CreatePlanOutput represents the plan creation response.
type CreatePlanOutput struct {
	Status int
	Body   CreatePlanResponseBody
}

// CreatePlan generates a citation plan for a business and persists the
// resulting job and citations.
func (h *CitationHandler) CreatePlan(ctx context.Context, input *CreatePlanInput) (*CreatePlanOutput, error) {
	if strings.TrimSpace(input.Body.Business.Name) == "" {
		return nil, huma.Error400BadRequest("business.name is required")
	}

	job, p, err := h.citationSvc.CreatePlan(ctx, input.Body.Business)
	if err != nil {
		return nil, mapServiceError(err, "failed to create citation plan")
	}

	body := CreatePlanResponseBody{
		JobID:     job.ID,
		Status:    string(job.Status),
		StatusURL: h.statusURL(job.ID),
		Degraded:  p.Degraded,
		Citations: citationBodies(job.Citations),
	}
	if p.Degraded {
		body.Raw = p.Raw
	}

	return &CreatePlanOutput{
		Status: http.StatusCreated,
		Body:   body,
	}, nil
}

// GetJobInput represents a job status request.
type GetJobInput struct {
	ID string `path:"id" example:"01HXYZ123ABC456DEF788" doc:"Job ID"`
}

// JobResponseBody is the API view of a citation job.
type JobResponseBody struct {
	JobID     string                 `json:"job_id" example:"01HXYZ123ABC456DEF788" doc:"Unique job identifier (ULID)"`
	Status    string                 `json:"status" example:"Completed" doc:"Job status: Pending, InProgress, Completed, Failed"`
	Business  models.Business        `json:"business" doc:"Business profile the plan was generated for"`
	CreatedAt time.Time              `json:"created_at" doc:"Job creation time"`
	UpdatedAt time.Time              `json:"updated_at" doc:"Last job update time"`
	Citations []CitationResponseBody `json:"citations" doc:"Citations in rank order"`
}

// GetJobOutput represents the job status response.
type GetJobOutput struct {
	Body JobResponseBody
}

// GetJob returns a citation job with its citations.
func (h *CitationHandler) GetJob(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	job, err := h.citationSvc.GetJobStatus(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err, "failed to get job")
	}

	return &GetJobOutput{
		Body: JobResponseBody{
			JobID:     job.ID,
			Status:    string(job.Status),
			Business:  job.Business,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.UpdatedAt,
			Citations: citationBodies(job.Citations),
		},
	}, nil
}

// ListJobsInput represents a job listing request.
type ListJobsInput struct {
	Limit  int `query:"limit" default:"20" maximum:"100" doc:"Number of jobs to return"`
	Offset int `query:"offset" default:"0" doc:"Offset for pagination"`
}

// JobSummary is the API view of a job in list responses, without the
// citation join.
type JobSummary struct {
	JobID     string          `json:"job_id" example:"01HXYZ123ABC456DEF788" doc:"Unique job identifier (ULID)"`
	Status    string          `json:"status" example:"Completed" doc:"Job status: Pending, InProgress, Completed, Failed"`
	Business  models.Business `json:"business" doc:"Business profile the plan was generated for"`
	CreatedAt time.Time       `json:"created_at" doc:"Job creation time"`
	UpdatedAt time.Time       `json:"updated_at" doc:"Last job update time"`
}

// ListJobsOutput represents the job listing response.
type ListJobsOutput struct {
	Body struct {
		Jobs []JobSummary `json:"jobs"`
	}
}

// ListJobs returns citation jobs in reverse creation order.
func (h *CitationHandler) ListJobs(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
	jobs, err := h.citationSvc.ListJobs(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list jobs: " + err.Error())
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, JobSummary{
			JobID:     job.ID,
			Status:    string(job.Status),
			Business:  job.Business,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.UpdatedAt,
		})
	}

	resp := &ListJobsOutput{}
	resp.Body.Jobs = summaries
	return resp, nil
}

// ResolveCitationInput represents a citation re-resolution request.
type ResolveCitationInput struct {
	ID string `path:"id" example:"01HXYZ123ABC456DEF789" doc:"Citation ID"`
}

// ResolveCitationOutput represents the re-resolution response.
type ResolveCitationOutput struct {
	Body CitationResponseBody
}

// ResolveCitation retries the listing URL lookup for a single citation.
func (h *CitationHandler) ResolveCitation(ctx context.Context, input *ResolveCitationInput) (*ResolveCitationOutput, error) {
	citation, err := h.citationSvc.ReResolveCitation(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err, "failed to resolve citation")
	}

	return &ResolveCitationOutput{
		Body: citationBody(citation),
	}, nil
}

func (h *CitationHandler) statusURL(jobID string) string {
	if h.baseURL == "" {
		return ""
	}
	return h.baseURL + "/api/v1/citations/jobs/" + jobID
}

func citationBody(c *models.Citation) CitationResponseBody {
	return CitationResponseBody{
		ID:                c.ID,
		JobID:             c.JobID,
		Rank:              c.Rank,
		SiteKey:           c.SiteKey,
		SiteName:          c.SiteName,
		Score:             c.Score,
		Reason:            c.Reason,
		Status:            string(c.Status),
		ListingURL:        c.ListingURL,
		ListingConfidence: c.ListingConfidence,
		ErrorMessage:      c.ErrorMessage,
		Payload:           c.Payload,
	}
}

func citationBodies(citations []*models.Citation) []CitationResponseBody {
	out := make([]CitationResponseBody, 0, len(citations))
	for _, c := range citations {
		out = append(out, citationBody(c))
	}
	return out
}

// mapServiceError translates service errors to HTTP status errors.
func mapServiceError(err error, fallback string) error {
	switch {
	case service.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case service.IsMissingQuery(err):
		return huma.Error400BadRequest(err.Error())
	case service.IsNoListingFound(err):
		return huma.Error404NotFound(err.Error())
	case service.IsConfigurationError(err):
		return huma.Error503ServiceUnavailable(err.Error())
	case service.IsUpstreamError(err), service.IsEmptyCompletion(err):
		return huma.Error502BadGateway(err.Error())
	default:
		return huma.Error500InternalServerError(fallback + ": " + err.Error())
	}
}
