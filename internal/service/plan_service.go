package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/citeplan/citeplan-api/internal/models"
	"github.com/citeplan/citeplan-api/internal/plan"
)

const planSystemPrompt = `You are an expert local SEO assistant. Return valid JSON only.`

const planInstructions = `Return a JSON object with two top-level keys:
1) siteSelection: an array (up to 20) of site objects prioritized for this business and location. Each site object MUST include these fields:
   - siteKey (string)
   - siteName (string)
   - score (integer 0-100)
   - reason (string)
   - listingUrl (string or null) // exact live URL to the business listing on that site, if known. If unknown, set null.
   - searchQuery (string) // a concise search query we can use to find the listing (e.g. 'Baker's Corner Coffee Springfield IL Google Maps')
   - verificationRequired (boolean)
   - verificationMethod (string: 'phone'|'postcard'|'email'|'none')
   - confidence (number 0.0-1.0)
2) sitePayloads: an object keyed by siteKey containing site-specific fields {title, description, tags, keywords}.

If you cannot find a listingUrl, set listingUrl: null and provide the best searchQuery. Keep descriptions <= 300 chars. Return only valid JSON (do not wrap in markdown). If you need to include debug text, place it in a top-level key named rawDebug.
Example schema:
{
  "siteSelection": [ {"siteKey":"google_my_business","siteName":"Google My Business","score":98,"reason":"Most important for local visibility","listingUrl":"https://maps.google.com/?cid=...","searchQuery":"Baker's Corner Coffee Springfield IL Google Maps","verificationRequired":true,"verificationMethod":"phone","confidence":0.95} ],
  "sitePayloads": { "google_my_business": { "title": "...", "description": "...", "tags": ["..."], "keywords": ["..."] } }
}`

// PlanService generates citation plans from business profiles.
type PlanService struct {
	client *CompletionClient
	logger *slog.Logger
}

// NewPlanService creates a plan service.
func NewPlanService(client *CompletionClient, logger *slog.Logger) *PlanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanService{client: client, logger: logger}
}

// GeneratePlan asks the model for a site selection and payloads for the
// business, then parses the answer defensively. Unparseable answers
// come back as a degraded plan, not an error.
func (s *PlanService) GeneratePlan(ctx context.Context, business models.Business) (*plan.Plan, error) {
	businessJSON, err := json.Marshal(business)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal business: %w", err)
	}

	userPrompt := fmt.Sprintf("Business: %s\n\n%s", businessJSON, planInstructions)

	result, err := s.client.Complete(ctx, planSystemPrompt, userPrompt, DefaultCompletionCallOptions())
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan completion received",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"finish_reason", result.FinishReason,
	)

	parsed := plan.Parse(result.Content)
	if parsed.Degraded {
		s.logger.Warn("plan response not parseable as JSON",
			"model", result.Model,
			"extracted_urls", len(parsed.URLs),
		)
	}
	return parsed, nil
}
