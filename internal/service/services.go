// Package service contains the business logic layer.
package service

import (
	"log/slog"

	"github.com/citeplan/citeplan-api/internal/config"
	"github.com/citeplan/citeplan-api/internal/repository"
	"github.com/citeplan/citeplan-api/internal/sitedomains"
)

// Services holds all service instances.
type Services struct {
	Plan     *PlanService
	Search   *SearchService
	Citation *CitationService
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, sites *sitedomains.Table, logger *slog.Logger) *Services {
	completionClient := NewCompletionClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger)
	planSvc := NewPlanService(completionClient, logger)

	searchSvc := NewSearchService(SearchServiceOptions{
		APIKey:  cfg.GoogleCSEKey,
		CX:      cfg.GoogleCSECX,
		Timeout: cfg.SearchTimeout,
		Sites:   sites,
		Logger:  logger,
	})

	citationSvc := NewCitationService(repos, planSvc, searchSvc, logger)

	return &Services{
		Plan:     planSvc,
		Search:   searchSvc,
		Citation: citationSvc,
	}
}
