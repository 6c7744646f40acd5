// Package handlers contains the HTTP handlers for the API.
package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// HealthCheckOutput represents the health check response
type HealthCheckOutput struct {
	Body struct {
		Status  string `json:"status" example:"healthy" doc:"Health status"`
		Version string `json:"version" example:"1.0.0" doc:"API version"`
	}
}

// HealthCheck handles the health check endpoint
func HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	resp := &HealthCheckOutput{}
	resp.Body.Status = "healthy"
	resp.Body.Version = "1.0.0"
	return resp, nil
}

// LivezOutput represents the liveness probe response
type LivezOutput struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Liveness status"`
	}
}

// Livez handles the liveness probe. It returns ok as long as the process
// is able to serve requests.
func Livez(ctx context.Context, input *struct{}) (*LivezOutput, error) {
	resp := &LivezOutput{}
	resp.Body.Status = "ok"
	return resp, nil
}

// DBPinger is the minimal database interface the readiness probe needs.
type DBPinger interface {
	Ping() error
}

// ReadyzOutput represents the readiness probe response
type ReadyzOutput struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Readiness status"`
	}
}

// ReadyzHandler checks downstream dependencies for the readiness probe.
type ReadyzHandler struct {
	db DBPinger
}

// NewReadyzHandler creates a readiness handler backed by the given database.
func NewReadyzHandler(db DBPinger) *ReadyzHandler {
	return &ReadyzHandler{db: db}
}

// Readyz handles the readiness probe. It fails when the database is
// unreachable so load balancers can stop routing traffic.
func (h *ReadyzHandler) Readyz(ctx context.Context, input *struct{}) (*ReadyzOutput, error) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			return nil, huma.Error503ServiceUnavailable("database unavailable", err)
		}
	}
	resp := &ReadyzOutput{}
	resp.Body.Status = "ok"
	return resp, nil
}
