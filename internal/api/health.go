package api

import "context"

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
}
