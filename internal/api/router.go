package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/locale"
	"go.uber.org/zap"
)

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health         HealthService
	Handlers       *Handlers
	Verifier       auth.Verifier
	AllowedOrigins []string
}

// NewRouter wires the HTTP routes exposed by the kiosk API.
func NewRouter(logger *zap.Logger, deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	if len(deps.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(deps.AllowedOrigins))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(locale.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if deps.Health != nil {
			if err := deps.Health.Probe(ctx); err != nil {
				requestLogger(r).Error("health probe failed", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, locale.FromContext(r.Context()).Text(locale.MsgDegraded))
				return
			}
		}

		respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})

	if deps.Handlers != nil && deps.Verifier != nil {
		h := deps.Handlers
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(deps.Verifier))

			r.Post("/meter-readings", h.submitReading)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/meter-readings", h.listReadings)
				r.Post("/meter-readings/{id}/verify", h.verifyReading)
				r.Post("/meter-readings/{id}/reject", h.rejectReading)
				r.Get("/activities", h.listActivities)
				r.Get("/payments", h.listPayments)
				r.Get("/service-usage", h.serviceUsage)
			})
		})
	}

	return r
}
