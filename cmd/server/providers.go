package main

import (
	"context"
	"net/http"

	"github.com/septivank/civic-kiosk/internal/anomaly"
	"github.com/septivank/civic-kiosk/internal/api"
	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/config"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/mq"
	"github.com/septivank/civic-kiosk/internal/repository"
	"github.com/septivank/civic-kiosk/internal/service"
	"github.com/septivank/civic-kiosk/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, db.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the reading event publisher and closes its channel on stop
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

// ProvideAnomalyDetector creates a new anomaly detector instance
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection)
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.ReadingDateToleranceMinutes)
}

// ProvideReadingService creates the meter reading workflow
func ProvideReadingService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	detector *anomaly.Detector,
	validator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.ReadingService {
	return service.NewReadingService(repo, publisher, detector, validator, cfg, logger)
}

// ProvideReportService creates the admin dashboard service
func ProvideReportService(repo *repository.Repository, cfg *config.Config) *service.ReportService {
	return service.NewReportService(repo, cfg)
}

// ProvideVerifier creates the bearer token verifier
func ProvideVerifier(cfg *config.Config) auth.Verifier {
	return auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
}

// ProvideRouter wires handlers and middleware into the HTTP router
func ProvideRouter(
	logger *zap.Logger,
	cfg *config.Config,
	pool *db.Pool,
	verifier auth.Verifier,
	readings *service.ReadingService,
	reports *service.ReportService,
) http.Handler {
	return api.NewRouter(logger, api.RouterDependencies{
		Health:         db.HealthProbe{Pool: pool},
		Handlers:       api.NewHandlers(readings, reports),
		Verifier:       verifier,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
}

// ProvideServer creates the HTTP server bound to the fx lifecycle
func ProvideServer(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config, handler http.Handler) *api.Server {
	return api.NewServer(lc, logger, cfg.HTTP, handler)
}
