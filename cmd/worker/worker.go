package main

import (
	"context"

	"github.com/septivank/civic-kiosk/internal/config"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/mq"
	"github.com/septivank/civic-kiosk/internal/repository"
	"github.com/septivank/civic-kiosk/internal/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// startWorker binds the audit queue to every reading lifecycle event and
// records each one in reading_events
func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	audit *service.AuditService,
) (*mq.Consumer, error) {
	// cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.AuditQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.EventsExchange,
		BindingKey:       cfg.RabbitMQ.AuditBindingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: audit.ProcessMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting audit consumer",
				zap.String("queue", cfg.RabbitMQ.AuditQueue),
				zap.String("binding_key", cfg.RabbitMQ.AuditBindingKey),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

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

// ProvideAuditService creates the audit trail recorder
func ProvideAuditService(repo *repository.Repository, logger *zap.Logger) *service.AuditService {
	return service.NewAuditService(repo, logger)
}
