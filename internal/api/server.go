package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/septivank/civic-kiosk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Server represents the HTTP server lifecycle.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer constructs a Server for handler and binds it to the fx lifecycle
func NewServer(lc fx.Lifecycle, logger *zap.Logger, cfg config.HTTPConfig, handler http.Handler) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", s.httpServer.Addr)
			if err != nil {
				return fmt.Errorf("[HTTP] failed to listen on %s: %w", s.httpServer.Addr, err)
			}
			logger.Info("starting http server", zap.String("addr", s.httpServer.Addr))
			go func() {
				if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return s.httpServer.Shutdown(ctx)
		},
	})

	return s
}
