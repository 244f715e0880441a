// Package server wires the watcher's HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/skjalftalisa/internal/core/health"
	middleware "github.com/mohammed-shakir/skjalftalisa/internal/core/middleware"
	"github.com/mohammed-shakir/skjalftalisa/internal/core/router"
)

type Deps struct {
	Fetcher router.Fetcher
	Ready   health.ReadinessReporter
	Metrics http.Handler // defaults to the global promhttp handler
	Origins []string     // CORS origins, default any
}

// NewRouter builds the chi mux: /healthz, /readyz, /metrics and /quakes.
func NewRouter(logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(d.Origins...))

	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r.Get("/healthz", health.Liveness())
	if d.Ready != nil {
		r.Get("/readyz", health.Readiness(d.Ready))
	}
	r.Method(http.MethodGet, "/metrics", metrics)
	r.Get("/quakes", router.HandleQuakes(logger, d.Fetcher, nil))
	return r
}

// Run serves handler on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
