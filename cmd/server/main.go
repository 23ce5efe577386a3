package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	jwttoken "principalcheck/internal/jwt_token"
	"principalcheck/internal/platform/config"
	"principalcheck/internal/platform/httpserver"
	"principalcheck/internal/platform/logger"
	"principalcheck/internal/platform/metrics"
	"principalcheck/internal/platform/middleware"
	"principalcheck/internal/validation"
	"principalcheck/internal/validation/handler"
	validationmetrics "principalcheck/internal/validation/metrics"
	"principalcheck/internal/wiring"
	"principalcheck/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := wiring.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize resources", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Error("failed to close resources", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	validator := validation.New(res.Symbols, res.Known, log, validationmetrics.New(reg),
		validation.WithMaxLabelWidth(cfg.Validation.MaxLabelWidth),
	)
	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Instrument(metrics.New(reg)))

	r.Get("/healthz", healthHandler(res, log))
	r.Handle("/metrics", metrics.Handler(reg))
	handler.New(validator, res.Directory, res.Known, log, jwtService, cfg.Auth.AdminToken).Register(r)

	srv := httpserver.New(cfg.Server, r)

	go func() {
		log.Info("starting principalcheck", "addr", cfg.Server.Addr, "directory_backend", cfg.Directory.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func healthHandler(res *wiring.Resources, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := res.Health(ctx); err != nil {
			log.WarnContext(ctx, "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
