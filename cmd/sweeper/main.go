package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/magic-auth/config"
	"github.com/ErlanBelekov/magic-auth/internal/health"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/backend"
	ctxlog "github.com/ErlanBelekov/magic-auth/internal/log"
	"github.com/ErlanBelekov/magic-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-auth/internal/sweeper"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.StoreBackend == "memory" {
		log.Fatal("sweeper: the memory backend is process-local; run the sweep inside the server instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	stores, err := backend.Open(ctx, cfg, logger, false)
	if err != nil {
		stop()
		log.Fatalf("stores: %v", err)
	}
	defer stores.Close()

	metrics.Register(prometheus.DefaultRegisterer)
	checker := health.NewChecker(stores.Pingers, logger, prometheus.DefaultRegisterer)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	sw := sweeper.New(stores.Tokens, stores.Limits, cfg.RateLimitRetention, logger)
	if err := sw.Start(ctx, cfg.SweepTokensCron, cfg.SweepRateLimitsCron); err != nil {
		logger.Error("sweeper", "error", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
