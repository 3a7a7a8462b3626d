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
	"github.com/ErlanBelekov/magic-auth/internal/email"
	"github.com/ErlanBelekov/magic-auth/internal/health"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/backend"
	ctxlog "github.com/ErlanBelekov/magic-auth/internal/log"
	"github.com/ErlanBelekov/magic-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-auth/internal/ratelimit"
	"github.com/ErlanBelekov/magic-auth/internal/sweeper"
	"github.com/ErlanBelekov/magic-auth/internal/token"
	httptransport "github.com/ErlanBelekov/magic-auth/internal/transport/http"
	"github.com/ErlanBelekov/magic-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/magic-auth/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	stores, err := backend.Open(ctx, cfg, logger, cfg.IsLocal())
	if err != nil {
		stop()
		log.Fatalf("stores: %v", err)
	}
	defer stores.Close()

	codec := token.NewCodec([]byte(cfg.JWTSecret))
	limiter := ratelimit.New(stores.Limits, logger)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	authUsecase := usecase.NewAuthUsecase(stores.Users, stores.Tokens, limiter, codec, sender, usecase.AuthConfig{
		Env:             cfg.Env,
		MagicLinkBase:   cfg.MagicLinkBase,
		MagicLinkTTL:    cfg.MagicLinkTTL,
		SessionTTL:      cfg.SessionTTL,
		RateLimitWindow: cfg.RateLimitWindow,
		RateLimitQuota:  cfg.RateLimitQuota,
	}, logger)

	authHandler := handler.NewAuthHandler(authUsecase, handler.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.IsProduction(),
	}, logger)

	router, err := httptransport.NewRouter(logger, httptransport.RouterConfig{
		CookieName:  cfg.CookieName,
		FrontendURL: cfg.FrontendURL,
		Production:  cfg.IsProduction(),
		DevLogin:    !cfg.IsProduction(),
	}, authHandler, handler.NewUserHandler(), authUsecase)
	if err != nil {
		stop()
		log.Fatalf("router: %v", err)
	}

	metrics.Register(prometheus.DefaultRegisterer)
	checker := health.NewChecker(stores.Pingers, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	// In-memory stores are invisible to cmd/sweeper.
	if cfg.StoreBackend == "memory" {
		sw := sweeper.New(stores.Tokens, stores.Limits, cfg.RateLimitRetention, logger)
		go func() {
			if err := sw.Start(ctx, cfg.SweepTokensCron, cfg.SweepRateLimitsCron); err != nil {
				logger.Error("sweeper", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
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
