package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/magic-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/magic-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterConfig struct {
	CookieName  string
	FrontendURL string
	Production  bool
	DevLogin    bool
}

func NewRouter(logger *slog.Logger, cfg RouterConfig, authHandler *handler.AuthHandler, userHandler *handler.UserHandler, auth middleware.Authenticator) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cfg.Production))
	// Verify URLs carry the raw magic-link token in the query string.
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    false,
		Filters:       []sloggin.Filter{sloggin.IgnorePath("/auth/verify")},
	}))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendURL))

	// Public auth routes
	authGroup := r.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/verify", authHandler.Verify)
	authGroup.POST("/logout", authHandler.Logout)
	if cfg.DevLogin {
		authGroup.GET("/dev-login", authHandler.DevLogin)
	}

	// Protected user routes
	users := r.Group("/users", middleware.Auth(auth, cfg.CookieName))
	users.GET("/me", userHandler.Me)

	return r, nil
}
