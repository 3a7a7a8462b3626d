package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer  = "Internal server error"
	errTokenInvalid    = "Token is invalid or expired"
	errTooManyRequests = "Too many login requests. Try again later."
	errUnavailable     = "Service temporarily unavailable"
	errDeliveryFailed  = "Could not send the sign-in link"
	errInvalidIdentity = "Identity must be an email address or a user id"
	errUnauthorized    = "Unauthorized"
	errNotFound        = "Not found"
)

// writeError maps a usecase error onto a status and a client-safe body.
// Internal reasons never reach the client.
func writeError(c *gin.Context, logger *slog.Logger, op string, err error) {
	ctx := c.Request.Context()

	var rl *domain.RateLimitedError
	switch {
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(rl.RetryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message":           errTooManyRequests,
			"retryAfterSeconds": rl.RetryAfterSeconds,
		})
	case errors.Is(err, domain.ErrInvalidCredentialFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidIdentity})
	case errors.Is(err, domain.ErrSystemUnavailable):
		logger.ErrorContext(ctx, op, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errUnavailable})
	case errors.Is(err, domain.ErrUnauthenticated):
		logger.InfoContext(ctx, op, "reason", domain.Reason(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
	case errors.Is(err, domain.ErrDevLoginDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
	case errors.Is(err, domain.ErrDeliveryFailed):
		logger.ErrorContext(ctx, op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errDeliveryFailed})
	default:
		logger.ErrorContext(ctx, op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
