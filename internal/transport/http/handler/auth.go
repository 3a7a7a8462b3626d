package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/ErlanBelekov/magic-auth/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	RequestLogin(ctx context.Context, identity string) (*usecase.LoginResult, error)
	Redeem(ctx context.Context, rawToken string) (*usecase.Session, error)
	DevLogin(ctx context.Context, identity string) (*usecase.Session, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	authUsecase authUsecaser
	cookie      CookieConfig
	logger      *slog.Logger
	now         func() time.Time
}

func NewAuthHandler(authUsecase authUsecaser, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		cookie:      cookie,
		logger:      logger.With("component", "auth_handler"),
		now:         time.Now,
	}
}

type loginRequest struct {
	Identity string `json:"identity" binding:"required,identity"`
}

type loginResponse struct {
	Message   string `json:"message"`
	Delivered bool   `json:"delivered"`
	Link      string `json:"link,omitempty"`
}

type sessionResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        userResponse `json:"user"`
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidIdentity})
		return
	}

	res, err := h.authUsecase.RequestLogin(c.Request.Context(), req.Identity)
	if err != nil {
		writeError(c, h.logger, "request login", err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Message:   "Magic link sent",
		Delivered: res.Delivered,
		Link:      res.Link,
	})
}

// GET /auth/verify?token=<raw>
// Sets the session cookie and returns the token for non-browser clients.
func (h *AuthHandler) Verify(c *gin.Context) {
	sess, err := h.authUsecase.Redeem(c.Request.Context(), c.Query("token"))
	if err != nil {
		writeError(c, h.logger, "verify magic link", err)
		return
	}

	h.setSessionCookie(c, sess, h.cookie.Secure)
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

// GET /auth/dev-login?identity=<id>
// 404 in production. The cookie is never marked Secure so it works over
// plain http on localhost.
func (h *AuthHandler) DevLogin(c *gin.Context) {
	sess, err := h.authUsecase.DevLogin(c.Request.Context(), c.Query("identity"))
	if err != nil {
		writeError(c, h.logger, "dev login", err)
		return
	}

	h.setSessionCookie(c, sess, false)
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

// POST /auth/logout
// Sessions are stateless; logging out only clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, sess *usecase.Session, secure bool) {
	maxAge := int(sess.ExpiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, sess.Token, maxAge, "/", "", secure, true)
}

func newSessionResponse(sess *usecase.Session) sessionResponse {
	return sessionResponse{
		AccessToken: sess.Token,
		ExpiresAt:   sess.ExpiresAt,
		User:        newUserResponse(sess.User),
	}
}

type userResponse struct {
	ID          string    `json:"id"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Identity:    u.Identity,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
