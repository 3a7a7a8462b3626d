package httptransport_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ErlanBelekov/magic-auth/internal/email"
	"github.com/ErlanBelekov/magic-auth/internal/infrastructure/memory"
	"github.com/ErlanBelekov/magic-auth/internal/ratelimit"
	"github.com/ErlanBelekov/magic-auth/internal/token"
	httptransport "github.com/ErlanBelekov/magic-auth/internal/transport/http"
	"github.com/ErlanBelekov/magic-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/magic-auth/internal/usecase"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, env string) *gin.Engine {
	t.Helper()
	logger := slog.Default()

	uc := usecase.NewAuthUsecase(
		memory.NewUserRepository(),
		memory.NewTokenStore(),
		ratelimit.New(memory.NewRateLimitStore(), logger),
		token.NewCodec([]byte("router-test-secret-at-least-32-chars")),
		email.NewLogSender(logger),
		usecase.AuthConfig{Env: env, MagicLinkBase: "http://localhost:8080"},
		logger,
	)

	r, err := httptransport.NewRouter(logger, httptransport.RouterConfig{
		CookieName:  "session",
		FrontendURL: "http://localhost:3000",
		Production:  env == "production",
		DevLogin:    env != "production",
	}, handler.NewAuthHandler(uc, handler.CookieConfig{Name: "session"}, logger), handler.NewUserHandler(), uc)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return r
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFlow_LoginVerifyMe(t *testing.T) {
	r := newTestServer(t, "local")

	w := do(r, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"identity":"alice@example.com"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil || login.Link == "" {
		t.Fatalf("login body = %s", w.Body.String())
	}
	u, err := url.Parse(login.Link)
	if err != nil {
		t.Fatal(err)
	}

	w = do(r, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", w.Code, w.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie")
	}

	// Second use of the same link fails.
	if w := do(r, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("second verify status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(cookie)
	w = do(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"identity":"alice@example.com"`) {
		t.Errorf("me body = %s", w.Body.String())
	}
}

func TestMe_WithoutSession_Returns401(t *testing.T) {
	r := newTestServer(t, "local")

	if w := do(r, httptest.NewRequest(http.MethodGet, "/users/me", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestDevLogin_NotRoutedInProduction(t *testing.T) {
	r := newTestServer(t, "production")

	w := do(r, httptest.NewRequest(http.MethodGet, "/auth/dev-login?identity=alice", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDevLogin_BearerAccess(t *testing.T) {
	r := newTestServer(t, "local")

	w := do(r, httptest.NewRequest(http.MethodGet, "/auth/dev-login?identity=bob-dev", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("dev login status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	if w := do(r, req); w.Code != http.StatusOK {
		t.Errorf("me with bearer status = %d", w.Code)
	}
}

func TestLogin_FourthRequestReturns429(t *testing.T) {
	r := newTestServer(t, "local")

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = do(r, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"identity":"carol"}`)))
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("4th login status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestUnmatchedRoute_HasSecurityHeaders(t *testing.T) {
	r := newTestServer(t, "local")

	w := do(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id missing")
	}
}
