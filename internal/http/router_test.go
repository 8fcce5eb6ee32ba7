package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmate/server/internal/http/handlers"
	"github.com/mindmate/server/internal/middleware"
	"github.com/mindmate/server/internal/model"
)

type stubAuthAPI struct {
	handlers.AuthAPI
}

func (stubAuthAPI) ForgotPassword(context.Context, string) error { return nil }

func (stubAuthAPI) Login(context.Context, string, string) (model.TokenPair, error) {
	return model.TokenPair{}, model.ErrInvalidCredentials
}

type tokenResolver map[string]model.Account

func (t tokenResolver) ResolveAccessToken(_ context.Context, token string) (model.Account, error) {
	acc, ok := t[token]
	if !ok {
		return model.Account{}, model.ErrUnauthenticated
	}
	return acc, nil
}

func newTestRouter(t *testing.T) (http.Handler, model.Account) {
	t.Helper()
	acc := model.Account{ID: uuid.New(), Email: "a@x.com", IsActive: true, IsVerified: true}
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	r := NewRouter(Deps{
		Auth:                  handlers.NewAuthHandler(stubAuthAPI{}, metrics),
		Chat:                  handlers.NewChatHandler(nil),
		Mood:                  handlers.NewMoodHandler(nil),
		Journal:               handlers.NewJournalHandler(nil),
		Resolver:              tokenResolver{"good": acc},
		Logger:                zerolog.Nop(),
		Metrics:               metrics,
		Gatherer:              reg,
		AllowedOrigins:        []string{"http://localhost:5173"},
		EmailLimiter:          middleware.NewRateLimiter(time.Hour, 1),
		AuthRequestsPerMinute: 100,
	})
	return r, acc
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mindmate_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	r, acc := newTestRouter(t)

	for _, path := range []string{"/user/me", "/conversations", "/mood/latest", "/journal"} {
		rec := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), acc.Email)

	req = httptest.NewRequest(http.MethodPost, "/auth/set-password", strings.NewReader(`{}`))
	rec = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_EmailRateLimit(t *testing.T) {
	r, _ := newTestRouter(t)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", strings.NewReader(`{"email":"a@x.com"}`))
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRouter_LoginLimitIsPerClient(t *testing.T) {
	r, _ := newTestRouter(t)

	login := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"victim@x.com","password":"guess"}`))
		req.RemoteAddr = ip + ":40000"
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.2"), "another client keeps its own budget")
}

func TestRouter_CORS(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := serve(r, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = serve(r, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
