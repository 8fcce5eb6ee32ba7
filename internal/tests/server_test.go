package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mindmate/server/internal/auth"
	"github.com/mindmate/server/internal/chat"
	"github.com/mindmate/server/internal/chatcrypt"
	"github.com/mindmate/server/internal/db"
	httphandler "github.com/mindmate/server/internal/http"
	"github.com/mindmate/server/internal/http/handlers"
	"github.com/mindmate/server/internal/middleware"
	"github.com/mindmate/server/internal/repo"
	"github.com/mindmate/server/internal/wellness"
)

const testJWTSecret = "test-jwt-secret-at-least-32-characters-long"

// testServer holds the server and DB for integration tests
type testServer struct {
	Server *httptest.Server
	DB     *sql.DB
	Outbox *Outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	database, err := db.Open(ctx, databaseURL)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, RunMigrations(ctx, database), "migrations must run successfully")
	require.NoError(t, TruncateAll(ctx, database))

	userRepo := repo.NewUserRepo(database)
	jwtService, err := auth.NewJWTService(testJWTSecret, "HS256", 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	outbox := NewOutbox()
	authService := auth.NewAuthService(jwtService, userRepo,
		auth.NewOneTimeTokens(repo.NewOneTimeTokenRepo(database)), outbox, nil)

	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	cipher, err := chatcrypt.New(identity.String())
	require.NoError(t, err)
	chatService := chat.NewService(repo.NewConversationRepo(database), repo.NewMessageRepo(database),
		cipher, EchoAssistant{}, time.UTC, 5*time.Second)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	router := httphandler.NewRouter(httphandler.Deps{
		Auth:                  handlers.NewAuthHandler(authService, metrics),
		Chat:                  handlers.NewChatHandler(chatService),
		Mood:                  handlers.NewMoodHandler(wellness.NewMoodService(repo.NewMoodRepo(database))),
		Journal:               handlers.NewJournalHandler(wellness.NewJournalService(repo.NewJournalRepo(database))),
		Resolver:              authService,
		DB:                    database,
		Logger:                zerolog.Nop(),
		Metrics:               metrics,
		Gatherer:              reg,
		AllowedOrigins:        []string{"http://localhost:5173"},
		EmailLimiter:          middleware.NewRateLimiter(time.Hour, 50),
		AuthRequestsPerMinute: 1000,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, DB: database, Outbox: outbox}
}

// call sends a JSON request and decodes the JSON response into out (when non-nil).
func (s *testServer) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	status, err := s.do(method, path, token, body, out)
	require.NoError(t, err)
	return status
}

// do is call without assertions, safe to use from spawned goroutines.
func (s *testServer) do(method, path, token string, body any, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Server.Client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return 0, fmt.Errorf("decode %s: %w", raw, err)
		}
	}
	return resp.StatusCode, nil
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type envelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// signUp registers, verifies and logs in an account.
func (s *testServer) signUp(t *testing.T, email, password string) tokens {
	t.Helper()
	require.Equal(t, http.StatusCreated, s.call(t, http.MethodPost, "/auth/register", "",
		map[string]string{"email": email, "password": password}, nil))
	verify := s.Outbox.Token("verify", email)
	require.NotEmpty(t, verify)
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/auth/verify-email?token="+verify, "", nil, nil))

	var tok tokens
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": email, "password": password}, &tok))
	return tok
}
