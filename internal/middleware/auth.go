package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/mindmate/server/internal/model"
)

type contextKey string

const (
	accountKey contextKey = "account"
	userIDKey  contextKey = "user_id"
)

// AccountResolver turns a bearer token into an account.
type AccountResolver interface {
	ResolveAccessToken(ctx context.Context, accessToken string) (model.Account, error)
}

// AuthMiddleware validates the bearer token, loads the account and attaches it to the context
func AuthMiddleware(resolver AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing token")
				return
			}

			acc, err := resolver.ResolveAccessToken(r.Context(), tokenString)
			switch {
			case err == nil:
			case errors.Is(err, model.ErrTokenExpired):
				respondWithError(w, http.StatusUnauthorized, "token_expired", "token has expired")
				return
			case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, model.ErrAccountNotFound):
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			default:
				hlog.FromRequest(r).Error().Err(err).Msg("resolve access token")
				respondWithError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
			if !acc.IsActive {
				respondWithError(w, http.StatusForbidden, "forbidden", "account is disabled")
				return
			}

			ctx := WithAccount(r.Context(), acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAccount stores the authenticated account in ctx.
func WithAccount(ctx context.Context, acc model.Account) context.Context {
	ctx = context.WithValue(ctx, accountKey, &acc)
	return context.WithValue(ctx, userIDKey, acc.ID)
}

// GetAccount returns the account attached to the request context (set by AuthMiddleware)
func GetAccount(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey).(*model.Account)
	return a, ok && a != nil
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondWithError sends the JSON error envelope
func respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]errorBody{"error": {Code: code, Message: message}})
}
