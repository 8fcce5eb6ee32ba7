package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/mindmate/server/internal/auth"
	"github.com/mindmate/server/internal/chat"
	"github.com/mindmate/server/internal/model"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("encode response")
	}
}

// respondWithError sends the JSON error envelope
func respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]errorBody{"error": {Code: code, Message: message}})
}

type domainError struct {
	err     error
	status  int
	message string
	code    string
}

var domainErrors = []domainError{
	{model.ErrDuplicateEmail, http.StatusBadRequest, "Email already registered", ""},
	{model.ErrWeakPassword, http.StatusBadRequest, "Password must be at least 8 characters long, contain an uppercase letter, a lowercase letter, a number, and a special character.", ""},
	{model.ErrTokenExpired, http.StatusBadRequest, "Token expired", ""},
	{model.ErrTokenNotFound, http.StatusBadRequest, "Invalid or expired token", ""},
	{model.ErrTokenAlreadyUsed, http.StatusBadRequest, "Token already used", ""},
	{model.ErrEmailMismatch, http.StatusBadRequest, "Email mismatch", ""},
	{model.ErrAlreadyLinked, http.StatusBadRequest, "Google already linked to this account", ""},
	{model.ErrPasswordAlreadySet, http.StatusBadRequest, "Password already set", ""},
	{model.ErrFederatedEmailMissing, http.StatusBadRequest, "Google account has no email", ""},
	{model.ErrInvalidState, http.StatusBadRequest, "Invalid or expired OAuth state", ""},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials", ""},
	{model.ErrInvalidRefreshToken, http.StatusUnauthorized, "Invalid refresh token", ""},
	{model.ErrUnauthenticated, http.StatusUnauthorized, "Not authenticated", ""},
	{model.ErrUnverifiedAccount, http.StatusForbidden, "Please verify your email before logging in.", ""},
	{model.ErrForbidden, http.StatusForbidden, "You are not authorized to access this resource", ""},
	{model.ErrAccountNotFound, http.StatusNotFound, "User not found", ""},
	{model.ErrNotFound, http.StatusNotFound, "Not found", ""},
	{auth.ErrGoogleDisabled, http.StatusServiceUnavailable, "Google sign-in is not configured", "google_disabled"},
	{chat.ErrAssistantUnavailable, http.StatusServiceUnavailable, "The assistant is unavailable, please try again later", ""},
}

// writeDomainError maps service errors to the HTTP envelope. Unknown errors
// are logged and reported as 500 without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		respondWithError(w, http.StatusBadRequest, model.ErrValidation.Error(), verr.Error())
		return
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			code := d.code
			if code == "" {
				code = d.err.Error()
			}
			respondWithError(w, d.status, code, d.message)
			return
		}
	}
	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	respondWithError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, model.ErrValidation.Error(), fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for endpoints where the body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, model.ErrValidation.Error(), fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, model.ErrValidation.Error(), "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
