package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/mindmate/server/internal/auth"
	"github.com/mindmate/server/internal/model"
)

type googleSessionResponse struct {
	tokenResponse
	Email     string  `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type linkRequiredResponse struct {
	Detail          string `json:"detail"`
	RequiresLinking bool   `json:"requires_linking"`
	Email           string `json:"email"`
	AccessToken     string `json:"access_token"`
}

// HandleGoogleLogin handles GET /auth/google-login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.authService.GoogleAuthURL()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"auth_url": url})
}

// HandleGoogleCallback handles GET /auth/google/callback?code=&state=
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.authService.GoogleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if h.track("google_callback", err) != nil {
		if isDomainError(err) {
			writeDomainError(w, r, err)
			return
		}
		hlog.FromRequest(r).Warn().Err(err).Msg("google callback failed")
		respondWithError(w, http.StatusBadRequest, "oauth_failed", "Failed to get access token from Google")
		return
	}

	if res.LinkRequired {
		writeJSON(w, r, http.StatusOK, linkRequiredResponse{
			Detail:          "Account exists. Do you want to link your Google account?",
			RequiresLinking: true,
			Email:           res.Email,
			AccessToken:     res.ProviderAccessToken,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, googleSessionResponse{
		tokenResponse: newTokenResponse(*res.Tokens),
		Email:         res.Email,
		FirstName:     res.FirstName,
		LastName:      res.LastName,
	})
}

// linkGoogleRequest is the request body for POST /auth/link-google
type linkGoogleRequest struct {
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

type linkGoogleResponse struct {
	Message string `json:"message"`
	tokenResponse
}

// HandleLinkGoogle handles POST /auth/link-google
func (h *AuthHandler) HandleLinkGoogle(w http.ResponseWriter, r *http.Request) {
	var req linkGoogleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.AccessToken) == "" {
		writeDomainError(w, r, model.Invalid("access_token", "email and access_token are required"))
		return
	}
	pair, err := h.authService.LinkGoogle(r.Context(), req.Email, req.AccessToken)
	if h.track("link_google", err) != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, linkGoogleResponse{
		Message:       "Google account linked successfully",
		tokenResponse: newTokenResponse(pair),
	})
}

func isDomainError(err error) bool {
	if errors.Is(err, model.ErrValidation) || errors.Is(err, auth.ErrGoogleDisabled) {
		return true
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return true
		}
	}
	return false
}
