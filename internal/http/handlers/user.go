package handlers

import (
	"net/http"

	"github.com/mindmate/server/internal/middleware"
	"github.com/mindmate/server/internal/model"
)

type profileResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	IsVerified     bool    `json:"is_verified"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	AuthProvider   string  `json:"auth_provider"`
	IsGoogleLinked bool    `json:"is_google_linked"`
	HasPassword    bool    `json:"has_password"`
}

func newProfileResponse(a model.Account) profileResponse {
	return profileResponse{
		ID:             a.ID.String(),
		Email:          a.Email,
		IsVerified:     a.IsVerified,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		AuthProvider:   string(a.AuthProvider),
		IsGoogleLinked: a.IsGoogleLinked,
		HasPassword:    a.HasPassword(),
	}
}

// HandleMe handles GET /user/me (protected). Returns the authenticated user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := middleware.GetAccount(r.Context())
	if !ok {
		writeDomainError(w, r, model.ErrUnauthenticated)
		return
	}
	writeJSON(w, r, http.StatusOK, newProfileResponse(*acc))
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// HandleUpdateMe handles PATCH /user/me (protected)
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := middleware.GetAccount(r.Context())
	if !ok {
		writeDomainError(w, r, model.ErrUnauthenticated)
		return
	}
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.authService.UpdateProfile(r.Context(), *acc, model.AccountPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newProfileResponse(updated))
}
