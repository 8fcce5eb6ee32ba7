package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/mindmate/server/internal/auth"
	"github.com/mindmate/server/internal/middleware"
	"github.com/mindmate/server/internal/model"
)

// AuthAPI is the part of auth.AuthService the HTTP layer needs.
type AuthAPI interface {
	Register(ctx context.Context, in auth.RegisterInput) (model.Account, error)
	Login(ctx context.Context, email, password string) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SetPassword(ctx context.Context, acc model.Account, newPassword string) error
	ChangePassword(ctx context.Context, acc model.Account, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, acc model.Account, patch model.AccountPatch) (model.Account, error)
	GoogleAuthURL() (string, error)
	GoogleCallback(ctx context.Context, code, state string) (auth.GoogleResult, error)
	LinkGoogle(ctx context.Context, email, providerAccessToken string) (model.TokenPair, error)
}

var _ AuthAPI = (*auth.AuthService)(nil)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService AuthAPI
	metrics     *middleware.Metrics
}

// NewAuthHandler creates a new auth handler. metrics may be nil.
func NewAuthHandler(authService AuthAPI, metrics *middleware.Metrics) *AuthHandler {
	return &AuthHandler{authService: authService, metrics: metrics}
}

// track counts the outcome of an auth event and passes err through.
func (h *AuthHandler) track(event string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.metrics.AuthEvent(event, outcome)
	return err
}

// registerRequest is the request body for POST /auth/register
type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if h.track("register", err) != nil {
		writeDomainError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("email", auth.MaskEmail(auth.NormalizeEmail(req.Email))).Msg("account registered")
	writeJSON(w, r, http.StatusCreated, messageResponse{
		Message: "User created! Please check your email for verification link.",
	})
}

// loginRequest is the request body for POST /auth/login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the JSON response for login and refresh
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(p model.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: "bearer"}
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		writeDomainError(w, r, model.Invalid("email", "email and password are required"))
		return
	}
	pair, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if h.track("login", err) != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTokenResponse(pair))
}

// refreshRequest is the request body for POST /auth/refresh and /auth/logout
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) decodeRefresh(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		writeDomainError(w, r, model.Invalid("refresh_token", "is required"))
		return "", false
	}
	return req.RefreshToken, true
}

// HandleRefresh handles POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := h.decodeRefresh(w, r)
	if !ok {
		return
	}
	pair, err := h.authService.Refresh(r.Context(), token)
	if h.track("refresh", err) != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTokenResponse(pair))
}

// HandleLogout handles POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.decodeRefresh(w, r)
	if !ok {
		return
	}
	if err := h.track("logout", h.authService.Logout(r.Context(), token)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// HandleVerifyEmail handles GET /auth/verify-email?token=
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeDomainError(w, r, model.Invalid("token", "is required"))
		return
	}
	if err := h.track("verify_email", h.authService.VerifyEmail(r.Context(), token)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Email verified successfully! You can now log in."})
}

// emailRequest is the request body for forgot-password and resend-verification
type emailRequest struct {
	Email string `json:"email"`
}

// HandleResendVerification handles POST /auth/resend-verification
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ResendVerification(r.Context(), req.Email); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{
		Message: "If an account exists and is not yet verified, a new verification link was sent.",
	})
}

// HandleForgotPassword handles POST /auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{
		Message: "If an account exists and is verified, a password reset link was sent.",
	})
}

// resetPasswordRequest is the request body for POST /auth/reset-password
type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleResetPassword handles POST /auth/reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.track("reset_password", h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Password has been reset successfully!"})
}

// setPasswordRequest is the request body for POST /auth/set-password
type setPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// HandleSetPassword handles POST /auth/set-password (protected)
func (h *AuthHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := middleware.GetAccount(r.Context())
	if !ok {
		writeDomainError(w, r, model.ErrUnauthenticated)
		return
	}
	var req setPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.SetPassword(r.Context(), *acc, req.NewPassword); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{
		Message: "Password set successfully. You can now log in with email/password.",
	})
}

// changePasswordRequest is the request body for POST /auth/change-password
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword handles POST /auth/change-password (protected)
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := middleware.GetAccount(r.Context())
	if !ok {
		writeDomainError(w, r, model.ErrUnauthenticated)
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ChangePassword(r.Context(), *acc, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}
