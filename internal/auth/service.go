package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mindmate/server/internal/model"
	"github.com/mindmate/server/internal/repo"
)

// AuthService orchestrates authentication operations
type AuthService struct {
	jwtService *JWTService
	userRepo   repo.UserRepo
	tokens     *OneTimeTokens
	notifier   Notifier
	google     IdentityProvider
}

// NewAuthService creates a new auth service. google may be nil when Google
// sign-in is not configured.
func NewAuthService(
	jwtService *JWTService,
	userRepo repo.UserRepo,
	tokens *OneTimeTokens,
	notifier Notifier,
	google IdentityProvider,
) *AuthService {
	return &AuthService{
		jwtService: jwtService,
		userRepo:   userRepo,
		tokens:     tokens,
		notifier:   notifier,
		google:     google,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.Invalid("email", "must be a valid email address")
	}
	return nil
}

// RegisterInput is the payload for Register
type RegisterInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Register creates an unverified local account and mails a verification link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	email := NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return model.Account{}, err
	}
	if err := CheckPasswordPolicy(in.Password); err != nil {
		return model.Account{}, err
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return model.Account{}, model.ErrDuplicateEmail
	case !errors.Is(err, model.ErrAccountNotFound):
		return model.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return model.Account{}, err
	}

	acc, err := s.userRepo.Create(ctx, model.NewAccount{
		Email:        email,
		PasswordHash: &hash,
		AuthProvider: model.ProviderLocal,
		FirstName:    trimmedOrNil(in.FirstName),
		LastName:     trimmedOrNil(in.LastName),
	})
	if err != nil {
		// ErrDuplicateEmail passes through when a concurrent register won the race
		return model.Account{}, err
	}

	s.sendVerification(ctx, acc)
	return acc, nil
}

// ResendVerification mails a fresh verification link to an unverified account.
// The outcome is not revealed to the caller.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	acc, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, model.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if !acc.IsVerified {
		s.sendVerification(ctx, acc)
	}
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, acc model.Account) {
	logger := zerolog.Ctx(ctx)
	token, err := s.tokens.Issue(ctx, acc.ID, model.PurposeEmailVerification)
	if err != nil {
		logger.Error().Err(err).Str("user_id", acc.ID.String()).Msg("issue verification token")
		return
	}
	if err := s.notifier.SendVerification(ctx, acc.Email, token); err != nil {
		logger.Error().Err(err).Str("email", MaskEmail(acc.Email)).Msg("send verification email")
	}
}

// Authenticate checks an email/password pair. A wrong password, unknown email
// or an account without a password are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (model.Account, error) {
	acc, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.Account{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	if !acc.HasPassword() {
		return model.Account{}, model.ErrInvalidCredentials
	}
	if err := ComparePassword(*acc.PasswordHash, password); err != nil {
		return model.Account{}, err
	}
	if !acc.IsVerified {
		return model.Account{}, model.ErrUnverifiedAccount
	}
	return acc, nil
}

// Login authenticates and starts a new session, replacing any previous refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	acc, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return model.TokenPair{}, err
	}
	return s.issueSession(ctx, acc)
}

func (s *AuthService) issueSession(ctx context.Context, acc model.Account) (model.TokenPair, error) {
	pair, err := s.jwtService.IssuePair(acc.Email)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := s.userRepo.SetRefreshTokenHash(ctx, acc.ID, HashToken(pair.RefreshToken)); err != nil {
		return model.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// resolveRefresh verifies a refresh token and checks it is the stored one.
func (s *AuthService) resolveRefresh(ctx context.Context, refreshToken string) (model.Account, string, error) {
	claims, err := s.jwtService.VerifyToken(refreshToken, TokenRefresh)
	if err != nil {
		return model.Account{}, "", fmt.Errorf("%w: %v", model.ErrInvalidRefreshToken, err)
	}
	acc, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.Account{}, "", model.ErrInvalidRefreshToken
	}
	if err != nil {
		return model.Account{}, "", fmt.Errorf("lookup account: %w", err)
	}
	presented := HashToken(refreshToken)
	if acc.RefreshTokenHash == nil || *acc.RefreshTokenHash != presented {
		return model.Account{}, "", model.ErrInvalidRefreshToken
	}
	return acc, presented, nil
}

// Refresh exchanges the current refresh token for a new pair. The swap is a
// compare-and-set, so two concurrent refreshes with one token yield one winner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	acc, presented, err := s.resolveRefresh(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	pair, err := s.jwtService.IssuePair(acc.Email)
	if err != nil {
		return model.TokenPair{}, err
	}
	ok, err := s.userRepo.RotateRefreshTokenHash(ctx, acc.ID, presented, HashToken(pair.RefreshToken))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !ok {
		return model.TokenPair{}, model.ErrInvalidRefreshToken
	}
	return pair, nil
}

// Logout clears the stored refresh token if it matches.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	acc, presented, err := s.resolveRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	ok, err := s.userRepo.ClearRefreshTokenHash(ctx, acc.ID, presented)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if !ok {
		return model.ErrInvalidRefreshToken
	}
	return nil
}

// ResolveAccessToken verifies a bearer token and loads its account.
func (s *AuthService) ResolveAccessToken(ctx context.Context, accessToken string) (model.Account, error) {
	claims, err := s.jwtService.VerifyToken(accessToken, TokenAccess)
	if err != nil {
		return model.Account{}, err
	}
	acc, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// VerifyEmail consumes an email-verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if _, err := s.tokens.ConsumeEmailVerification(ctx, strings.TrimSpace(token)); err != nil {
		return err
	}
	return nil
}

// ForgotPassword mails a reset link to a verified account. It reports success
// whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	acc, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, model.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if !acc.IsVerified {
		return nil
	}

	logger := zerolog.Ctx(ctx)
	token, err := s.tokens.Issue(ctx, acc.ID, model.PurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.notifier.SendPasswordReset(ctx, acc.Email, token); err != nil {
		logger.Error().Err(err).Str("email", MaskEmail(acc.Email)).Msg("send password reset email")
	}
	return nil
}

// ResetPassword sets a new password using a reset token. The token is consumed
// and the password written in one transaction.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := CheckPasswordPolicy(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.tokens.ConsumePasswordReset(ctx, strings.TrimSpace(token), hash); err != nil {
		return err
	}
	return nil
}

// SetPassword adds a local password to a verified account that has none,
// typically one created through Google sign-in.
func (s *AuthService) SetPassword(ctx context.Context, acc model.Account, newPassword string) error {
	if err := CheckPasswordPolicy(newPassword); err != nil {
		return err
	}
	if !acc.IsVerified {
		return model.ErrUnverifiedAccount
	}
	if acc.HasPassword() {
		return model.ErrPasswordAlreadySet
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.userRepo.SetPasswordIfUnset(ctx, acc.ID, hash)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPasswordAlreadySet
	}
	return nil
}

// ChangePassword replaces the password after checking the current one. The
// current session's refresh token is revoked.
func (s *AuthService) ChangePassword(ctx context.Context, acc model.Account, currentPassword, newPassword string) error {
	if !acc.HasPassword() {
		return model.ErrInvalidCredentials
	}
	if err := ComparePassword(*acc.PasswordHash, currentPassword); err != nil {
		return err
	}
	if err := CheckPasswordPolicy(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePasswordHash(ctx, acc.ID, hash)
}

// UpdateProfile applies a partial update of the display names.
func (s *AuthService) UpdateProfile(ctx context.Context, acc model.Account, patch model.AccountPatch) (model.Account, error) {
	patch.FirstName = trimmedOrNil(patch.FirstName)
	patch.LastName = trimmedOrNil(patch.LastName)
	if patch.FirstName == nil && patch.LastName == nil {
		return acc, nil
	}
	return s.userRepo.UpdateProfile(ctx, acc.ID, patch)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// MaskEmail masks an email for logging (e.g., an***@example.com)
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "****"
	}
	local := email[:at]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + email[at:]
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + email[at:]
}
