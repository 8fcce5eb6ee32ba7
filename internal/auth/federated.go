package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mindmate/server/internal/model"
)

// ErrGoogleDisabled is returned when Google sign-in has no client configured.
var ErrGoogleDisabled = errors.New("google sign-in is not configured")

// GoogleResult is the outcome of the OAuth callback. Either Tokens is set, or
// LinkRequired is true and the caller must confirm via LinkGoogle.
type GoogleResult struct {
	Tokens              *model.TokenPair
	LinkRequired        bool
	Email               string
	FirstName           *string
	LastName            *string
	ProviderAccessToken string
}

// GoogleAuthURL returns the consent URL with a signed state parameter.
func (s *AuthService) GoogleAuthURL() (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	state, err := s.jwtService.SignState()
	if err != nil {
		return "", err
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback exchanges the authorization code and reconciles the Google
// identity with local accounts. An existing account that was never linked is
// not linked silently.
func (s *AuthService) GoogleCallback(ctx context.Context, code, state string) (GoogleResult, error) {
	if s.google == nil {
		return GoogleResult{}, ErrGoogleDisabled
	}
	if _, err := s.jwtService.VerifyToken(state, TokenOAuthState); err != nil {
		return GoogleResult{}, fmt.Errorf("%w: %v", model.ErrInvalidState, err)
	}
	if strings.TrimSpace(code) == "" {
		return GoogleResult{}, model.Invalid("code", "is required")
	}

	accessToken, err := s.google.Exchange(ctx, code)
	if err != nil {
		return GoogleResult{}, fmt.Errorf("exchange code: %w", err)
	}
	profile, err := s.google.Profile(ctx, accessToken)
	if err != nil {
		return GoogleResult{}, fmt.Errorf("fetch profile: %w", err)
	}
	email := NormalizeEmail(profile.Email)
	if email == "" {
		return GoogleResult{}, model.ErrFederatedEmailMissing
	}

	acc, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrAccountNotFound) {
		acc, err = s.userRepo.Create(ctx, model.NewAccount{
			Email:          email,
			IsVerified:     true,
			AuthProvider:   model.ProviderGoogle,
			IsGoogleLinked: true,
			FirstName:      trimmedOrNil(&profile.GivenName),
			LastName:       trimmedOrNil(&profile.FamilyName),
		})
		if errors.Is(err, model.ErrDuplicateEmail) {
			// A concurrent callback or register created it first.
			acc, err = s.userRepo.GetByEmail(ctx, email)
		}
	}
	switch {
	case err != nil:
		return GoogleResult{}, fmt.Errorf("lookup account: %w", err)
	case !acc.IsGoogleLinked:
		return GoogleResult{
			LinkRequired:        true,
			Email:               acc.Email,
			ProviderAccessToken: accessToken,
		}, nil
	}

	pair, err := s.issueSession(ctx, acc)
	if err != nil {
		return GoogleResult{}, err
	}
	return GoogleResult{Tokens: &pair, Email: acc.Email, FirstName: acc.FirstName, LastName: acc.LastName}, nil
}

// LinkGoogle confirms linking a Google identity to an existing account. The
// provider token is re-validated and must resolve to the same email.
func (s *AuthService) LinkGoogle(ctx context.Context, email, providerAccessToken string) (model.TokenPair, error) {
	if s.google == nil {
		return model.TokenPair{}, ErrGoogleDisabled
	}
	email = NormalizeEmail(email)
	profile, err := s.google.Profile(ctx, providerAccessToken)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}
	if NormalizeEmail(profile.Email) != email {
		return model.TokenPair{}, model.ErrEmailMismatch
	}

	acc, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return model.TokenPair{}, err
	}
	if acc.IsGoogleLinked {
		return model.TokenPair{}, model.ErrAlreadyLinked
	}

	pair, err := s.jwtService.IssuePair(acc.Email)
	if err != nil {
		return model.TokenPair{}, err
	}
	ok, err := s.userRepo.LinkGoogle(ctx, acc.ID,
		trimmedOrNil(&profile.GivenName), trimmedOrNil(&profile.FamilyName),
		HashToken(pair.RefreshToken))
	if err != nil {
		return model.TokenPair{}, err
	}
	if !ok {
		return model.TokenPair{}, model.ErrAlreadyLinked
	}
	return pair, nil
}
