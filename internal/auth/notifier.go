package auth

import "context"

// Notifier delivers one-time tokens out of band
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// FederatedProfile is what the identity provider tells us about the user.
type FederatedProfile struct {
	Email      string
	GivenName  string
	FamilyName string
}

// IdentityProvider defines the OAuth operations used for Google sign-in
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (accessToken string, err error)
	Profile(ctx context.Context, accessToken string) (FederatedProfile, error)
}
