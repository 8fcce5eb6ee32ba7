// Package oauth implements Google sign-in on top of golang.org/x/oauth2.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/mindmate/server/internal/auth"
	"github.com/mindmate/server/internal/config"
)

var scopes = []string{"openid", "email", "profile"}

// Google implements auth.IdentityProvider.
type Google struct {
	conf     *oauth2.Config
	client   *http.Client
	endpoint string
}

var _ auth.IdentityProvider = (*Google)(nil)

// NewGoogle builds the provider from GOOGLE_* settings. timeout bounds each
// call to Google.
func NewGoogle(cfg config.GoogleConfig, timeout time.Duration) *Google {
	return &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
		},
		client: &http.Client{Timeout: timeout},
	}
}

// AuthCodeURL returns the consent page URL.
func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a Google access token.
func (g *Google) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("google token exchange: empty access token")
	}
	return tok.AccessToken, nil
}

// Profile calls the userinfo endpoint. An unverified Google email is
// reported as missing.
func (g *Google) Profile(ctx context.Context, accessToken string) (auth.FederatedProfile, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{
		option.WithHTTPClient(&http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: g.client.Transport},
			Timeout:   g.client.Timeout,
		}),
	}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		return auth.FederatedProfile{}, fmt.Errorf("google userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return auth.FederatedProfile{}, fmt.Errorf("google userinfo: %w", err)
	}

	p := auth.FederatedProfile{GivenName: info.GivenName, FamilyName: info.FamilyName}
	if info.VerifiedEmail == nil || *info.VerifiedEmail {
		p.Email = info.Email
	}
	return p, nil
}
