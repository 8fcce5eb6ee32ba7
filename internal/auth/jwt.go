package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
)

// TokenType separates access, refresh and OAuth state tokens signed with the same key.
type TokenType string

const (
	TokenAccess     TokenType = "access"
	TokenRefresh    TokenType = "refresh"
	TokenOAuthState TokenType = "oauth_state"

	oauthStateExpiry = 5 * time.Minute
)

// JWTClaims represents the JWT token claims. Subject is the account email.
type JWTClaims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service. algorithm is one of HS256, HS384, HS512.
func NewJWTService(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(algorithm) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &JWTService{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source. Intended for tests.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// IssuePair mints an access token and a refresh token for the subject.
func (s *JWTService) IssuePair(email string) (model.TokenPair, error) {
	access, accessExp, err := s.sign(email, TokenAccess, s.accessTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, _, err := s.sign(email, TokenRefresh, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return model.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
	}, nil
}

// SignState creates a short-lived token binding an OAuth round trip.
func (s *JWTService) SignState() (string, error) {
	token, _, err := s.sign(uuid.NewString(), TokenOAuthState, oauthStateExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return token, nil
}

func (s *JWTService) sign(subject string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := jwt.NewNumericDate(now.Add(ttl))
	claims := &JWTClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(s.method, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, exp.Time, nil
}

// VerifyToken checks signature, type and expiry in one place.
// Bad signature, malformed input, a missing subject or the wrong type yield
// ErrUnauthenticated; now >= exp yields ErrTokenExpired.
func (s *JWTService) VerifyToken(tokenString string, want TokenType) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{s.method.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, model.ErrUnauthenticated
	}
	if claims.Subject == "" || claims.Type != want {
		return nil, model.ErrUnauthenticated
	}
	if claims.ExpiresAt == nil {
		return nil, model.ErrUnauthenticated
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, model.ErrTokenExpired
	}
	return claims, nil
}

