package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        string `env:"PORT,default=8080"`
	Env         string `env:"ENV,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// PublicURL is where this API is reachable; used to build email links.
	PublicURL   string `env:"PUBLIC_URL,default=http://localhost:8080"`
	FrontendURL string `env:"FRONTEND_URL,default=http://localhost:5173"`

	JWTSecret       string        `env:"JWT_SECRET,required"`
	JWTAlgorithm    string        `env:"JWT_ALGORITHM,default=HS256"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,default=30m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`

	Mail   MailConfig   `env:", prefix=MAIL_"`
	Google GoogleConfig `env:", prefix=GOOGLE_"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL,default=gpt-4o"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// ChatEncryptionKey is an age X25519 identity (AGE-SECRET-KEY-1...).
	ChatEncryptionKey string `env:"CHAT_ENCRYPTION_KEY,required"`
	DisplayTimezone   string `env:"DISPLAY_TIMEZONE,default=Asia/Kolkata"`
	// PDFFontPath is a UTF-8 TrueType font for transcript exports.
	PDFFontPath       string `env:"PDF_FONT_PATH"`

	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OutboundTimeout time.Duration `env:"OUTBOUND_TIMEOUT,default=20s"`
}

// MailConfig is the outbound SMTP account.
type MailConfig struct {
	Server   string `env:"SERVER"`
	Port     int    `env:"PORT,default=587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
	FromName string `env:"FROM_NAME,default=MindMate"`
	TLSMode  string `env:"TLS_MODE,default=starttls"`
}

// GoogleConfig is the OAuth client used for Google sign-in.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURI != ""
}

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
}

// Load reads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), defaultOrigins...)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		host := u.Hostname()
		if host == "" {
			host = "localhost"
		}
		port := u.Port()
		if port == "" {
			port = "5432"
		}
		user := u.User.Username()
		if user == "" {
			user = "(none)"
		}
		log.Info().
			Str("host", host).
			Str("port", port).
			Str("db", strings.TrimPrefix(u.Path, "/")).
			Str("user", user).
			Msg("db connect target")
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToUpper(c.JWTAlgorithm) {
	case "HS256", "HS384", "HS512":
		c.JWTAlgorithm = strings.ToUpper(c.JWTAlgorithm)
	default:
		return fmt.Errorf("JWT_ALGORITHM %q is not supported (use HS256, HS384 or HS512)", c.JWTAlgorithm)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive")
	}
	if c.OutboundTimeout <= 0 {
		return fmt.Errorf("OUTBOUND_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DisplayLocation returns the time zone used for human-facing timestamps.
func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
