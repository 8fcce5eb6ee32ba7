package http

import (
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/mindmate/server/internal/http/handlers"
	"github.com/mindmate/server/internal/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	Auth    *handlers.AuthHandler
	Chat    *handlers.ChatHandler
	Mood    *handlers.MoodHandler
	Journal *handlers.JournalHandler

	Resolver middleware.AccountResolver
	DB       handlers.Pinger

	Logger   zerolog.Logger
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer

	AllowedOrigins []string
	// EmailLimiter throttles email-sending endpoints per address and login
	// per client IP and address.
	EmailLimiter *middleware.RateLimiter
	// AuthRequestsPerMinute is the per-IP budget for /auth.
	AuthRequestsPerMinute int
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(d.Logger))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(func(r *nethttp.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("req_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/health", handlers.HandleHealth(d.DB))
	if d.Gatherer != nil {
		r.Method(nethttp.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	perMinute := d.AuthRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	limited := func(key func(*nethttp.Request) string, h nethttp.HandlerFunc) nethttp.Handler {
		if d.EmailLimiter == nil {
			return h
		}
		return middleware.RateLimitMiddleware(d.EmailLimiter, key)(h)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(perMinute, time.Minute))

		r.Post("/register", d.Auth.HandleRegister)
		r.Method(nethttp.MethodPost, "/login", limited(middleware.IPEmailBodyKey, d.Auth.HandleLogin))
		r.Post("/refresh", d.Auth.HandleRefresh)
		r.Post("/logout", d.Auth.HandleLogout)
		r.Get("/verify-email", d.Auth.HandleVerifyEmail)
		r.Method(nethttp.MethodPost, "/resend-verification", limited(middleware.EmailBodyKey, d.Auth.HandleResendVerification))
		r.Method(nethttp.MethodPost, "/forgot-password", limited(middleware.EmailBodyKey, d.Auth.HandleForgotPassword))
		r.Post("/reset-password", d.Auth.HandleResetPassword)
		r.Get("/google-login", d.Auth.HandleGoogleLogin)
		r.Get("/google/callback", d.Auth.HandleGoogleCallback)
		r.Post("/link-google", d.Auth.HandleLinkGoogle)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.Resolver))
			r.Post("/set-password", d.Auth.HandleSetPassword)
			r.Post("/change-password", d.Auth.HandleChangePassword)
		})
	})

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.Resolver))

		r.Get("/user/me", d.Auth.HandleMe)
		r.Patch("/user/me", d.Auth.HandleUpdateMe)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", d.Chat.HandleListConversations)
			r.Post("/", d.Chat.HandleCreateConversation)
			r.Patch("/{id}", d.Chat.HandleRenameConversation)
			r.Delete("/{id}", d.Chat.HandleDeleteConversation)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/send", d.Chat.HandleSend)
			r.Get("/{id}/messages", d.Chat.HandleMessages)
			r.Get("/{id}/export-pdf", d.Chat.HandleExportPDF)
		})

		r.Route("/mood", func(r chi.Router) {
			r.Get("/", d.Mood.HandleList)
			r.Post("/", d.Mood.HandleCreate)
			r.Get("/latest", d.Mood.HandleLatest)
			r.Get("/{id}", d.Mood.HandleGet)
			r.Put("/{id}", d.Mood.HandleUpdate)
			r.Delete("/{id}", d.Mood.HandleDelete)
		})

		r.Route("/journal", func(r chi.Router) {
			r.Get("/", d.Journal.HandleList)
			r.Post("/", d.Journal.HandleCreate)
			r.Get("/{id}", d.Journal.HandleGet)
			r.Put("/{id}", d.Journal.HandleUpdate)
			r.Delete("/{id}", d.Journal.HandleDelete)
		})
	})

	return r
}
