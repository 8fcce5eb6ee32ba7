package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mindmate/server/internal/assistant"
	"github.com/mindmate/server/internal/auth"
	"github.com/mindmate/server/internal/chat"
	"github.com/mindmate/server/internal/chatcrypt"
	"github.com/mindmate/server/internal/config"
	"github.com/mindmate/server/internal/db"
	httphandler "github.com/mindmate/server/internal/http"
	"github.com/mindmate/server/internal/http/handlers"
	"github.com/mindmate/server/internal/mail"
	"github.com/mindmate/server/internal/middleware"
	"github.com/mindmate/server/internal/oauth"
	"github.com/mindmate/server/internal/repo"
	"github.com/mindmate/server/internal/telemetry"
	"github.com/mindmate/server/internal/wellness"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	cleanup, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.MigrateUp(ctx, database); err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repo.NewUserRepo(database)
	tokenRepo := repo.NewOneTimeTokenRepo(database)
	conversationRepo := repo.NewConversationRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	moodRepo := repo.NewMoodRepo(database)
	journalRepo := repo.NewJournalRepo(database)

	// Initialize auth services
	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return err
	}
	links := mail.Links{PublicURL: cfg.PublicURL, FrontendURL: cfg.FrontendURL}
	var notifier auth.Notifier
	if cfg.Mail.Server != "" {
		notifier = mail.NewSMTPNotifier(cfg.Mail, links, cfg.OutboundTimeout)
	} else {
		log.Warn().Msg("MAIL_SERVER not set, emails are logged instead of sent")
		notifier = mail.NewLogNotifier(links, !cfg.IsProduction())
	}
	var google auth.IdentityProvider
	if cfg.Google.Enabled() {
		google = oauth.NewGoogle(cfg.Google, cfg.OutboundTimeout)
	} else {
		log.Info().Msg("Google sign-in disabled")
	}
	authService := auth.NewAuthService(jwtService, userRepo, auth.NewOneTimeTokens(tokenRepo), notifier, google)

	// Chat and wellness
	cipher, err := chatcrypt.New(cfg.ChatEncryptionKey)
	if err != nil {
		return err
	}
	var completer assistant.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = assistant.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, chat replies are unavailable")
	}
	chatService := chat.NewService(conversationRepo, messageRepo, cipher, completer, cfg.DisplayLocation(), cfg.OutboundTimeout).
		WithPDFFont(cfg.PDFFontPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	emailLimiter := middleware.NewRateLimiter(time.Hour, 5)
	go emailLimiter.Run(ctx, 10*time.Minute)

	router := httphandler.NewRouter(httphandler.Deps{
		Auth:                  handlers.NewAuthHandler(authService, metrics),
		Chat:                  handlers.NewChatHandler(chatService),
		Mood:                  handlers.NewMoodHandler(wellness.NewMoodService(moodRepo)),
		Journal:               handlers.NewJournalHandler(wellness.NewJournalService(journalRepo)),
		Resolver:              authService,
		DB:                    database,
		Logger:                log.Logger,
		Metrics:               metrics,
		Gatherer:              registry,
		AllowedOrigins:        cfg.AllowedOrigins,
		EmailLimiter:          emailLimiter,
		AuthRequestsPerMinute: 20,
	})

	// Create HTTP server with timeouts; a chat send makes two outbound calls.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.WrapHandler(router, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2*cfg.OutboundTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server exited")
	return nil
}
