package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hackclub/driveup/internal/auth"
	"github.com/hackclub/driveup/internal/config"
	httphandler "github.com/hackclub/driveup/internal/http"
	"github.com/hackclub/driveup/internal/session"
	"github.com/hackclub/driveup/internal/storage"
	"github.com/hackclub/driveup/internal/uploader"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx := context.Background()

	// Load configuration
	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	logger.Info().Str("backend", cfg.StoreBackend).Msg("starting driveup server")

	// Initialize sign-in when configured
	var sessionManager *session.Manager
	var oidcProvider *auth.OIDCProvider
	if cfg.AuthEnabled() {
		if len(cfg.SessionSecret) < 32 {
			logger.Fatal().Msgf("SESSION_SECRET must be at least 32 characters, got %d", len(cfg.SessionSecret))
		}
		if cfg.GoogleOAuthClientSecret == "" {
			logger.Fatal().Msg("GOOGLE_OAUTH_CLIENT_SECRET is required when GOOGLE_OAUTH_CLIENT_ID is set")
		}

		sessionManager = session.NewManager(cfg.SessionSecret, isHTTPS(cfg.AppBaseURL))

		redirectURL := fmt.Sprintf("%s/api/auth/callback", cfg.AppBaseURL)
		var err error
		oidcProvider, err = auth.NewOIDCProvider(ctx, cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, redirectURL, cfg.AllowedDomains)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize OIDC provider")
		}
		logger.Info().Strs("allowed_domains", cfg.AllowedDomains).Msg("google sign-in enabled")
	}

	// Initialize the remote store. The page still starts without one and
	// reports the problem when an upload is triggered.
	var store storage.Store
	if s, err := storage.FromConfig(ctx, cfg); err != nil {
		if errors.Is(err, storage.ErrMissingCredentials) {
			logger.Warn().Err(err).Msg("remote store not configured, uploads are disabled")
		} else {
			logger.Error().Err(err).Msg("failed to initialize remote store, uploads are disabled")
		}
	} else {
		store = s
	}

	up := uploader.New(store, uploader.Options{LogPath: cfg.UploadLogPath}, logger)

	server := httphandler.NewServer(
		cfg,
		logger,
		sessionManager,
		oidcProvider,
		up,
	)

	// Upload runs can take far longer than any fixed write timeout, so only
	// reads are bounded.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

func isHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}
