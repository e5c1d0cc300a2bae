package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hackclub/driveup/internal/auth"
	"github.com/hackclub/driveup/internal/config"
	"github.com/hackclub/driveup/internal/session"
	"github.com/hackclub/driveup/internal/uploader"
	"github.com/rs/zerolog"
)

type userContextKey struct{}

type Server struct {
	config         *config.Config
	logger         zerolog.Logger
	sessionManager *session.Manager
	oidcProvider   *auth.OIDCProvider
	uploader       *uploader.Uploader
	limiter        *rateLimiter
}

// NewServer wires the web surface. sessionManager and oidcProvider are nil
// when sign-in is disabled.
func NewServer(
	cfg *config.Config,
	logger zerolog.Logger,
	sessionManager *session.Manager,
	oidcProvider *auth.OIDCProvider,
	up *uploader.Uploader,
) *Server {
	return &Server{
		config:         cfg,
		logger:         logger,
		sessionManager: sessionManager,
		oidcProvider:   oidcProvider,
		uploader:       up,
		limiter:        newRateLimiter(cfg.UploadRatePerMinute),
	}
}

type uploadRequest struct {
	LocalFolder string `json:"local_folder"`
	DriveFolder string `json:"drive_folder"`
}

type uploadResponse struct {
	Message      string            `json:"message"`
	SuccessCount int               `json:"success_count"`
	Total        int               `json:"total"`
	FolderID     string            `json:"folder_id"`
	LogPath      string            `json:"log_path,omitempty"`
	Warning      string            `json:"warning,omitempty"`
	Log          []uploader.Record `json:"log"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.AppBaseURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/healthz", s.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/", s.HandlePage)
		r.Get("/api/config", s.HandleConfig)

		if s.sessionManager != nil {
			r.Route("/api/auth", func(r chi.Router) {
				r.Get("/login", s.HandleLogin)
				r.Get("/callback", s.HandleCallback)
				r.Post("/logout", s.HandleLogout)
				r.With(s.AuthMiddleware).Get("/me", s.HandleMe)
			})
		}
	})

	// Upload runs are long and are not bound by the request timeout
	r.Route("/api/uploads", func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.With(s.limiter.middleware).Post("/", s.HandleUpload)
		r.Get("/last", s.HandleLastUpload)
	})

	return r
}

// Middleware

func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("ip", r.RemoteAddr).
			Msg("request")
	})
}

// AuthMiddleware requires a signed-in user when sign-in is enabled.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sessionManager == nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.sessionManager.GetUser(r)
		if err != nil || user == nil {
			s.logger.Debug().Err(err).Msg("authentication failed")
			writeError(w, http.StatusUnauthorized, "sign in required")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Handlers

func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"authEnabled":     s.sessionManager != nil,
		"storeBackend":    s.config.StoreBackend,
		"storeConfigured": s.uploader.Configured(),
	})
}

func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Cross-site form posts and text/plain fetches skip the CORS preflight
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// A started run is never cancelled by the client going away
	ctx := context.WithoutCancel(r.Context())

	report, err := s.uploader.Run(ctx, req.LocalFolder, req.DriveFolder)
	var warning string
	switch {
	case err == nil:
	case errors.Is(err, uploader.ErrPersistLog):
		warning = err.Error()
	case errors.Is(err, uploader.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "cannot upload: remote store is not configured, set its credentials first")
		return
	case errors.Is(err, uploader.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, uploader.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, uploader.ErrFolderResolution):
		s.logger.Error().Err(err).Str("folder", req.DriveFolder).Msg("upload run aborted")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	default:
		s.logger.Error().Err(err).Msg("upload run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newUploadResponse(report, warning))
}

func (s *Server) HandleLastUpload(w http.ResponseWriter, r *http.Request) {
	report := s.uploader.Last()
	if report == nil {
		writeError(w, http.StatusNotFound, "no upload has run yet")
		return
	}

	writeJSON(w, http.StatusOK, newUploadResponse(report, ""))
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.GenerateState()
	if err := s.sessionManager.SetState(w, r, state); err != nil {
		s.logger.Error().Err(err).Msg("failed to store oauth state")
		writeError(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	http.Redirect(w, r, s.oidcProvider.GetAuthURL(state), http.StatusTemporaryRedirect)
}

func (s *Server) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.sessionManager.CheckState(r, r.URL.Query().Get("state")); err != nil {
		s.logger.Error().Err(err).Msg("invalid oauth state")
		writeError(w, http.StatusBadRequest, "authorization failed")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.logger.Error().Msg("no authorization code received")
		writeError(w, http.StatusBadRequest, "authorization failed")
		return
	}

	token, err := s.oidcProvider.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to exchange code for token")
		writeError(w, http.StatusInternalServerError, "authorization failed")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		s.logger.Error().Msg("no id_token in response")
		writeError(w, http.StatusInternalServerError, "authorization failed")
		return
	}

	claims, err := s.oidcProvider.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to verify ID token")
		writeError(w, http.StatusForbidden, "authorization failed - domain not allowed or invalid token")
		return
	}

	user := &session.User{
		Sub:     claims.Sub,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
		HD:      claims.HD,
	}

	if err := s.sessionManager.SetUser(w, r, user); err != nil {
		s.logger.Error().Err(err).Msg("failed to set user session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.logger.Info().Str("email", user.Email).Str("domain", user.HD).Msg("user logged in")
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessionManager.ClearSession(w, r); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear session")
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(userContextKey{}).(*session.User)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func newUploadResponse(report *uploader.Report, warning string) uploadResponse {
	return uploadResponse{
		Message:      fmt.Sprintf("Uploaded %d files", report.SuccessCount),
		SuccessCount: report.SuccessCount,
		Total:        len(report.Records),
		FolderID:     report.FolderID,
		LogPath:      report.LogPath,
		Warning:      warning,
		Log:          report.Records,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
