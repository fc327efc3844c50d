// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. It is the composition root: every repository, service, and handler
// is constructed here and nowhere else, so the dependency graph of the whole
// application is readable in one file.
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points share it: cmd/server and cmd/seed both
//   open the same database through the same packages)
// - Clean (main.go stays minimal — just "load config, start the server")
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/book-reviews/internal/auth"
	"github.com/sakif/book-reviews/internal/handler"
	"github.com/sakif/book-reviews/internal/middleware"
	"github.com/sakif/book-reviews/internal/notify"
	sqliteRepo "github.com/sakif/book-reviews/internal/repository/sqlite"
	"github.com/sakif/book-reviews/internal/service"
)

// Config holds server configuration, loaded by main from environment
// variables. Using a struct instead of individual parameters means new
// options don't ripple through function signatures.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string
	DBPath      string

	// JWTSecret signs session tokens. Required; at least 16 characters.
	JWTSecret string

	// SMTP settings for review notification emails. When SMTPAddr is empty
	// the server runs with notifications disabled.
	SMTPAddr     string // host:port, e.g. "localhost:1025"
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// GitHub OAuth. When the client ID or secret is empty the OAuth routes
	// are not mounted and the login page hides the GitHub button.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the resources that must be released on
// shutdown. The database connection in particular has to be closed to flush
// the WAL and release the file lock; Start handles that.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the whole dependency chain:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services. No handler ever touches the database.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /                       → paginated book list (home)
//	GET  /book/{id}              → book detail with reviews
//	GET  /search                 → title/author search
//	GET  /covers/{id}            → cover image bytes
//	GET  /static/*               → stylesheets
//	GET+POST /signup, /login     → account pages
//	POST /logout                 → end session
//	GET  /auth/github/...        → OAuth flow (when configured)
//	GET  /healthz                → liveness + DB ping
//
// Authenticated (session cookie required, otherwise redirect to /login):
//
//	GET+POST /book/{id}/review/add
//	GET+POST /review/{id}/update
//	GET+POST /review/{id}/delete
//	GET      /my-reviews
//	GET+POST /profile
//
// MIDDLEWARE ORDER MATTERS: RequestID and RealIP run first so the logger
// sees them, Recoverer turns panics into 500s, then our request logger.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var notifier notify.Notifier = notify.Noop{}
	if s.config.SMTPAddr != "" {
		notifier = notify.NewSMTPMailer(
			s.config.SMTPAddr,
			s.config.SMTPFrom,
			s.config.SMTPUsername,
			s.config.SMTPPassword,
		)
	} else {
		s.logger.Warn("SMTP not configured — review notification emails disabled")
	}

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth not configured — sign in with GitHub disabled")
	}

	bookService := service.NewBookService(s.db.Books(), s.logger)
	reviewService := service.NewReviewService(s.db.Reviews(), s.db.Books(), s.db.Users(), notifier, s.logger)
	accountService := service.NewAccountService(s.db.Users(), tokens, passwords, s.logger)

	renderer, err := handler.NewRenderer(s.config.TemplateDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	bookHandler := handler.NewBookHandler(bookService, reviewService, accountService, renderer, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, bookService, accountService, renderer, s.logger)
	authHandler := handler.NewAuthHandler(accountService, github, renderer, s.logger)

	if s.config.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	s.router.Get("/healthz", s.handleHealth)

	// Public pages. OptionalAuth resolves the session when present so the
	// navbar and owner controls render, but never blocks.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Get("/", bookHandler.HandleHome)
		r.Get("/book/{id}", bookHandler.HandleDetail)
		r.Get("/search", bookHandler.HandleSearch)
		r.Get("/covers/{id}", bookHandler.HandleCover)

		r.Get("/signup", authHandler.HandleSignupForm)
		r.Post("/signup", authHandler.HandleSignup)
		r.Get("/login", authHandler.HandleLoginForm)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// Pages that need a signed-in user.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/book/{id}/review/add", reviewHandler.HandleAddForm)
		r.Post("/book/{id}/review/add", reviewHandler.HandleAdd)
		r.Get("/review/{id}/update", reviewHandler.HandleUpdateForm)
		r.Post("/review/{id}/update", reviewHandler.HandleUpdate)
		r.Get("/review/{id}/delete", reviewHandler.HandleDeleteForm)
		r.Post("/review/{id}/delete", reviewHandler.HandleDelete)
		r.Get("/my-reviews", reviewHandler.HandleMyReviews)
		r.Get("/profile", authHandler.HandleProfileForm)
		r.Post("/profile", authHandler.HandleProfileUpdate)
	})

	return nil
}

// handleHealth reports liveness. It pings the database so a wedged SQLite
// file shows up as unhealthy rather than a 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check: database ping failed", slog.String("error", err.Error()))
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Start runs the HTTP server and blocks until shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
