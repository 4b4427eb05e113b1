// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes, and runs the HTTP server until
// a shutdown signal arrives.
//
// Dependency flow:
//
//	config.Config → repository.Store (sqlite | postgres)
//	             → services → handlers → chi routes
//
// Handlers never see the store and services never see HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kyyril/portfolio/internal/auth"
	"github.com/kyyril/portfolio/internal/chat"
	"github.com/kyyril/portfolio/internal/config"
	"github.com/kyyril/portfolio/internal/content"
	"github.com/kyyril/portfolio/internal/handler"
	"github.com/kyyril/portfolio/internal/middleware"
	"github.com/kyyril/portfolio/internal/repository"
	"github.com/kyyril/portfolio/internal/repository/postgres"
	"github.com/kyyril/portfolio/internal/repository/sqlite"
	"github.com/kyyril/portfolio/internal/service"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server owns the store and the router. The store is closed by Start on
// shutdown, or by Close when the server is never started.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store

	provider  handler.OAuthProvider
	generator chat.Generator
}

// Option replaces a default collaborator, mainly so tests can stand in for
// GitHub and Gemini.
type Option func(*Server)

// WithOAuthProvider overrides the GitHub provider built from the config.
func WithOAuthProvider(p handler.OAuthProvider) Option {
	return func(s *Server) { s.provider = p }
}

// WithGenerator overrides the Gemini client built from the config.
func WithGenerator(g chat.Generator) Option {
	return func(s *Server) { s.generator = g }
}

// New opens the configured store and wires every route.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}

	if cfg.OAuthConfigured() {
		s.provider = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	} else {
		logger.Warn("GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET not set; sign-in is disabled")
	}
	s.generator = chat.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.GeminiRatePerSecond)

	for _, opt := range opts {
		opt(s)
	}

	store, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.store = store

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.DBDriver == config.DriverPostgres {
		db, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := sqlite.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// setupRoutes mounts:
//
//	GET    /api/guestbook               public
//	POST   /api/guestbook               session
//	PUT    /api/guestbook               session + owner
//	DELETE /api/guestbook               session + owner
//	GET    /api/replies?messageId=      public
//	POST   /api/replies                 session
//	PUT    /api/replies                 session + owner
//	DELETE /api/replies                 session + owner
//	POST   /api/likes                   session
//	DELETE /api/likes                   session
//	GET    /api/auth/github[/callback]
//	POST   /api/auth/signout
//	GET    /api/auth/status
//	POST   /api/chat                    optional session
//	GET    /api/blog, /api/blog/{slug}
//	GET    /robots.txt, /sitemap.xml, /healthz
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	sessions, err := auth.NewSessionManager(s.config.SessionSecret, s.config.IsProduction())
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	posts, err := content.Load(s.config.ContentDir, s.logger)
	if err != nil {
		return fmt.Errorf("loading blog posts: %w", err)
	}
	s.logger.Info("blog posts loaded", slog.Int("count", posts.Len()), slog.String("dir", s.config.ContentDir))

	entries := service.NewEntryService(s.store.Entries(), s.logger)
	replies := service.NewReplyService(s.store.Replies(), s.store.Entries(), s.logger)
	likes := service.NewLikeService(s.store.Likes(), s.store.Entries(), s.logger)
	users := service.NewAuthService(s.store.Users(), s.logger)
	chats := service.NewChatService(s.generator, s.config.ChatTimeout, s.logger)

	guestbookHandler := handler.NewGuestbookHandler(entries, s.logger)
	replyHandler := handler.NewReplyHandler(replies, s.logger)
	likeHandler := handler.NewLikeHandler(likes, s.logger)
	authHandler := handler.NewAuthHandler(s.provider, sessions, users, s.logger)
	chatHandler := handler.NewChatHandler(chats, s.config.ChatStream, s.logger)
	blogHandler := handler.NewBlogHandler(posts, s.logger)
	seoHandler := handler.NewSEOHandler(s.config.SiteURL, posts, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	requireAuth := auth.RequireAuth(sessions)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/guestbook", func(r chi.Router) {
			r.Get("/", guestbookHandler.HandleList)
			r.With(requireAuth).Post("/", guestbookHandler.HandleCreate)
			r.With(requireAuth).Put("/", guestbookHandler.HandleUpdate)
			r.With(requireAuth).Delete("/", guestbookHandler.HandleDelete)
		})

		r.Route("/replies", func(r chi.Router) {
			r.Get("/", replyHandler.HandleList)
			r.With(requireAuth).Post("/", replyHandler.HandleCreate)
			r.With(requireAuth).Put("/", replyHandler.HandleUpdate)
			r.With(requireAuth).Delete("/", replyHandler.HandleDelete)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", likeHandler.HandleCreate)
			r.Delete("/", likeHandler.HandleDelete)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/github", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
			r.Post("/signout", authHandler.HandleSignout)
			r.Get("/status", authHandler.HandleStatus)
		})

		r.With(auth.OptionalAuth(sessions)).Post("/chat", chatHandler.HandleChat)

		r.Get("/blog", blogHandler.HandleList)
		r.Get("/blog/{slug}", blogHandler.HandleGet)
	})

	s.router.Get("/robots.txt", seoHandler.HandleRobots)
	s.router.Get("/sitemap.xml", seoHandler.HandleSitemap)
	s.router.Get("/healthz", healthHandler.HandleHealth)

	return nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	// Non-streaming chat may legitimately take the full chat timeout.
	// Streaming responses lift the write deadline themselves.
	writeTimeout := 15 * time.Second
	if s.config.ChatTimeout+5*time.Second > writeTimeout {
		writeTimeout = s.config.ChatTimeout + 5*time.Second
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("env", s.config.Env),
			slog.String("db_driver", s.config.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
