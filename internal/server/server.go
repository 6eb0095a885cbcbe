package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/repositories"
	"github.com/desertthunder/playq/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for grouped HTTP request handlers.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 5 * time.Second

// Server is the reference Playlist Persistence API backed by SQLite.
type Server struct {
	addr      string
	router    *BasicRouter
	hub       *Hub
	playlists *PlaylistHandler
	logger    *log.Logger
}

// New wires repositories, the change feed hub, and middleware into a [Server].
//
// A non-empty token requires every request to carry it as a bearer token.
func New(db *sql.DB, cfg shared.ServerConfig, token string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	hub := NewHub(shared.WithLogger(logger, "component", "hub"))
	playlists := NewPlaylistHandler(repositories.NewPlaylistRepository(db), hub, logger)

	router := NewBasicRouter()
	router.Use(Recoverer(logger), RequestLogger(logger))
	if token != "" {
		router.Use(BearerAuth(token))
	}
	router.Handler(playlists)

	return &Server{
		addr:      cfg.Addr(),
		router:    router,
		hub:       hub,
		playlists: playlists,
		logger:    logger,
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the change feed hub.
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe runs the hub and the HTTP server until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("persistence server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down persistence server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
