package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"contact_intake/internal/intake"
	"contact_intake/internal/submission"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxBodyBytes caps the size of a submission body.
const DefaultMaxBodyBytes = 1 << 20

// Handler runs a decoded-from-the-wire submission through the pipeline.
type Handler interface {
	Handle(ctx context.Context, req submission.Request) intake.Reply
}

// Config holds the HTTP-facing settings.
type Config struct {
	Addr         string
	Path         string
	AllowOrigins []string
	MaxBodyBytes int64
	// TrustProxy honors X-Forwarded-For and X-Real-IP. Only enable it behind
	// a proxy that overwrites those headers, since clients can set them.
	TrustProxy bool
}

type Server struct {
	cfg     Config
	handler Handler
	router  chi.Router
}

// New wires the router. Requests are logged through logger.
func New(cfg Config, handler Handler, logger zerolog.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/contact"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{cfg: cfg, handler: handler}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if cfg.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(hlog.NewHandler(logger))
	router.Use(requestIDLogger)
	router.Use(hlog.AccessHandler(logAccess))
	router.Use(middleware.Recoverer)
	router.Use(withCORS(cfg.AllowOrigins))

	for _, path := range uniquePaths("/", cfg.Path) {
		router.Get(path, s.handleLiveness)
		router.Post(path, s.handleSubmit)
		router.Options(path, s.handlePreflight)
	}

	s.router = router
	return s
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Str("path", s.cfg.Path).Msg("HTTP server listening")
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errChan
		return nil
	}
}

func uniquePaths(paths ...string) []string {
	seen := make(map[string]struct{}, len(paths))
	var out []string
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// requestIDLogger tags the request-scoped logger with chi's request ID.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func logAccess(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}
