// Package httpserver exposes the text store over HTTP: a JSON API for
// creating, fetching and deleting texts, plus raw and QR share endpoints.
package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pastrami/internal/textstore"
)

// Config captures server configuration.
type Config struct {
	Texts       *textstore.TextStore
	RateLimiter *RateLimiter
	TrustProxy  bool
	BaseURL     string
	AuthKey     string
	Logger      *slog.Logger
}

// Server wraps HTTP handling logic.
type Server struct {
	texts      *textstore.TextStore
	router     chi.Router
	limiter    *RateLimiter
	trustProxy bool
	baseURL    *url.URL
	authKey    string
	logger     *slog.Logger
}

// New constructs a new Server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Texts == nil {
		return nil, errors.New("text store required")
	}

	var parsedBase *url.URL
	if cfg.BaseURL != "" {
		var err error
		parsedBase, err = url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		if parsedBase.Scheme == "" || parsedBase.Host == "" {
			return nil, errors.New("base url must include scheme and host")
		}
		parsedBase.Path = strings.TrimSuffix(parsedBase.Path, "/")
	}

	srv := &Server{
		texts:      cfg.Texts,
		router:     chi.NewRouter(),
		limiter:    cfg.RateLimiter,
		trustProxy: cfg.TrustProxy,
		baseURL:    parsedBase,
		authKey:    cfg.AuthKey,
		logger:     cfg.Logger,
	}
	srv.routes()
	return srv, nil
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RateLimitMiddleware(s.limiter, func(r *http.Request) string {
		return ClientIP(r, s.trustProxy)
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/2.0", func(api chi.Router) {
		api.Post("/", s.handleCreate)
		api.Get("/{textID}", s.handleGet)
		api.Delete("/{textID}", s.handleDelete)
	})

	r.Get("/", s.handleRoot)
	r.Get("/{textID}", s.handleRaw)
	r.Get("/{textID}/qr", s.handleQR)
}

func (s *Server) isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if s.baseURL != nil && s.baseURL.Scheme == "https" {
		return true
	}
	if s.trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return false
}

// canonicalURL returns the share URL for a text id.
func (s *Server) canonicalURL(r *http.Request, id string) string {
	if s.baseURL != nil {
		u := *s.baseURL
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + id
		return u.String()
	}

	scheme := "http"
	if s.isSecureRequest(r) {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, host, id)
}
