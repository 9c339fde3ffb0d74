package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/luminahr/pulse-engage/internal/auth"
	"github.com/luminahr/pulse-engage/internal/config"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates the API server. tokens may be nil in tests to bypass
// authentication.
func NewServer(cfg config.ServerConfig, corsCfg config.CORSConfig, h *Handlers, tokens auth.TokenStore) *Server {
	return &Server{
		config:  cfg,
		handler: SetupRoutes(h, tokens, corsCfg),
	}
}

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, tokens auth.TokenStore, corsCfg config.CORSConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	origins := corsCfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// API routes (protected by bearer-token auth)
	r.Route("/api", func(r chi.Router) {
		if tokens != nil {
			r.Use(auth.Middleware(tokens))
		}

		r.Get("/campaigns", h.HandleListCampaigns)
		r.Get("/campaigns/{id}", h.HandleGetCampaign)
		r.Post("/campaigns/{id}/activate", h.HandleActivate)
		r.Get("/campaigns/{id}/deliveries", h.HandleListDeliveries)
		r.Get("/campaigns/{id}/audit", h.HandleListAudit)
	})

	return r
}

// ListenAndServe starts the HTTP server.
//
// WriteTimeout is sized for the activation endpoint: dispatch is paced
// sequentially, so a large campaign legitimately holds the response open
// for minutes.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
