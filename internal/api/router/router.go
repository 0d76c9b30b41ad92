package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/havenhq/haven-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/havenhq/haven-ai-platform/internal/http/middleware"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *handlers.ChatHandler
	ReviewHandler      *handlers.ReviewHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.ChatHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/conversations/{conversationID}", func(conv chi.Router) {
			conv.Post("/messages", cfg.ChatHandler.HandleMessage)
			conv.Get("/messages", cfg.ChatHandler.HandleHistory)
		})
		api.Route("/review", func(rev chi.Router) {
			rev.Get("/queue", cfg.ReviewHandler.HandleQueue)
			rev.Post("/{messageID}", cfg.ReviewHandler.HandleSubmit)
		})
	})

	return r
}
