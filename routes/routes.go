package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/insight-rag/app"
	"github.com/upb/insight-rag/handlers"
	"github.com/upb/insight-rag/middleware"
	"github.com/upb/insight-rag/utils"
)

// requestTimeout bounds a single request, including the LLM call
const requestTimeout = 90 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var checker handlers.HealthChecker
	if deps.Pipeline != nil {
		checker = deps.Pipeline
	}
	health := handlers.NewHealthHandler(checker, app.ServiceName, app.Version, deps.Logger)
	insights := handlers.NewInsightHandler(deps.Pipeline, deps.Logger)

	// Status and health endpoints
	r.Get("/", health.HandleRoot)
	r.Get("/health", health.HandleHealth)
	r.Get("/healthz", health.HandleLiveness)
	r.Get("/readyz", health.HandleReadiness)

	// Insight endpoints, served both at the root and under /api/v1
	r.Post("/suggestions", insights.HandleSuggestions)
	r.Post("/query", insights.HandleQuery)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/suggestions", insights.HandleSuggestions)
		r.Post("/query", insights.HandleQuery)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w, "")
	})

	return r
}
