package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the core's router with all routes configured.
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware(h.config.CORSAllowedOrigins))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)

		r.Route("/check", func(r chi.Router) {
			r.Post("/single", h.CheckSingle)
			r.Post("/batch", h.CheckBatch)
			r.Route("/batch/{jobID}", func(r chi.Router) {
				r.Get("/status", h.GetBatchStatus)
				r.Delete("/", h.DeleteBatchJob)
			})
		})
	})

	r.Get("/api/docs", h.Docs)

	return r
}

// corsMiddleware builds the CORS handler from the configured origin list,
// allowing every origin when it's exactly ["*"] and otherwise matching
// against the configured list.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}

	if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	}

	return cors.Handler(opts)
}
