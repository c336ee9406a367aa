package handler

import (
	"net/http"

	"agrisite-api/internal/data"
	"agrisite-api/internal/logger"
	"agrisite-api/internal/middleware"
	"agrisite-api/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ResourceHandlers creates a handler for every resource in the catalog.
func ResourceHandlers(c *service.Catalog, maxBody int64, log logger.Logger) []Mounter {
	return []Mounter{
		NewResourceHandler[data.Product](c.Products, maxBody, log),
		NewResourceHandler[data.Nursery](c.Nurseries, maxBody, log),
		NewResourceHandler[data.AboutUs](c.AboutUs, maxBody, log),
		NewResourceHandler[data.Process](c.MillingProcesses, maxBody, log),
		NewResourceHandler[data.Process](c.AggressionProcesses, maxBody, log),
		NewResourceHandler[data.FarmProgression](c.FarmProgressions, maxBody, log),
		NewResourceHandler[data.HowTo](c.HowTos, maxBody, log),
		NewResourceHandler[data.Announcement](c.Announcements, maxBody, log),
		NewResourceHandler[data.Inquiry](c.Queries, maxBody, log),
		NewResourceHandler[data.Inquiry](c.Feedback, maxBody, log),
	}
}

// NewRouter creates and configures a new chi router.
func NewRouter(
	healthHandler *HealthHandler,
	apiHandlers []Mounter,
	authnMiddleware func(http.Handler) http.Handler,
	authzMiddleware func(http.Handler) http.Handler,
	errorMiddleware func(middleware.AppHandler) http.Handler,
) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	r.Get("/healthz", healthHandler.healthzHandler)
	r.Get("/robots.txt", healthHandler.robotsHandler)

	// API routes
	r.Group(func(r chi.Router) {
		r.Use(authnMiddleware)
		r.Use(authzMiddleware)

		for _, h := range apiHandlers {
			h.Mount(r, errorMiddleware)
		}
	})

	return r
}
