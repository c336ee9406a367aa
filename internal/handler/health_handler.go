package handler

import (
	"context"
	"fmt"
	"net/http"

	"agrisite-api/internal/logger"
	"agrisite-api/internal/middleware"
)

// Pinger checks that a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and crawler endpoints outside the API.
type HealthHandler struct {
	db  Pinger
	log logger.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, log logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

// healthzHandler reports whether the database answers.
func (h *HealthHandler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.log.Error(err, "Health check failed")
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// robotsHandler keeps crawlers away from the API.
func (h *HealthHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Disallow: /api/")
}
