// Package handler implements the diagnostics HTTP surface over the provider
// router: the provider overview, health statuses, and circuit breaker
// inspection and reset.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voxroute/voxroute/internal/health"
	"github.com/voxroute/voxroute/internal/provider"
	"github.com/voxroute/voxroute/internal/router"
)

type DiagnosticsHandler struct {
	logger *slog.Logger
	router *router.Router
}

func NewDiagnosticsHandler(logger *slog.Logger, rt *router.Router) *DiagnosticsHandler {
	return &DiagnosticsHandler{logger: logger, router: rt}
}

// Providers serves the registered provider overview.
func (h *DiagnosticsHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.router.Providers())
}

// Health serves the health status of every provider. A ?refresh=<name>
// query bypasses the cache for that single provider.
func (h *DiagnosticsHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if name := r.URL.Query().Get("refresh"); name != "" {
		status, err := h.router.RefreshHealth(ctx, name)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, map[string]health.Status{name: status})
		return
	}

	writeJSON(w, h.router.HealthSnapshot(ctx))
}

// Breakers serves every provider breaker's state and counters.
func (h *DiagnosticsHandler) Breakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.router.BreakerSnapshots())
}

// ResetBreaker forces one provider's breaker back to CLOSED.
// Routed as POST /breakers/{name}/reset.
func (h *DiagnosticsHandler) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "provider name required", http.StatusBadRequest)
		return
	}

	if err := h.router.ResetBreaker(name); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("breaker reset via API", slog.String("provider", name))
	writeJSON(w, map[string]string{"provider": name, "state": "CLOSED"})
}

func (h *DiagnosticsHandler) writeError(w http.ResponseWriter, err error) {
	var unknown *provider.UnknownBackendError
	if errors.As(err, &unknown) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
