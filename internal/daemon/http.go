package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/logfields"
	"git.home.luguber.info/inful/bloghub/internal/metrics"
	"git.home.luguber.info/inful/bloghub/internal/version"
)

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status   string     `json:"status"`
	Version  string     `json:"version"`
	Uptime   string     `json:"uptime"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

// Handler returns the daemon's HTTP routes.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", d.handleHealth)
	mux.HandleFunc("GET /readyz", d.handleReady)
	if d.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(d.registry))
	}
	if d.cfg.GitHub.WebhookSecret != "" {
		mux.HandleFunc("POST /webhook", d.handleWebhook)
	}
	return chain(slog.Default(), d.adapter)(mux)
}

func (d *Daemon) health(status string) HealthResponse {
	return HealthResponse{
		Status:   status,
		Version:  version.Version,
		Uptime:   d.uptime(),
		LastSync: d.lastSync.Load(),
	}
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.health("ok"))
}

func (d *Daemon) handleReady(w http.ResponseWriter, r *http.Request) {
	if !d.Ready() {
		d.adapter.WriteErrorResponse(w, r, errors.DaemonError("waiting for first sync").Build())
		return
	}
	writeJSON(w, http.StatusOK, d.health("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", logfields.Error(err))
	}
}
