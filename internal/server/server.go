// Package server implements the owner-facing operational surface.
//
// All routes expect an x-user-id header when forwarded by the Gateway;
// anonymous callers are identified by remote IP. Everything under /api/
// passes through the rate limiter before being served.
//
// Routes:
//
//	GET  /health              → liveness probe
//	GET  /metrics             → Prometheus scrape endpoint
//	GET  /api/status          → per-platform session status
//	GET  /api/stats           → registry / dedup / proxy / vault snapshot
//	POST /api/crawl           → trigger a crawl cycle now
//	POST /api/sessions/clear  → clear one platform's session, or all
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qws941/resume-sub005/internal/dedup"
	"github.com/qws941/resume-sub005/internal/proxy"
	"github.com/qws941/resume-sub005/internal/ratelimit"
	"github.com/qws941/resume-sub005/internal/registry"
	"github.com/qws941/resume-sub005/internal/scheduler"
	"github.com/qws941/resume-sub005/internal/session"
	"github.com/qws941/resume-sub005/internal/vault"
)

const version = "1.0.0"

// Handler holds shared dependencies.
type Handler struct {
	sessions  *session.Store
	registry  *registry.Registry
	deduper   *dedup.Deduplicator
	proxies   *proxy.Rotator
	vault     *vault.Vault
	scheduler *scheduler.Scheduler
	limiter   *ratelimit.Limiter
	prom      *prometheus.Registry
}

// NewHandler returns a configured Handler.
func NewHandler(
	sessions *session.Store,
	reg *registry.Registry,
	deduper *dedup.Deduplicator,
	proxies *proxy.Rotator,
	v *vault.Vault,
	sched *scheduler.Scheduler,
	limiter *ratelimit.Limiter,
	prom *prometheus.Registry,
) *Handler {
	return &Handler{
		sessions:  sessions,
		registry:  reg,
		deduper:   deduper,
		proxies:   proxies,
		vault:     v,
		scheduler: sched,
		limiter:   limiter,
		prom:      prom,
	}
}

// Routes builds the full route tree behind the rate-limit middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(h.prom, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/stats", h.handleStats)
	mux.HandleFunc("/api/crawl", h.handleCrawl)
	mux.HandleFunc("/api/sessions/clear", h.handleSessionsClear)

	return h.limiter.Middleware(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "automation-service",
		"version": version,
	})
}

// handleStatus reports, for every supported platform, whether an
// unexpired session is held. Dashboard data, not a security decision.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": h.sessions.Status(r.Context()),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"registry": h.registry.Stats(),
		"dedup": map[string]int{
			"tracked": h.deduper.Size(),
		},
		"proxies": map[string]interface{}{
			"pool":        h.proxies.PoolSize(),
			"healthy":     h.proxies.Healthy(),
			"blacklisted": h.proxies.BlacklistSize(),
		},
		"credentials": h.vault.Platforms(),
	})
}

// handleCrawl kicks off a cycle without waiting for the cron tick.
func (h *Handler) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Detached from the request context: the cycle outlives the response.
	go h.scheduler.RunCycle(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cycle started"})
}

func (h *Handler) handleSessionsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	platform := r.URL.Query().Get("platform")
	if err := h.sessions.Clear(r.Context(), platform); err != nil {
		log.Printf("[server] Session clear error: %v", err)
		jsonError(w, "session store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cleared": platform})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
