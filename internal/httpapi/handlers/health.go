package handlers

import (
	"context"
	"net/http"
	"time"

	"pagemotion/internal/httpkit"
	"pagemotion/internal/jobs"
)

// Health performs a health check of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":  "ok",
		"service": "pagemotion",
		"version": h.version,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := map[string]map[string]any{
		"ledger":  h.checkLedger(ctx),
		"queue":   h.checkQueue(ctx),
		"storage": h.checkStorage(),
	}
	if h.rdb != nil {
		checks["redis"] = h.checkRedis(ctx)
	}
	return checks
}

func (h *Handler) checkLedger(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.ledger.Ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkRedis(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.rdb.Ping(checkCtx).Err(); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkQueue(ctx context.Context) map[string]any {
	result := map[string]any{"status": "ok"}

	depth, err := h.queue.Len(ctx)
	if err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
		return result
	}
	result["depth"] = depth

	ready := make(map[string]int64, len(h.pipelines))
	for _, kind := range jobs.Kinds() {
		if p, ok := h.pipelines[kind]; ok {
			n, err := p.Ready(ctx)
			if err != nil {
				result["status"] = "error"
				result["error"] = err.Error()
				continue
			}
			ready[string(kind)] = n
		}
	}
	result["results_ready"] = ready
	return result
}

func (h *Handler) checkStorage() map[string]any {
	return map[string]any{
		"status":   "ok",
		"provider": h.sp.Provider(),
	}
}
