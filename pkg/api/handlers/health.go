package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/pushstore/pkg/service"
)

// Registry is the read side of the service container.
type Registry interface {
	Controllers() []*service.Controller
	Lookup(name service.Name) (*service.Controller, bool)
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	registry  Registry
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. A nil registry makes the
// readiness probe fail.
func NewHealthHandler(registry Registry) *HealthHandler {
	return &HealthHandler{registry: registry, startedAt: time.Now()}
}

// Liveness handles GET /health. It succeeds while the process serves HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "pushstore",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 200 when at least one service is registered and every ACTIVE
// service is UP, 503 otherwise. Services in ON_DEMAND or NEVER mode do not
// affect readiness.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("registry not initialized", nil))
		return
	}

	ctrls := h.registry.Controllers()
	if len(ctrls) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("no services registered", nil))
		return
	}

	states := make(map[string]int)
	var notReady []string
	for _, c := range ctrls {
		st := c.State()
		states[st.String()]++
		if c.Mode() == service.ModeActive && st != service.StateUp {
			notReady = append(notReady, c.Name().String())
		}
	}

	data := map[string]any{
		"services": len(ctrls),
		"states":   states,
	}
	if len(notReady) > 0 {
		data["not_ready"] = notReady
		writeJSON(w, http.StatusServiceUnavailable,
			unhealthyResponse(fmt.Sprintf("%d active service(s) not up", len(notReady)), data))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(data))
}
