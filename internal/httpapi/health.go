package httpapi

import "net/http"

// Health handles GET /health: liveness, always 200 once the process is up
// (spec §4.H).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// Ready handles GET /ready: readiness, 200 only once at least one model is
// loaded (or no models were configured to preload), enriched with the
// registry client's circuit state (SUPPLEMENTED FEATURES).
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	loaded := len(h.models.Handles())
	status := http.StatusOK
	statusText := "ready"
	if loaded == 0 && len(h.trackedNames) > 0 {
		status = http.StatusServiceUnavailable
		statusText = "not_ready"
	}

	writeJSON(w, status, ReadyResponse{
		Status:        statusText,
		ModelsLoaded:  loaded,
		RegistryState: h.breakerSnapshot(),
	})
}
