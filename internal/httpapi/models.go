package httpapi

import (
	"encoding/json"
	"net/http"
)

// Models handles GET /models: a JSON array of the currently published
// handles. The circuit-breaker snapshot is not included here; it is
// reported on GET /ready.
func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	handles := h.models.Handles()
	infos := make([]ModelInfo, 0, len(handles))
	for _, handle := range handles {
		infos = append(infos, ModelInfo{
			Name:     handle.Name,
			Version:  handle.Version,
			Stage:    string(handle.Stage),
			LoadedAt: handle.LoadedAt,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

// ReloadModel handles POST /models/reload: enqueues a load intent for the
// named model (or every tracked model, if name is omitted) and returns
// immediately (spec §4.H: "returns immediately").
func (h *Handlers) ReloadModel(w http.ResponseWriter, r *http.Request) {
	var req ReloadRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "malformed_json", "request body is not valid JSON")
			return
		}
	}

	names := h.trackedNames
	if req.Name != "" {
		names = []string{req.Name}
	}
	for _, name := range names {
		if err := h.reloader.AdminReload(r.Context(), name); err != nil {
			writeError(w, r, http.StatusBadGateway, "reload_failed", err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusAccepted)
}
