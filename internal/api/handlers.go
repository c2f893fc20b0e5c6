package api

import (
	"encoding/json"
	"net/http"
)

// handleHealth reports the exact shape the monitoring contract expects:
// status plus the two headline population counts.
func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := h.engine.Store()
	writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"players": store.PlayerCount(),
		"food":    store.FoodCount(),
	})
}

// handleGetState is a debug endpoint exposing the latest published
// snapshot verbatim, for operators inspecting world state without a
// WebSocket client.
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
