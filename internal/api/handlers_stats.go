package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	medicines, err := s.store.CountMedicines(r.Context())
	if err != nil {
		jsonError(w, "stats unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	chunks, err := s.store.CountChunks(r.Context())
	if err != nil {
		jsonError(w, "stats unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"medicines":   medicines,
		"chunks":      chunks,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
