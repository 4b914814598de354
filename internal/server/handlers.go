package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if !s.runMu.TryLock() {
		http.Error(w, "a sweep is already running", http.StatusConflict)
		return
	}
	defer s.runMu.Unlock()

	vendor := chi.URLParam(r, "vendor")
	res, err := s.Sweep(r.Context(), vendor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.Collector.RecordSweep(res.Warned, res.WarnFailed, res.RemovalCandidates)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
