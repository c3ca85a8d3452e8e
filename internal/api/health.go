package api

import (
	"encoding/json"
	"net/http"

	"github.com/southctrl/yt-cipher/internal/pool"
)

type healthResponse struct {
	Status string `json:"status"`
	pool.Stats
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", Stats: s.pool.Stats()}); err != nil {
		s.logger.Error("encode healthz response", "error", err)
	}
}
