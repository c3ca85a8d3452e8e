package api

import (
	"net/http"

	"github.com/southctrl/yt-cipher/internal/pool"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	ByWorker      map[int]int    `json:"by_worker"`
	AvgWaitMS     float64        `json:"avg_wait_ms"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	Pool          pool.Stats     `json:"pool"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetJobStats(r.Context())
	if err != nil {
		s.logger.Error("get job stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Total:         stats.Total,
		ByStatus:      stats.CountByStatus,
		ByWorker:      stats.CountByWorker,
		AvgWaitMS:     stats.AvgWaitMS,
		AvgDurationMS: stats.AvgDurationMS,
		Pool:          s.pool.Stats(),
	})
}
