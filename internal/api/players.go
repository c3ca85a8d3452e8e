package api

import (
	"net/http"

	"github.com/southctrl/yt-cipher/internal/model"
)

type listPlayersResponse struct {
	Players []*model.PlayerEntry `json:"players"`
	Total   int                  `json:"total"`
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.ListPlayers(r.Context())
	if err != nil {
		s.logger.Error("list players", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list players")
		return
	}

	if players == nil {
		players = []*model.PlayerEntry{}
	}

	s.writeJSON(w, http.StatusOK, listPlayersResponse{
		Players: players,
		Total:   len(players),
	})
}
