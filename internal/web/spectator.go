package web

import (
	"net/http"
	"time"

	"github.com/justinabrahms/atchess3d/internal/chess"
	"github.com/justinabrahms/atchess3d/internal/session"
)

// GameIndex represents a game in the lobby listing
type GameIndex struct {
	GameID         string          `json:"gameId"`
	Turn           chess.Color     `json:"turn"`
	State          chess.GameState `json:"state"`
	MoveCount      int             `json:"moveCount"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	SpectatorCount int             `json:"spectatorCount"`
}

// ListGamesHandler lists games, most recently active first. With
// ?status=active finished games are left out.
func (s *Service) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("status") == "active"

	games := []GameIndex{}
	for _, summary := range s.sessions.List() {
		if activeOnly && summary.State.IsTerminal() {
			continue
		}
		games = append(games, s.indexEntry(summary))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"total": len(games),
	})
}

func (s *Service) indexEntry(summary session.Summary) GameIndex {
	return GameIndex{
		GameID:         summary.ID,
		Turn:           summary.Turn,
		State:          summary.State,
		MoveCount:      summary.MoveCount,
		UpdatedAt:      summary.UpdatedAt,
		SpectatorCount: s.hub.ClientCount(summary.ID),
	}
}
