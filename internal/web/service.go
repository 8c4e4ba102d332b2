package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinabrahms/atchess3d/internal/auth"
	"github.com/justinabrahms/atchess3d/internal/chess"
	"github.com/justinabrahms/atchess3d/internal/config"
	"github.com/justinabrahms/atchess3d/internal/record"
	"github.com/justinabrahms/atchess3d/internal/session"
	"github.com/rs/zerolog/log"
)

const maxArchiveBytes = 1 << 20

type Service struct {
	sessions *session.Manager
	hub      *Hub
	signer   *auth.Signer
	defaults session.Settings
	now      func() time.Time
}

// NewService wires the HTTP surface. A nil signer runs the service without
// seat checks.
func NewService(sessions *session.Manager, hub *Hub, signer *auth.Signer, cfg *config.Config) *Service {
	return &Service{
		sessions: sessions,
		hub:      hub,
		signer:   signer,
		defaults: session.Settings{
			SelfCheckFiltering: cfg.Game.SelfCheckFiltering,
			DaysPerMove:        cfg.Game.DaysPerMove,
		},
		now: time.Now,
	}
}

// Router builds the route table with CORS applied to every route.
func (s *Service) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.HealthHandler).Methods("GET")
	api.HandleFunc("/games", s.CreateGameHandler).Methods("POST")
	api.HandleFunc("/games", s.ListGamesHandler).Methods("GET")
	api.HandleFunc("/games/import", s.ImportGameHandler).Methods("POST")
	api.HandleFunc("/games/{id}", s.GetGameHandler).Methods("GET")
	api.HandleFunc("/games/{id}/destinations", s.DestinationsHandler).Methods("GET")
	api.HandleFunc("/games/{id}/moves", s.MakeMoveHandler).Methods("POST")
	api.HandleFunc("/games/{id}/moves", s.GetMovesHandler).Methods("GET")
	api.HandleFunc("/games/{id}/clock", s.GetTimeRemainingHandler).Methods("GET")
	api.HandleFunc("/games/{id}/export", s.ExportGameHandler).Methods("GET")

	router.HandleFunc("/ws", s.WebSocketHandler(s.hub))

	// Preflight requests only reach the CORS middleware through a matched route.
	router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	gameID := mux.Vars(r)["id"]
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"games":  len(s.sessions.List()),
		"auth":   s.signer != nil,
	})
}

type CreateGameRequest struct {
	SelfCheckFiltering *bool `json:"selfCheckFiltering,omitempty"`
	DaysPerMove        *int  `json:"daysPerMove,omitempty"`
}

type CreateGameResponse struct {
	Game   session.View           `json:"game"`
	Tokens map[chess.Color]string `json:"tokens,omitempty"`
}

func (s *Service) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settings := s.defaults
	if req.SelfCheckFiltering != nil {
		settings.SelfCheckFiltering = *req.SelfCheckFiltering
	}
	if req.DaysPerMove != nil {
		if *req.DaysPerMove < 0 || *req.DaysPerMove > session.MaxDaysPerMove {
			http.Error(w, fmt.Sprintf("daysPerMove must be between 0 and %d", session.MaxDaysPerMove), http.StatusBadRequest)
			return
		}
		settings.DaysPerMove = *req.DaysPerMove
	}

	sess := s.sessions.Create(settings)
	s.respondCreated(w, sess)
}

func (s *Service) respondCreated(w http.ResponseWriter, sess *session.Session) {
	resp := CreateGameResponse{Game: sess.Snapshot()}
	if s.signer != nil {
		tokens, err := s.signer.IssuePair(sess.ID)
		if err != nil {
			log.Error().Err(err).Str("gameID", sess.ID).Msg("Failed to issue seat tokens")
			s.sessions.Delete(sess.ID)
			http.Error(w, "Failed to create game", http.StatusInternalServerError)
			return
		}
		resp.Tokens = tokens
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Service) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type DestinationsResponse struct {
	From         chess.Coord   `json:"from"`
	Destinations []chess.Coord `json:"destinations"`
}

func (s *Service) DestinationsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	from := r.URL.Query().Get("from")
	c, valid := chess.ParseSquare(from)
	if !valid {
		http.Error(w, fmt.Sprintf("Invalid square %q", from), http.StatusBadRequest)
		return
	}

	dests, err := sess.Destinations(from)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, DestinationsResponse{From: c, Destinations: dests})
}

type MakeMoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Service) MakeMoveHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req MakeMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := sess.Move(req.From, req.To, session.MoveHooks{
		Guard:     s.seatGuard(r, sess.ID),
		Committed: func(result *chess.MoveResult) { s.publishMove(sess.ID, result) },
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongSeat):
			log.Warn().Err(err).Str("gameID", sess.ID).Msg("Move rejected by seat check")
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			log.Info().Err(err).Str("gameID", sess.ID).Str("from", req.From).Str("to", req.To).Msg("Invalid move")
			http.Error(w, fmt.Sprintf("Invalid move: %s", err.Error()), http.StatusBadRequest)
		}
		return
	}

	log.Info().
		Str("gameID", sess.ID).
		Str("from", result.From.String()).
		Str("to", result.To.String()).
		Str("state", string(result.State)).
		Bool("capture", result.Captured != nil).
		Msg("Move executed successfully")

	writeJSON(w, http.StatusOK, result)
}

// publishMove runs under the session lock so viewers see moves in the order
// they were applied.
func (s *Service) publishMove(gameID string, result *chess.MoveResult) {
	s.hub.BroadcastGameUpdate(GameUpdate{GameID: gameID, Type: UpdateMove, Data: result})
	if result.GameOver {
		s.hub.BroadcastGameUpdate(GameUpdate{
			GameID: gameID,
			Type:   UpdateGameEnd,
			Data: map[string]interface{}{
				"state":  result.State,
				"winner": result.Winner,
			},
		})
	}
}

// seatGuard returns nil when seat checks are off. Otherwise the bearer token
// must name this game and the side to move.
func (s *Service) seatGuard(r *http.Request, gameID string) func(chess.Color) error {
	if s.signer == nil {
		return nil
	}
	token := bearerToken(r)
	return func(turn chess.Color) error {
		if token == "" {
			return fmt.Errorf("%w: missing bearer token", auth.ErrInvalidToken)
		}
		return s.signer.Authorize(token, gameID, turn)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (s *Service) GetMovesHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	moves := sess.Moves()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gameId": sess.ID,
		"moves":  moves,
		"count":  len(moves),
	})
}

func (s *Service) GetTimeRemainingHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	now := s.now()
	turn, remaining, err := sess.TimeRemaining(now)
	if errors.Is(err, session.ErrNoTimeControl) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"gameId":      sess.ID,
			"turn":        turn,
			"timeControl": false,
		})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("gameID", sess.ID).Msg("Failed to get time remaining")
		http.Error(w, "Failed to get time remaining", http.StatusInternalServerError)
		return
	}

	violation := sess.CheckTimeout(now)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gameId":             sess.ID,
		"turn":               turn,
		"timeControl":        true,
		"remainingSeconds":   int(remaining.Seconds()),
		"remainingFormatted": session.FormatTimeRemaining(remaining),
		"hasViolation":       violation != nil,
		"violation":          violation,
	})
}

func (s *Service) ExportGameHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	rec := sess.Archive()
	root, err := rec.CID()
	if err != nil {
		log.Error().Err(err).Str("gameID", sess.ID).Msg("Failed to export game")
		http.Error(w, "Failed to export game", http.StatusInternalServerError)
		return
	}

	// The root CID names the archive's content, so it doubles as the ETag.
	etag := fmt.Sprintf("%q", root.String())
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Root-CID", root.String())
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, _, err := record.MarshalCAR(rec)
	if err != nil {
		log.Error().Err(err).Str("gameID", sess.ID).Msg("Failed to export game")
		http.Error(w, "Failed to export game", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.ipld.car")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sess.ID+".car"))
	_, _ = w.Write(data)
}

func (s *Service) ImportGameHandler(w http.ResponseWriter, r *http.Request) {
	rec, root, err := record.ReadCAR(http.MaxBytesReader(w, r.Body, maxArchiveBytes))
	if err != nil {
		log.Info().Err(err).Msg("Rejected game archive")
		http.Error(w, fmt.Sprintf("Invalid archive: %s", err.Error()), http.StatusBadRequest)
		return
	}

	engine, err := record.Replay(rec)
	if err != nil {
		log.Info().Err(err).Str("sourceGameID", rec.GameID).Msg("Archive failed to replay")
		http.Error(w, fmt.Sprintf("Invalid archive: %s", err.Error()), http.StatusBadRequest)
		return
	}

	sess := s.sessions.Adopt(engine, session.Settings{
		SelfCheckFiltering: rec.SelfCheckFiltering,
		DaysPerMove:        s.defaults.DaysPerMove,
	})
	log.Info().
		Str("gameID", sess.ID).
		Str("sourceGameID", rec.GameID).
		Str("root", root.String()).
		Msg("Game imported")

	s.respondCreated(w, sess)
}
