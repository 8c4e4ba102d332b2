// Package session keeps live matches. Each Session owns exactly one engine and
// serialises every access to it.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justinabrahms/atchess3d/internal/chess"
	"github.com/justinabrahms/atchess3d/internal/record"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("game not found")

// Settings configure a new session.
type Settings struct {
	SelfCheckFiltering bool
	DaysPerMove        int
}

func (s Settings) engineOptions() []chess.Option {
	var opts []chess.Option
	if s.SelfCheckFiltering {
		opts = append(opts, chess.WithSelfCheckFiltering())
	}
	return opts
}

// Session is one match. The engine is only reachable through its methods.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	engine  *chess.Engine
	clock   *Clock
	updated time.Time
}

// View is a read-only copy of a session's game.
type View struct {
	ID                 string              `json:"id"`
	Turn               chess.Color         `json:"turn"`
	State              chess.GameState     `json:"state"`
	MoveCount          int                 `json:"moveCount"`
	Pieces             []chess.Piece       `json:"pieces"`
	Moves              []chess.Move        `json:"moves"`
	Material           chess.MaterialCount `json:"material"`
	PieceValues        map[string]int      `json:"pieceValues"`
	SelfCheckFiltering bool                `json:"selfCheckFiltering"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// Summary is the listing form of a session.
type Summary struct {
	ID        string          `json:"id"`
	Turn      chess.Color     `json:"turn"`
	State     chess.GameState `json:"state"`
	MoveCount int             `json:"moveCount"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Manager manages live sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a fresh game from the standard layout.
func (m *Manager) Create(settings Settings) *Session {
	return m.Adopt(chess.NewEngine(settings.engineOptions()...), settings)
}

// Adopt registers an existing engine, e.g. one rebuilt from an archive.
func (m *Manager) Adopt(engine *chess.Engine, settings Settings) *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		engine:    engine,
		clock:     NewClock(settings.DaysPerMove, now),
		updated:   now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Info().
		Str("gameID", s.ID).
		Bool("selfCheckFiltering", engine.SelfCheckFiltering()).
		Int("moves", engine.MoveCount()).
		Msg("Game session created")

	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
}

// List returns summaries ordered by most recent activity.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// MoveHooks run under the session lock. Guard sees the side to move and may
// reject the move without touching the game. Committed sees each accepted
// result before any later move on the same session can land.
type MoveHooks struct {
	Guard     func(turn chess.Color) error
	Committed func(result *chess.MoveResult)
}

// Move applies a move given in either square notation.
func (s *Session) Move(from, to string, hooks MoveHooks) (*chess.MoveResult, error) {
	return s.moveAt(from, to, time.Now(), hooks)
}

func (s *Session) moveAt(from, to string, at time.Time, hooks MoveHooks) (*chess.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mover := s.engine.Turn()
	if hooks.Guard != nil {
		if err := hooks.Guard(mover); err != nil {
			return nil, err
		}
	}
	result, err := s.engine.MakeMove(from, to)
	if err != nil {
		return nil, err
	}

	s.clock.RecordMove(mover, at)
	s.updated = at
	if hooks.Committed != nil {
		hooks.Committed(result)
	}
	return result, nil
}

// Destinations lists where the piece on square may go, in coordinate order.
func (s *Session) Destinations(square string) ([]chess.Coord, error) {
	c, ok := chess.ParseSquare(square)
	if !ok {
		return nil, fmt.Errorf("%w: %q", chess.ErrInvalidSquare, square)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine.LegalDestinationsFor(c).Sorted(), nil
}

func (s *Session) Turn() chess.Color {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine.Turn()
}

func (s *Session) Moves() []chess.Move {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine.Moves()
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		ID:                 s.ID,
		Turn:               s.engine.Turn(),
		State:              s.engine.State(),
		MoveCount:          s.engine.MoveCount(),
		Pieces:             s.engine.Pieces(),
		Moves:              s.engine.Moves(),
		Material:           s.engine.GetMaterialCount(),
		PieceValues:        s.engine.GetPieceValues(),
		SelfCheckFiltering: s.engine.SelfCheckFiltering(),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.updated,
	}
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Summary{
		ID:        s.ID,
		Turn:      s.engine.Turn(),
		State:     s.engine.State(),
		MoveCount: s.engine.MoveCount(),
		UpdatedAt: s.updated,
	}
}

// Archive captures the game for export.
func (s *Session) Archive() record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return record.FromGame(s.ID, s.CreatedAt, s.engine)
}

// TimeRemaining reports how long the side to move has left under the
// correspondence clock.
func (s *Session) TimeRemaining(now time.Time) (chess.Color, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := s.engine.Turn()
	remaining, err := s.clock.TimeRemaining(turn, now)
	return turn, remaining, err
}

// CheckTimeout reports a violation if the side to move is past its deadline.
// Finished games never time out.
func (s *Session) CheckTimeout(now time.Time) *TimeViolation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.State().IsTerminal() {
		return nil
	}
	return s.clock.CheckTimeViolation(s.engine.Turn(), now)
}
