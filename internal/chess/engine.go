package chess

import (
	"fmt"
)

// Engine is a single game: the board, whose turn it is, the move history and
// the derived game state. It is not safe for concurrent use.
type Engine struct {
	board     *Board
	turn      Color
	moves     []Move
	state     GameState
	selfCheck bool
}

type Option func(*Engine)

// WithSelfCheckFiltering discards moves that would leave the mover's own king
// attacked. Without it, legality is purely geometric and declared check,
// checkmate and stalemate can be inaccurate in some positions.
func WithSelfCheckFiltering() Option {
	return func(e *Engine) {
		e.selfCheck = true
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		board: SetupBoard(),
		turn:  White,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.updateState()
	return e
}

// NewEngineFromPosition starts a game from an arbitrary set of pieces with
// turn to move and an empty history.
func NewEngineFromPosition(pieces []Piece, turn Color, opts ...Option) (*Engine, error) {
	board := NewBoard()
	for _, p := range pieces {
		if !p.Position.InBounds() {
			return nil, fmt.Errorf("%w: %s out of bounds", ErrBadPosition, p.Position)
		}
		if !board.IsEmpty(p.Position) {
			return nil, fmt.Errorf("%w: two pieces on %s", ErrBadPosition, p.Position)
		}
		board.Place(p)
	}

	e := &Engine{
		board: board,
		turn:  turn,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.updateState()
	return e, nil
}

// AttemptMove applies the move from -> to if it is legal for the side to move.
// A rejected move leaves the game untouched.
func (e *Engine) AttemptMove(from, to Coord) bool {
	_, err := e.move(from, to)
	return err == nil
}

// MakeMove is the text-entry form of AttemptMove. Squares may be written as
// "x,y,z" or algebraically ("E11").
func (e *Engine) MakeMove(from, to string) (*MoveResult, error) {
	fromSq, ok := ParseSquare(from)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSquare, from)
	}
	toSq, ok := ParseSquare(to)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSquare, to)
	}

	mv, err := e.move(fromSq, toSq)
	if err != nil {
		return nil, err
	}
	return e.result(mv), nil
}

func (e *Engine) move(from, to Coord) (Move, error) {
	if e.state.IsTerminal() {
		return Move{}, ErrGameOver
	}

	piece, ok := e.board.PieceAt(from)
	if !ok {
		return Move{}, fmt.Errorf("%w: %s", ErrNoPiece, from)
	}
	if piece.Color != e.turn {
		return Move{}, fmt.Errorf("%w: %s to move", ErrWrongTurn, e.turn)
	}
	if !e.destinations(piece).Has(to) {
		return Move{}, fmt.Errorf("%w: %s %s to %s", ErrIllegalMove, piece.Kind, from, to)
	}

	captured, didCapture := e.board.Relocate(from, to)
	moved, _ := e.board.PieceAt(to)

	mv := Move{From: from, To: to, Piece: moved}
	if didCapture {
		mv.Captured = &captured
	}
	e.moves = append(e.moves, mv)

	e.turn = e.turn.Opposite()
	e.updateState()

	return mv, nil
}

func (e *Engine) result(mv Move) *MoveResult {
	res := &MoveResult{
		From:       mv.From,
		To:         mv.To,
		Piece:      mv.Piece,
		MoveNumber: len(e.moves),
		Turn:       e.turn,
		State:      e.state,
		Check:      e.state == StateCheck || e.state == StateCheckmate,
		Checkmate:  e.state == StateCheckmate,
		Stalemate:  e.state == StateStalemate,
		GameOver:   e.state.IsTerminal(),
	}
	if mv.Captured != nil {
		captured := *mv.Captured
		res.Captured = &captured
	}
	if e.state == StateCheckmate {
		res.Winner = e.turn.Opposite().String()
	}
	return res
}

// LegalDestinationsFor returns where the piece on c may move. It is empty when
// c is empty or holds a piece of the side not to move.
func (e *Engine) LegalDestinationsFor(c Coord) CoordSet {
	piece, ok := e.board.PieceAt(c)
	if !ok || piece.Color != e.turn {
		return CoordSet{}
	}
	return e.destinations(piece)
}

func (e *Engine) destinations(p Piece) CoordSet {
	dest := LegalDestinations(p, e.board)
	if !e.selfCheck {
		return dest
	}
	for to := range dest {
		if e.exposesKing(p, to) {
			delete(dest, to)
		}
	}
	return dest
}

func (e *Engine) exposesKing(p Piece, to Coord) bool {
	sim := e.board.Clone()
	sim.Relocate(p.Position, to)
	return kingAttacked(sim, p.Color)
}

func kingAttacked(b *Board, color Color) bool {
	king, ok := b.King(color)
	if !ok {
		return false
	}
	return Attacks(color.Opposite(), king.Position, b)
}

func (e *Engine) hasMoves(color Color) bool {
	for _, p := range e.board.PiecesOf(color) {
		if e.destinations(p).Len() > 0 {
			return true
		}
	}
	return false
}

// updateState derives the state from the board and the side to move.
func (e *Engine) updateState() {
	inCheck := kingAttacked(e.board, e.turn)
	hasMoves := e.hasMoves(e.turn)

	switch {
	case inCheck && hasMoves:
		e.state = StateCheck
	case inCheck:
		e.state = StateCheckmate
	case hasMoves:
		e.state = StateActive
	default:
		e.state = StateStalemate
	}
}

func (e *Engine) Turn() Color {
	return e.turn
}

func (e *Engine) State() GameState {
	return e.state
}

func (e *Engine) SelfCheckFiltering() bool {
	return e.selfCheck
}

// Moves returns a copy of the history.
func (e *Engine) Moves() []Move {
	out := make([]Move, len(e.moves))
	for i, mv := range e.moves {
		if mv.Captured != nil {
			captured := *mv.Captured
			mv.Captured = &captured
		}
		out[i] = mv
	}
	return out
}

func (e *Engine) MoveCount() int {
	return len(e.moves)
}

func (e *Engine) PieceAt(c Coord) (Piece, bool) {
	return e.board.PieceAt(c)
}

func (e *Engine) Pieces() []Piece {
	return e.board.Pieces()
}

// Board returns a snapshot of the board. Changes to it do not affect the game.
func (e *Engine) Board() *Board {
	return e.board.Clone()
}
