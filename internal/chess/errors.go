package chess

import "errors"

// Rejection reasons for a move request. The engine never mutates state when it
// returns one of these.
var (
	ErrInvalidSquare = errors.New("invalid square")
	ErrGameOver      = errors.New("game is over")
	ErrNoPiece       = errors.New("no piece at source square")
	ErrWrongTurn     = errors.New("not your turn")
	ErrIllegalMove   = errors.New("illegal move")
	ErrBadPosition   = errors.New("invalid position")
)
