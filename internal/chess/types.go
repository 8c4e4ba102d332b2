package chess

import "fmt"

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PawnDirection is the sign of a pawn's advance along y and z.
func (c Color) PawnDirection() int {
	if c == White {
		return 1
	}
	return -1
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, ok := ParseColor(string(text))
	if !ok {
		return fmt.Errorf("unknown color %q", string(text))
	}
	*c = parsed
	return nil
}

func ParseColor(s string) (Color, bool) {
	switch s {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return White, false
	}
}

// Kind is the closed set of piece types.
type Kind uint8

const (
	Pawn Kind = iota
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindNames = [...]string{
	Pawn:   "pawn",
	Rook:   "rook",
	Knight: "knight",
	Bishop: "bishop",
	Queen:  "queen",
	King:   "king",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown piece kind %q", string(text))
	}
	*k = parsed
	return nil
}

func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return Pawn, false
}

// Piece is an occupant of the board. It has no identity beyond its square.
type Piece struct {
	Kind     Kind  `json:"kind"`
	Color    Color `json:"color"`
	Position Coord `json:"position"`
	HasMoved bool  `json:"hasMoved,omitempty"`
}

// Move is an accepted move. Piece is the mover as it stands after the move.
type Move struct {
	From     Coord  `json:"from"`
	To       Coord  `json:"to"`
	Piece    Piece  `json:"piece"`
	Captured *Piece `json:"captured,omitempty"`
}

type GameState string

const (
	StateActive    GameState = "active"
	StateCheck     GameState = "check"
	StateCheckmate GameState = "checkmate"
	StateStalemate GameState = "stalemate"
)

// IsTerminal reports whether no further moves are accepted.
func (s GameState) IsTerminal() bool {
	return s == StateCheckmate || s == StateStalemate
}

type MoveResult struct {
	From       Coord     `json:"from"`
	To         Coord     `json:"to"`
	Piece      Piece     `json:"piece"`
	Captured   *Piece    `json:"captured,omitempty"`
	MoveNumber int       `json:"moveNumber"`
	Turn       Color     `json:"turn"`
	State      GameState `json:"state"`
	Check      bool      `json:"check"`
	Checkmate  bool      `json:"checkmate"`
	Stalemate  bool      `json:"stalemate"`
	GameOver   bool      `json:"gameOver"`
	Winner     string    `json:"winner,omitempty"`
}

// MaterialCount represents the material count for both sides
type MaterialCount struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// StandardPieceValues maps piece kinds to their conventional values.
var StandardPieceValues = map[Kind]int{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
	King:   0, // King has no material value
}
