package chess

import (
	"slices"

	"golang.org/x/exp/maps"
)

// Board is a sparse mapping from coordinate to occupant. An absent key is an
// empty cell. Callers only ever receive copies of pieces.
type Board struct {
	cells map[Coord]Piece
}

var backRank = [BoardSize]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

func NewBoard() *Board {
	return &Board{cells: make(map[Coord]Piece)}
}

// SetupBoard returns the starting layout. White's pieces sit on y=1 and its
// pawns on y=2, both on layer z=1. Black's pieces sit on y=8 of layer z=8,
// while Black's pawns stand on y=7 of layer z=1.
func SetupBoard() *Board {
	b := NewBoard()
	for i, kind := range backRank {
		x := i + 1
		b.Place(Piece{Kind: kind, Color: White, Position: C(x, 1, 1)})
		b.Place(Piece{Kind: Pawn, Color: White, Position: C(x, 2, 1)})
		b.Place(Piece{Kind: kind, Color: Black, Position: C(x, 8, 8)})
		b.Place(Piece{Kind: Pawn, Color: Black, Position: C(x, 7, 1)})
	}
	return b
}

// Place puts p on the board at p.Position, replacing any occupant.
func (b *Board) Place(p Piece) {
	if !p.Position.InBounds() {
		return
	}
	b.cells[p.Position] = p
}

func (b *Board) PieceAt(c Coord) (Piece, bool) {
	p, ok := b.cells[c]
	return p, ok
}

func (b *Board) IsEmpty(c Coord) bool {
	_, ok := b.cells[c]
	return !ok
}

// Remove deletes and returns the occupant of c.
func (b *Board) Remove(c Coord) (Piece, bool) {
	p, ok := b.cells[c]
	if ok {
		delete(b.cells, c)
	}
	return p, ok
}

// Relocate moves the occupant of from to to, capturing whatever stood there.
// It returns the captured piece, if any. An empty source leaves the board
// untouched.
func (b *Board) Relocate(from, to Coord) (Piece, bool) {
	mover, ok := b.cells[from]
	if !ok {
		return Piece{}, false
	}

	captured, didCapture := b.Remove(to)
	delete(b.cells, from)

	mover.Position = to
	mover.HasMoved = true
	b.cells[to] = mover

	return captured, didCapture
}

// PiecesOf returns the pieces of one color ordered by coordinate.
func (b *Board) PiecesOf(color Color) []Piece {
	pieces := make([]Piece, 0, 16)
	for _, c := range b.coords() {
		if p := b.cells[c]; p.Color == color {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// Pieces returns every piece ordered by coordinate.
func (b *Board) Pieces() []Piece {
	pieces := make([]Piece, 0, len(b.cells))
	for _, c := range b.coords() {
		pieces = append(pieces, b.cells[c])
	}
	return pieces
}

// King returns the king of the given color.
func (b *Board) King(color Color) (Piece, bool) {
	for _, p := range b.PiecesOf(color) {
		if p.Kind == King {
			return p, true
		}
	}
	return Piece{}, false
}

func (b *Board) Len() int {
	return len(b.cells)
}

func (b *Board) Clone() *Board {
	return &Board{cells: maps.Clone(b.cells)}
}

func (b *Board) coords() []Coord {
	keys := maps.Keys(b.cells)
	slices.SortFunc(keys, compareCoords)
	return keys
}

func compareCoords(a, b Coord) int {
	if a.X != b.X {
		return a.X - b.X
	}
	if a.Y != b.Y {
		return a.Y - b.Y
	}
	return a.Z - b.Z
}
