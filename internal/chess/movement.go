package chess

import "slices"

// CoordSet is an unordered set of destination squares.
type CoordSet map[Coord]struct{}

func (s CoordSet) Add(c Coord) {
	s[c] = struct{}{}
}

func (s CoordSet) Has(c Coord) bool {
	_, ok := s[c]
	return ok
}

func (s CoordSet) Len() int {
	return len(s)
}

// Sorted returns the members ordered by x, then y, then z.
func (s CoordSet) Sorted() []Coord {
	out := make([]Coord, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.SortFunc(out, compareCoords)
	return out
}

var (
	rookDirections   []Vector
	bishopDirections []Vector
	queenDirections  []Vector
	kingOffsets      []Vector
	knightOffsets    []Vector
)

func init() {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				v := Vector{DX: dx, DY: dy, DZ: dz}
				switch nonZero(v) {
				case 0:
					continue
				case 1:
					rookDirections = append(rookDirections, v)
				default:
					bishopDirections = append(bishopDirections, v)
				}
				kingOffsets = append(kingOffsets, v)
			}
		}
	}
	queenDirections = append(append([]Vector{}, rookDirections...), bishopDirections...)

	// The classic L in each of the xy, xz and yz planes.
	for _, l := range [][2]int{{1, 2}, {2, 1}, {-1, 2}, {-2, 1}, {1, -2}, {2, -1}, {-1, -2}, {-2, -1}} {
		knightOffsets = append(knightOffsets,
			Vector{DX: l[0], DY: l[1]},
			Vector{DX: l[0], DZ: l[1]},
			Vector{DY: l[0], DZ: l[1]},
		)
	}
}

func nonZero(v Vector) int {
	n := 0
	for _, d := range []int{v.DX, v.DY, v.DZ} {
		if d != 0 {
			n++
		}
	}
	return n
}

// LegalDestinations enumerates every square p may move to on b by movement
// rules alone. It does not consider whether the move exposes p's own king.
func LegalDestinations(p Piece, b *Board) CoordSet {
	dest := make(CoordSet)
	switch p.Kind {
	case Pawn:
		pawnDestinations(p, b, dest)
	case Rook:
		slide(p, b, rookDirections, dest)
	case Knight:
		stepTo(p, b, knightOffsets, dest)
	case Bishop:
		slide(p, b, bishopDirections, dest)
	case Queen:
		slide(p, b, queenDirections, dest)
	case King:
		stepTo(p, b, kingOffsets, dest)
	}
	return dest
}

// IsLegalMove reports whether target is among p's legal destinations.
func IsLegalMove(p Piece, target Coord, b *Board) bool {
	return LegalDestinations(p, b).Has(target)
}

// Attacks reports whether any piece of color can reach target.
func Attacks(color Color, target Coord, b *Board) bool {
	for _, p := range b.PiecesOf(color) {
		if LegalDestinations(p, b).Has(target) {
			return true
		}
	}
	return false
}

// slide walks each ray until the edge, a friendly piece (excluded) or an
// enemy piece (included).
func slide(p Piece, b *Board, dirs []Vector, dest CoordSet) {
	for _, d := range dirs {
		for c := p.Position.Add(d); c.InBounds(); c = c.Add(d) {
			occupant, occupied := b.PieceAt(c)
			if !occupied {
				dest.Add(c)
				continue
			}
			if occupant.Color != p.Color {
				dest.Add(c)
			}
			break
		}
	}
}

// stepTo adds each single jump that lands in bounds on an empty or enemy square.
func stepTo(p Piece, b *Board, offsets []Vector, dest CoordSet) {
	for _, off := range offsets {
		c := p.Position.Add(off)
		if !c.InBounds() {
			continue
		}
		if occupant, occupied := b.PieceAt(c); occupied && occupant.Color == p.Color {
			continue
		}
		dest.Add(c)
	}
}

func pawnDestinations(p Piece, b *Board, dest CoordSet) {
	dir := p.Color.PawnDirection()
	pos := p.Position

	enemyAt := func(c Coord) bool {
		if !c.InBounds() {
			return false
		}
		occupant, occupied := b.PieceAt(c)
		return occupied && occupant.Color != p.Color
	}
	emptyAt := func(c Coord) bool {
		return c.InBounds() && b.IsEmpty(c)
	}

	single := pos.Add(Vector{DY: dir})
	if emptyAt(single) {
		dest.Add(single)
		double := pos.Add(Vector{DY: 2 * dir})
		if !p.HasMoved && emptyAt(double) {
			dest.Add(double)
		}
	}

	for _, dx := range []int{-1, 1} {
		if c := pos.Add(Vector{DX: dx, DY: dir}); enemyAt(c) {
			dest.Add(c)
		}
	}

	if up := pos.Add(Vector{DZ: dir}); emptyAt(up) {
		dest.Add(up)
	}

	for _, dx := range []int{-1, 1} {
		for _, dz := range []int{-1, 1} {
			if c := pos.Add(Vector{DX: dx, DY: dir, DZ: dz}); enemyAt(c) {
				dest.Add(c)
			}
		}
	}
}
