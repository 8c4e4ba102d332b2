package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the length of every axis of the cube.
const BoardSize = 8

// Coord is a cell of the 8x8x8 lattice. Each axis ranges from 1 to BoardSize.
type Coord struct {
	X int
	Y int
	Z int
}

// Vector is a displacement between two coordinates.
type Vector struct {
	DX int
	DY int
	DZ int
}

// C is shorthand for building a coordinate.
func C(x, y, z int) Coord {
	return Coord{X: x, Y: y, Z: z}
}

func inRange(v int) bool {
	return v >= 1 && v <= BoardSize
}

// InBounds reports whether every axis lies inside the board.
func (c Coord) InBounds() bool {
	return inRange(c.X) && inRange(c.Y) && inRange(c.Z)
}

// Add returns c displaced by v. The result may be out of bounds.
func (c Coord) Add(v Vector) Coord {
	return Coord{X: c.X + v.DX, Y: c.Y + v.DY, Z: c.Z + v.DZ}
}

// String encodes the coordinate as "x,y,z".
func (c Coord) String() string {
	return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z)
}

// Algebraic encodes the coordinate with the first axis as a letter, e.g. "A11".
func (c Coord) Algebraic() string {
	if !c.InBounds() {
		return ""
	}
	return fmt.Sprintf("%c%d%d", 'A'+rune(c.X-1), c.Y, c.Z)
}

// ParseCoord decodes the "x,y,z" form. Each axis must be a single digit from
// 1 to 8; signs and leading zeros are rejected.
func ParseCoord(s string) (Coord, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Coord{}, false
	}

	var axes [3]int
	for i, part := range parts {
		part = strings.TrimSpace(part)
		v, err := strconv.Atoi(part)
		if err != nil || !inRange(v) || strconv.Itoa(v) != part {
			return Coord{}, false
		}
		axes[i] = v
	}

	return Coord{X: axes[0], Y: axes[1], Z: axes[2]}, true
}

// ParseAlgebraic decodes the letter-digit-digit form ("A11" through "H88").
func ParseAlgebraic(s string) (Coord, bool) {
	if len(s) != 3 {
		return Coord{}, false
	}

	file := s[0]
	if file >= 'a' && file <= 'h' {
		file -= 'a' - 'A'
	}
	x := int(file-'A') + 1
	y := int(s[1]-'0')
	z := int(s[2]-'0')

	c := Coord{X: x, Y: y, Z: z}
	if !c.InBounds() {
		return Coord{}, false
	}
	return c, true
}

// ParseSquare accepts either the "x,y,z" or the algebraic form.
func ParseSquare(s string) (Coord, bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		return ParseCoord(s)
	}
	return ParseAlgebraic(s)
}

// MarshalText implements encoding.TextMarshaler so coordinates can be used as
// JSON values and map keys.
func (c Coord) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Coord) UnmarshalText(text []byte) error {
	parsed, ok := ParseSquare(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidSquare, string(text))
	}
	*c = parsed
	return nil
}
