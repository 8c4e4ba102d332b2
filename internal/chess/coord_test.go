package chess

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordStringRoundTrip(t *testing.T) {
	for x := 1; x <= BoardSize; x++ {
		for y := 1; y <= BoardSize; y++ {
			for z := 1; z <= BoardSize; z++ {
				c := C(x, y, z)
				parsed, ok := ParseCoord(c.String())
				if !ok || parsed != c {
					t.Fatalf("ParseCoord(%q) = %v, %v; want %v", c.String(), parsed, ok, c)
				}
				parsed, ok = ParseAlgebraic(c.Algebraic())
				if !ok || parsed != c {
					t.Fatalf("ParseAlgebraic(%q) = %v, %v; want %v", c.Algebraic(), parsed, ok, c)
				}
			}
		}
	}
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		input string
		want  Coord
		ok    bool
	}{
		{"1,1,1", C(1, 1, 1), true},
		{"8,8,8", C(8, 8, 8), true},
		{" 3, 4 ,5 ", C(3, 4, 5), true},
		{"0,1,1", Coord{}, false},
		{"1,9,1", Coord{}, false},
		{"1,1", Coord{}, false},
		{"1,1,1,1", Coord{}, false},
		{"a,b,c", Coord{}, false},
		{"+1,2,3", Coord{}, false},
		{"1,02,3", Coord{}, false},
		{"1,2,-3", Coord{}, false},
		{"", Coord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCoord(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAlgebraic(t *testing.T) {
	tests := []struct {
		input string
		want  Coord
		ok    bool
	}{
		{"A11", C(1, 1, 1), true},
		{"H88", C(8, 8, 8), true},
		{"e23", C(5, 2, 3), true},
		{"A1", Coord{}, false},
		{"", Coord{}, false},
		{"I11", Coord{}, false},
		{"A91", Coord{}, false},
		{"A10", Coord{}, false},
		{"A111", Coord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseAlgebraic(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSquareAcceptsBothForms(t *testing.T) {
	c, ok := ParseSquare("2,1,1")
	require.True(t, ok)
	assert.Equal(t, C(2, 1, 1), c)

	c, ok = ParseSquare("B11")
	require.True(t, ok)
	assert.Equal(t, C(2, 1, 1), c)

	_, ok = ParseSquare("nonsense")
	assert.False(t, ok)
}

func TestCoordJSON(t *testing.T) {
	data, err := json.Marshal(map[Coord]int{C(1, 2, 3): 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"1,2,3":7}`, string(data))

	var decoded struct {
		At Coord `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"D45"}`), &decoded))
	assert.Equal(t, C(4, 4, 5), decoded.At)

	err = json.Unmarshal([]byte(`{"at":"9,9,9"}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidSquare)
}
