package chess

import (
	"encoding/json"
	"testing"
)

// TestMoveResultJSONSerializationAlwaysIncludesRequiredFields ensures that
// MoveResult structs always serialize to JSON with the expected field names
func TestMoveResultJSONSerializationAlwaysIncludesRequiredFields(t *testing.T) {
	engine := NewEngine()
	moveResult, err := engine.MakeMove("1,2,1", "1,4,1")
	if err != nil {
		t.Fatalf("Failed to make move: %v", err)
	}

	jsonData, err := json.Marshal(moveResult)
	if err != nil {
		t.Fatalf("Failed to marshal MoveResult: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(jsonData, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	expectedFields := []string{"from", "to", "piece", "moveNumber", "turn", "state", "check", "checkmate", "stalemate", "gameOver"}
	for _, field := range expectedFields {
		if _, exists := parsed[field]; !exists {
			t.Errorf("Missing field in JSON: %s", field)
		}
	}

	if parsed["from"] != "1,2,1" {
		t.Errorf("Expected from=1,2,1, got %v", parsed["from"])
	}
	if parsed["turn"] != "black" {
		t.Errorf("Expected turn=black, got %v", parsed["turn"])
	}
	if parsed["state"] != string(StateActive) {
		t.Errorf("Expected state=active, got %v", parsed["state"])
	}

	piece, ok := parsed["piece"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected piece object, got %T", parsed["piece"])
	}
	if piece["kind"] != "pawn" || piece["color"] != "white" || piece["position"] != "1,4,1" {
		t.Errorf("Unexpected piece encoding: %v", piece)
	}
}

// TestPieceJSONRoundTrip ensures pieces survive the wire format used by the
// HTTP layer and the archive format.
func TestPieceJSONRoundTrip(t *testing.T) {
	original := Piece{Kind: Knight, Color: Black, Position: C(7, 8, 8), HasMoved: true}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal piece: %v", err)
	}

	var decoded Piece
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal piece: %v", err)
	}
	if decoded != original {
		t.Errorf("Round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

// TestStateIsNeverSetIndependently replays a short game and checks that the
// stored state always matches a fresh derivation from the same position.
func TestStateIsNeverSetIndependently(t *testing.T) {
	engine := NewEngine()
	moves := [][2]Coord{
		{C(5, 2, 1), C(5, 2, 2)},
		{C(5, 7, 1), C(5, 5, 1)},
		{C(4, 1, 1), C(4, 1, 5)},
		{C(4, 8, 8), C(4, 4, 4)},
	}

	for i, mv := range moves {
		if !engine.AttemptMove(mv[0], mv[1]) {
			t.Fatalf("Move %d (%s -> %s) rejected", i+1, mv[0], mv[1])
		}

		fresh, err := NewEngineFromPosition(engine.Pieces(), engine.Turn())
		if err != nil {
			t.Fatalf("Failed to rebuild position: %v", err)
		}
		if fresh.State() != engine.State() {
			t.Errorf("After move %d: stored state %s, derived %s", i+1, engine.State(), fresh.State())
		}
	}
}

// TestRejectedMovesNeverChangeTheGame ensures every rejection path is free
// of side effects.
func TestRejectedMovesNeverChangeTheGame(t *testing.T) {
	engine := NewEngine()
	before := engine.Pieces()

	for _, p := range engine.Board().PiecesOf(Black) {
		for to := range LegalDestinations(p, engine.Board()) {
			if engine.AttemptMove(p.Position, to) {
				t.Fatalf("Black move %s -> %s accepted on white's turn", p.Position, to)
			}
		}
	}

	if engine.MoveCount() != 0 || engine.Turn() != White {
		t.Errorf("Game changed after rejected moves")
	}
	after := engine.Pieces()
	if len(after) != len(before) {
		t.Fatalf("Piece count changed from %d to %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Piece %d changed from %+v to %+v", i, before[i], after[i])
		}
	}
}
