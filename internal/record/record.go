// Package record serialises finished or in-progress games as DAG-CBOR
// blocks and packs them into CAR archives.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	ipld "github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/fluent/qp"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"github.com/justinabrahms/atchess3d/internal/chess"
)

// RecordType tags every encoded game.
const RecordType = "app.atchess3d.game"

var ErrMalformedRecord = errors.New("malformed game record")

// Record is the archived form of a game. Moves are kept as square pairs; the
// rest of the game is rebuilt by replaying them.
type Record struct {
	GameID             string
	CreatedAt          time.Time
	SelfCheckFiltering bool
	Moves              []MoveEntry
	State              chess.GameState
}

type MoveEntry struct {
	From chess.Coord
	To   chess.Coord
}

// FromGame captures the history of a game.
func FromGame(gameID string, createdAt time.Time, engine *chess.Engine) Record {
	moves := engine.Moves()
	entries := make([]MoveEntry, 0, len(moves))
	for _, mv := range moves {
		entries = append(entries, MoveEntry{From: mv.From, To: mv.To})
	}
	return Record{
		GameID:             gameID,
		CreatedAt:          createdAt.UTC(),
		SelfCheckFiltering: engine.SelfCheckFiltering(),
		Moves:              entries,
		State:              engine.State(),
	}
}

// Node builds the IPLD data model form of the record.
func (r Record) Node() (ipld.Node, error) {
	return qp.BuildMap(basicnode.Prototype.Any, 6, func(ma ipld.MapAssembler) {
		qp.MapEntry(ma, "$type", qp.String(RecordType))
		qp.MapEntry(ma, "id", qp.String(r.GameID))
		qp.MapEntry(ma, "createdAt", qp.String(r.CreatedAt.Format(time.RFC3339)))
		qp.MapEntry(ma, "selfCheckFiltering", qp.Bool(r.SelfCheckFiltering))
		qp.MapEntry(ma, "state", qp.String(string(r.State)))
		qp.MapEntry(ma, "moves", qp.List(int64(len(r.Moves)), func(la ipld.ListAssembler) {
			for _, mv := range r.Moves {
				qp.ListEntry(la, qp.Map(2, func(ma ipld.MapAssembler) {
					qp.MapEntry(ma, "from", qp.String(mv.From.String()))
					qp.MapEntry(ma, "to", qp.String(mv.To.String()))
				}))
			}
		}))
	})
}

// Encode serialises the record as DAG-CBOR.
func (r Record) Encode() ([]byte, error) {
	node, err := r.Node()
	if err != nil {
		return nil, fmt.Errorf("failed to build record node: %w", err)
	}

	var buf bytes.Buffer
	if err := dagcbor.Encode(node, &buf); err != nil {
		return nil, fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a DAG-CBOR record.
func Decode(data []byte) (Record, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := dagcbor.Decode(nb, bytes.NewReader(data)); err != nil {
		return Record{}, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return fromNode(nb.Build())
}

func fromNode(node ipld.Node) (Record, error) {
	if node.Kind() != ipld.Kind_Map {
		return Record{}, fmt.Errorf("%w: expected map, got %s", ErrMalformedRecord, node.Kind())
	}

	recordType, err := stringField(node, "$type")
	if err != nil {
		return Record{}, err
	}
	if recordType != RecordType {
		return Record{}, fmt.Errorf("%w: unexpected type %q", ErrMalformedRecord, recordType)
	}

	var r Record
	if r.GameID, err = stringField(node, "id"); err != nil {
		return Record{}, err
	}

	created, err := stringField(node, "createdAt")
	if err != nil {
		return Record{}, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return Record{}, fmt.Errorf("%w: createdAt: %v", ErrMalformedRecord, err)
	}

	state, err := stringField(node, "state")
	if err != nil {
		return Record{}, err
	}
	r.State = chess.GameState(state)

	if filtering, err := node.LookupByString("selfCheckFiltering"); err == nil {
		if r.SelfCheckFiltering, err = filtering.AsBool(); err != nil {
			return Record{}, fmt.Errorf("%w: selfCheckFiltering: %v", ErrMalformedRecord, err)
		}
	}

	moves, err := node.LookupByString("moves")
	if err != nil {
		return Record{}, fmt.Errorf("%w: moves: %v", ErrMalformedRecord, err)
	}
	if moves.Kind() != ipld.Kind_List {
		return Record{}, fmt.Errorf("%w: moves is %s", ErrMalformedRecord, moves.Kind())
	}

	iter := moves.ListIterator()
	for !iter.Done() {
		idx, entry, err := iter.Next()
		if err != nil {
			return Record{}, err
		}
		mv, err := moveFromNode(entry)
		if err != nil {
			return Record{}, fmt.Errorf("move %d: %w", idx+1, err)
		}
		r.Moves = append(r.Moves, mv)
	}

	return r, nil
}

func moveFromNode(node ipld.Node) (MoveEntry, error) {
	var mv MoveEntry
	for field, dst := range map[string]*chess.Coord{"from": &mv.From, "to": &mv.To} {
		s, err := stringField(node, field)
		if err != nil {
			return MoveEntry{}, err
		}
		c, ok := chess.ParseCoord(s)
		if !ok {
			return MoveEntry{}, fmt.Errorf("%w: %s %q", ErrMalformedRecord, field, s)
		}
		*dst = c
	}
	return mv, nil
}

func stringField(node ipld.Node, key string) (string, error) {
	field, err := node.LookupByString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	s, err := field.AsString()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	return s, nil
}

// Replay rebuilds the game by applying every recorded move in order.
func Replay(r Record, opts ...chess.Option) (*chess.Engine, error) {
	if r.SelfCheckFiltering {
		opts = append(opts, chess.WithSelfCheckFiltering())
	}
	engine := chess.NewEngine(opts...)
	for i, mv := range r.Moves {
		if !engine.AttemptMove(mv.From, mv.To) {
			return nil, fmt.Errorf("%w: move %d (%s to %s)", chess.ErrIllegalMove, i+1, mv.From, mv.To)
		}
	}
	if r.State != "" && r.State != engine.State() {
		return nil, fmt.Errorf("%w: recorded state %s, replayed %s", ErrMalformedRecord, r.State, engine.State())
	}
	return engine, nil
}
