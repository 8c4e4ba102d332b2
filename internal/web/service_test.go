package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinabrahms/atchess3d/internal/auth"
	"github.com/justinabrahms/atchess3d/internal/chess"
	"github.com/justinabrahms/atchess3d/internal/config"
	"github.com/justinabrahms/atchess3d/internal/record"
	"github.com/justinabrahms/atchess3d/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, secret string) (*Service, *mux.Router) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	svc := NewService(session.NewManager(), hub, auth.NewSigner(secret, time.Hour), &config.Config{})
	return svc, svc.Router()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func createGame(t *testing.T, router http.Handler, body interface{}) CreateGameResponse {
	t.Helper()

	rr := doRequest(t, router, "POST", "/api/games", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp CreateGameResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler(t *testing.T) {
	_, router := newTestService(t, "")

	rr := doRequest(t, router, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["auth"])
}

func TestCreateGameHandler(t *testing.T) {
	_, router := newTestService(t, "")

	resp := createGame(t, router, nil)
	assert.NotEmpty(t, resp.Game.ID)
	assert.Equal(t, chess.White, resp.Game.Turn)
	assert.Equal(t, chess.StateActive, resp.Game.State)
	assert.Len(t, resp.Game.Pieces, 32)
	assert.False(t, resp.Game.SelfCheckFiltering)
	assert.Empty(t, resp.Tokens)

	filtering := true
	resp = createGame(t, router, CreateGameRequest{SelfCheckFiltering: &filtering})
	assert.True(t, resp.Game.SelfCheckFiltering)
}

func TestCreateGameRejectsBadBody(t *testing.T) {
	_, router := newTestService(t, "")

	rr := doRequest(t, router, "POST", "/api/games", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, days := range []int{-1, session.MaxDaysPerMove + 1, 200000} {
		days := days
		rr = doRequest(t, router, "POST", "/api/games", CreateGameRequest{DaysPerMove: &days})
		assert.Equal(t, http.StatusBadRequest, rr.Code, "daysPerMove %d", days)
	}
}

func TestGetGameHandler(t *testing.T) {
	_, router := newTestService(t, "")
	id := createGame(t, router, nil).Game.ID

	rr := doRequest(t, router, "GET", "/api/games/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var view session.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, 9, view.PieceValues["queen"])
	assert.Equal(t, 1, view.PieceValues["pawn"])

	rr = doRequest(t, router, "GET", "/api/games/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDestinationsHandler(t *testing.T) {
	_, router := newTestService(t, "")
	id := createGame(t, router, nil).Game.ID

	rr := doRequest(t, router, "GET", "/api/games/"+id+"/destinations?from=B11", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp DestinationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, chess.C(2, 1, 1), resp.From)
	assert.Contains(t, resp.Destinations, chess.C(3, 3, 1))
	assert.Contains(t, resp.Destinations, chess.C(1, 3, 1))

	rr = doRequest(t, router, "GET", "/api/games/"+id+"/destinations?from=9,9,9", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, "GET", "/api/games/"+id+"/destinations?from=4,4,4", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Empty(t, resp.Destinations)
}

func TestMakeMoveHandler(t *testing.T) {
	_, router := newTestService(t, "")
	id := createGame(t, router, nil).Game.ID

	rr := doRequest(t, router, "POST", "/api/games/"+id+"/moves", MakeMoveRequest{From: "E21", To: "5,4,1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result chess.MoveResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, chess.C(5, 2, 1), result.From)
	assert.Equal(t, chess.C(5, 4, 1), result.To)
	assert.Equal(t, chess.Black, result.Turn)
	assert.Equal(t, 1, result.MoveNumber)

	rr = doRequest(t, router, "GET", "/api/games/"+id+"/moves", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var history struct {
		Moves []chess.Move `json:"moves"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	assert.Equal(t, 1, history.Count)
	assert.Equal(t, chess.C(5, 4, 1), history.Moves[0].To)
}

func TestMakeMoveRejections(t *testing.T) {
	_, router := newTestService(t, "")
	id := createGame(t, router, nil).Game.ID

	tests := []struct {
		name string
		body interface{}
		path string
		code int
	}{
		{"unknown game", MakeMoveRequest{From: "5,2,1", To: "5,4,1"}, "/api/games/nope/moves", http.StatusNotFound},
		{"bad body", []byte("nope"), "/api/games/" + id + "/moves", http.StatusBadRequest},
		{"bad square", MakeMoveRequest{From: "Z99", To: "5,4,1"}, "/api/games/" + id + "/moves", http.StatusBadRequest},
		{"empty square", MakeMoveRequest{From: "4,4,4", To: "4,5,4"}, "/api/games/" + id + "/moves", http.StatusBadRequest},
		{"wrong turn", MakeMoveRequest{From: "1,7,1", To: "1,6,1"}, "/api/games/" + id + "/moves", http.StatusBadRequest},
		{"illegal", MakeMoveRequest{From: "1,2,1", To: "1,5,1"}, "/api/games/" + id + "/moves", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", tt.path, tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}

	rr := doRequest(t, router, "GET", "/api/games/"+id, nil)
	var view session.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, 0, view.MoveCount)
}

func TestSeatTokens(t *testing.T) {
	_, router := newTestService(t, "test-secret")
	created := createGame(t, router, nil)
	id := created.Game.ID

	require.Len(t, created.Tokens, 2)
	white, black := created.Tokens[chess.White], created.Tokens[chess.Black]

	move := MakeMoveRequest{From: "5,2,1", To: "5,4,1"}
	path := "/api/games/" + id + "/moves"

	rr := doRequest(t, router, "POST", path, move)
	assert.Equal(t, http.StatusForbidden, rr.Code, "missing token")

	rr = doRequest(t, router, "POST", path, move, "Authorization", "Bearer "+black)
	assert.Equal(t, http.StatusForbidden, rr.Code, "black token on white's turn")

	other := createGame(t, router, nil)
	rr = doRequest(t, router, "POST", path, move, "Authorization", "Bearer "+other.Tokens[chess.White])
	assert.Equal(t, http.StatusForbidden, rr.Code, "token for another game")

	rr = doRequest(t, router, "POST", path, move, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusForbidden, rr.Code, "malformed token")

	rr = doRequest(t, router, "POST", path, move, "Authorization", "Bearer "+white)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, router, "POST", path, MakeMoveRequest{From: "5,7,1", To: "5,5,1"}, "Authorization", "bearer "+black)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestClockHandler(t *testing.T) {
	svc, router := newTestService(t, "")
	start := time.Now()
	svc.now = func() time.Time { return start.Add(time.Hour) }

	untimed := createGame(t, router, nil).Game.ID
	rr := doRequest(t, router, "GET", "/api/games/"+untimed+"/clock", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["timeControl"])

	days := 3
	timed := createGame(t, router, CreateGameRequest{DaysPerMove: &days}).Game.ID
	rr = doRequest(t, router, "GET", "/api/games/"+timed+"/clock", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = nil
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["timeControl"])
	assert.Equal(t, "white", body["turn"])
	assert.Equal(t, false, body["hasViolation"])
	assert.Greater(t, body["remainingSeconds"].(float64), float64(2*24*60*60))

	svc.now = func() time.Time { return start.Add(4 * 24 * time.Hour) }
	rr = doRequest(t, router, "GET", "/api/games/"+timed+"/clock", nil)
	body = nil
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["hasViolation"])
	assert.Equal(t, "Time expired", body["remainingFormatted"])
}

func TestExportImportRoundTrip(t *testing.T) {
	_, router := newTestService(t, "")
	id := createGame(t, router, nil).Game.ID

	for _, mv := range []MakeMoveRequest{
		{From: "5,2,1", To: "5,4,1"},
		{From: "5,7,1", To: "5,5,1"},
		{From: "B11", To: "C31"},
	} {
		rr := doRequest(t, router, "POST", "/api/games/"+id+"/moves", mv)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := doRequest(t, router, "GET", "/api/games/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.ipld.car", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Root-CID"))
	archive := rr.Body.Bytes()

	rec, root, err := record.ReadCAR(bytes.NewReader(archive))
	require.NoError(t, err)
	assert.Equal(t, id, rec.GameID)
	assert.Equal(t, root.String(), rr.Header().Get("X-Root-CID"))

	rr = doRequest(t, router, "GET", "/api/games/"+id+"/export", nil, "If-None-Match", rr.Header().Get("ETag"))
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.Bytes())

	rr = doRequest(t, router, "POST", "/api/games/import", archive)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var imported CreateGameResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &imported))
	assert.NotEqual(t, id, imported.Game.ID)
	assert.Equal(t, 3, imported.Game.MoveCount)
	assert.Equal(t, chess.Black, imported.Game.Turn)

	rr = doRequest(t, router, "GET", "/api/games/"+id, nil)
	var original session.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &original))
	assert.Equal(t, original.Pieces, imported.Game.Pieces)
}

func TestImportRejectsBadArchives(t *testing.T) {
	_, router := newTestService(t, "")

	rr := doRequest(t, router, "POST", "/api/games/import", []byte("definitely not a car"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	illegal := record.Record{
		GameID:    "forged",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Moves:     []record.MoveEntry{{From: chess.C(1, 2, 1), To: chess.C(1, 6, 1)}},
	}
	data, _, err := record.MarshalCAR(illegal)
	require.NoError(t, err)

	rr = doRequest(t, router, "POST", "/api/games/import", data)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "illegal"), rr.Body.String())
}
