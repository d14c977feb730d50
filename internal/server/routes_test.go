package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyanshu442004/WatchParty/internal/directory"
	"github.com/priyanshu442004/WatchParty/internal/signaling"
)

func newTestServer(t *testing.T) (*httptest.Server, directory.Repository) {
	t.Helper()
	repo := directory.NewMemoryRepository()
	handler := NewHandler(nil, repo, signaling.NewHub(nil))
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateRoom(t *testing.T) {
	srv, repo := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/rooms", "application/json",
		strings.NewReader(`{"name": "Movie Night"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var room directory.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	assert.Equal(t, "Movie Night", room.Name)
	assert.NotEmpty(t, room.ID)

	stored, err := repo.GetByID(t.Context(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Movie Night", stored.Name)
}

func TestCreateRoom_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{`{"name": "  "}`, `not json`} {
		resp, err := http.Post(srv.URL+"/api/rooms", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestListRooms(t *testing.T) {
	srv, repo := newTestServer(t)
	room, err := directory.NewRoom("Movie Night")
	require.NoError(t, err)
	require.NoError(t, repo.Create(t.Context(), room))

	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rooms []directory.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)
}

func TestGetRoom(t *testing.T) {
	srv, repo := newTestServer(t)
	room, err := directory.NewRoom("Movie Night")
	require.NoError(t, err)
	require.NoError(t, repo.Create(t.Context(), room))

	resp, err := http.Get(srv.URL + "/api/rooms/" + room.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail struct {
		Room             directory.Room             `json:"room"`
		Participants     map[string]json.RawMessage `json:"participants"`
		ParticipantCount int                        `json:"participant_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, room.ID, detail.Room.ID)
	assert.Empty(t, detail.Participants, "no live session yet")
	assert.Zero(t, detail.ParticipantCount)
}

func TestGetRoom_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/rooms/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
