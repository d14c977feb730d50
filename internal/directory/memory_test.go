package directory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom(t *testing.T) {
	room, err := NewRoom("  Movie Night  ")
	require.NoError(t, err)
	assert.Equal(t, "Movie Night", room.Name)
	assert.NotEmpty(t, room.ID)
	assert.False(t, room.CreatedAt.IsZero())

	_, err = NewRoom("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	long, err := NewRoom(strings.Repeat("x", 500))
	require.NoError(t, err)
	assert.Len(t, long.Name, maxRoomNameLength)
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	room, err := NewRoom("Movie Night")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, room))

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.Name, got.Name)

	// The repository hands out copies, not shared pointers.
	got.Name = "mutated"
	again, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Movie Night", again.Name)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMemoryRepository_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	older := &Room{ID: "a", Name: "older", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &Room{ID: "b", Name: "newer", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	rooms, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "newer", rooms[0].Name)
	assert.Equal(t, "older", rooms[1].Name)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
