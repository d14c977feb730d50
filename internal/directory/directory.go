// Package directory is the room catalog: plain CRUD over rooms that exist
// independently of any live session. The signaling hub owns who is inside a
// room right now; the directory only records that the room exists.
package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrEmptyName    = errors.New("room name is required")
)

const maxRoomNameLength = 120

// Room is immutable once created.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRoom validates the display name and stamps identity and creation time.
func NewRoom(name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(name) > maxRoomNameLength {
		name = name[:maxRoomNameLength]
	}
	return &Room{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Repository stores room records. Implementations must return rooms from
// List ordered most recent first.
type Repository interface {
	Create(ctx context.Context, room *Room) error
	List(ctx context.Context) ([]*Room, error)
	GetByID(ctx context.Context, id string) (*Room, error)
}
