package directory

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps rooms in process memory. It is the default store
// when no database DSN is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rooms: make(map[string]*Room)}
}

func (r *MemoryRepository) Create(ctx context.Context, room *Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *room
	r.rooms[room.ID] = &stored
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		copied := *room
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}
