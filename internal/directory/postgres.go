package directory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// roomModel is the persistence shape of a Room.
type roomModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:120;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (roomModel) TableName() string { return "rooms" }

// PostgresRepository persists rooms with gorm.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository migrates the rooms table and returns the repository.
func NewPostgresRepository(db *gorm.DB) (*PostgresRepository, error) {
	if err := db.AutoMigrate(&roomModel{}); err != nil {
		return nil, err
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, room *Room) error {
	model := roomModel{ID: room.ID, Name: room.Name, CreatedAt: room.CreatedAt}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Room, error) {
	var models []roomModel
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*Room, 0, len(models))
	for _, m := range models {
		out = append(out, &Room{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	var m roomModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &Room{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt}, nil
}
