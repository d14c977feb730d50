package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/priyanshu442004/WatchParty/internal/directory"
	"github.com/priyanshu442004/WatchParty/internal/logging"
	"github.com/priyanshu442004/WatchParty/internal/server"
	"github.com/priyanshu442004/WatchParty/internal/signaling"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := server.MustLoad()
	logging.Init(slog.LevelInfo)
	log := slog.Default().With("env", cfg.Env)

	rooms, err := openDirectory(cfg, log)
	if err != nil {
		log.Error("failed to open room directory", "error", err)
		os.Exit(1)
	}

	hub := signaling.NewHub(log)
	go hub.Run()

	handler := server.NewHandler(log, rooms, hub)

	log.Info("starting signaling server", "addr", cfg.HTTP.Address)
	if err := http.ListenAndServe(cfg.HTTP.Address, handler.Router()); err != nil {
		log.Error("http server stopped", "error", err)
		os.Exit(1)
	}
}

// openDirectory picks the room store: Postgres when a DSN is configured,
// otherwise process memory.
func openDirectory(cfg *server.Config, log *slog.Logger) (directory.Repository, error) {
	if cfg.Database.DSN == "" {
		log.Info("no database configured, using in-memory room directory")
		return directory.NewMemoryRepository(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return directory.NewPostgresRepository(db)
}
