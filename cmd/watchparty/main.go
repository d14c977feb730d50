package main

import (
	"log/slog"

	"github.com/priyanshu442004/WatchParty/internal/command"
	"github.com/priyanshu442004/WatchParty/internal/logging"
)

func main() {
	logging.Init(slog.LevelError)
	command.Execute()
}
