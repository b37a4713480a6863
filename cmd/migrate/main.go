package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/bahikhata/bahikhata/internal/app"
	"github.com/bahikhata/bahikhata/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		return
	}

	direction := flag.String("direction", "up", "up, down or steps")
	steps := flag.Int("steps", 0, "migration steps when direction=steps; negative rolls back")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	migrator, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		logger.Error("init migrator", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("close migrator", slog.Any("error", err))
		}
	}()

	switch *direction {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "steps":
		if *steps == 0 {
			err = fmt.Errorf("steps must be non-zero")
		} else {
			err = migrator.Steps(*steps)
		}
	default:
		err = fmt.Errorf("unknown direction %q", *direction)
	}
	if err != nil {
		logger.Error("migrate", slog.String("direction", *direction), slog.Any("error", err))
		os.Exit(1)
	}
}
