// Package main provides a database migration runner.
package main

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"royal-market-bot/internal/config"
	"royal-market-bot/internal/pkg/db"
)

func main() {
	start := time.Now()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", "config", "directory holding config.yaml")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	m, err := db.NewMigrator(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		log.Fatal().Str("direction", *direction).Msg("Invalid direction: must be up or down")
	}

	noChange := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !noChange {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	version, dirty, _ := m.Version()
	log.Info().
		Str("direction", *direction).
		Uint("version", version).
		Bool("dirty", dirty).
		Bool("changed", !noChange).
		Dur("elapsed", time.Since(start)).
		Msg("Migration complete")
}
