// Command migrate applies the versioned SQL schema and optionally seeds the
// default badge and rule catalog.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/intinc/interact-engine/internal/config"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/internal/seed"
	"github.com/intinc/interact-engine/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func main() {
	configPath := flag.String("config", "", "path to config file")
	down := flag.Bool("down", false, "roll back all migrations")
	seedFile := flag.String("seed", "", "seed file to apply after migrating")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	m, err := newMigrator(&cfg.Database.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize migrator")
	}
	defer m.Close()

	if *down {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Rollback failed")
		}
		log.Info().Msg("Schema rolled back")
		return
	}

	switch err := m.Up(); {
	case err == nil:
		version, _, _ := m.Version()
		log.Info().Uint("version", version).Msg("Schema migrated")
	case errors.Is(err, migrate.ErrNoChange):
		log.Info().Msg("Schema already up to date")
	default:
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if *seedFile == "" {
		return
	}

	f, err := seed.Load(*seedFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *seedFile).Msg("Failed to load seed file")
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := seed.Apply(f, repository.NewStore(db), log); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply seed catalog")
	}
}

func newMigrator(cfg *config.PostgresConfig) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
	)

	return migrate.NewWithSourceInstance("iofs", source, dsn)
}
