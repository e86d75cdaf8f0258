package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zwickfi/zwickfi/internal/config"
	infra "github.com/zwickfi/zwickfi/internal/infra/bigquery"
	"github.com/zwickfi/zwickfi/internal/logger"
)

func main() {
	var (
		dotenv    = flag.String("dotenv", ".env", "Env file to load before reading the environment (missing file is ignored)")
		dir       = flag.String("migrations", "", "Directory of NNNN_name.sql files (default: migrations built into the binary)")
		appliedBy = flag.String("applied-by", "zwickfi-migrate", "Name recorded with each applied migration")
		dryRun    = flag.Bool("dry-run", false, "List migrations without applying them")
		timeout   = flag.Duration("timeout", 10*time.Minute, "Overall deadline")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*dotenv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	vars := infra.MigrationVars{
		Project:       cfg.Warehouse.Project,
		MonarchSchema: cfg.Warehouse.MonarchSchema,
		ForecastView:  cfg.Forecast.View,
	}

	if *dryRun {
		if vars.Project == "" {
			vars.Project = "PROJECT_ID"
		}
		migrations, err := loadMigrations(*dir, vars)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migrations")
		}
		for _, m := range migrations {
			fmt.Printf("-- %s\n%s\n", m.Filename, m.SQL)
		}
		return
	}

	keyFile := os.Getenv(config.EnvCredentialsFile)
	if keyFile == "" {
		log.Fatal().Str("env", config.EnvCredentialsFile).Msg("Service account key file is required")
	}

	wh, err := infra.NewBigQueryWarehouseFromCredentials(ctx, keyFile, cfg.Warehouse.Project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer wh.Close()
	vars.Project = wh.Project()

	migrations, err := loadMigrations(*dir, vars)
	if err != nil {
		wh.Close()
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Str("project", vars.Project).Msg("Found migrations")

	applied, err := wh.Migrate(ctx, vars, migrations, cfg.Warehouse.Location, *appliedBy)
	if err != nil {
		wh.Close()
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if applied == 0 {
		log.Info().Msg("No pending migrations")
		return
	}
	log.Info().Int("applied", applied).Msg("Migrations applied")
}

func loadMigrations(dir string, vars infra.MigrationVars) ([]infra.Migration, error) {
	if dir == "" {
		return infra.EmbeddedMigrations(vars)
	}
	return infra.ReadMigrations(os.DirFS(dir), vars)
}
