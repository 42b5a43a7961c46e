// geb-core - MIDI composition backend
//
// This is the main entry point for the geb-core service: a token-secured
// HTTP API where users compose tracks from note events, download them as
// Standard MIDI Files, and manage their library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gebworks/geb-core/internal/api"
	"github.com/gebworks/geb-core/internal/audit"
	"github.com/gebworks/geb-core/internal/auth"
	"github.com/gebworks/geb-core/internal/infrastructure/config"
	"github.com/gebworks/geb-core/internal/infrastructure/database"
	"github.com/gebworks/geb-core/internal/infrastructure/logging"
	"github.com/gebworks/geb-core/internal/track"
	"github.com/gebworks/geb-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Reconcile sweep settings: how often to look for orphaned payloads, and how
// old a payload must be before it can be considered orphaned. The grace must
// comfortably exceed the time between the payload and metadata writes of a
// single track creation.
const (
	reconcileInterval = 10 * time.Minute
	reconcileGrace    = 15 * time.Minute
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting geb-core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the main database (users, track metadata, audit)
	mainDB, err := database.Open(database.Config{
		Path:        cfg.Database.Main.Path,
		WALMode:     cfg.Database.Main.WALMode,
		BusyTimeout: cfg.Database.Main.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening main database: %w", err)
	}
	defer func() {
		log.Info("closing main database")
		if closeErr := mainDB.Close(); closeErr != nil {
			log.Error("error closing main database", "error", closeErr)
		}
	}()
	log.Info("main database connected", "path", cfg.Database.Main.Path)

	// Open the file store database (MIDI payloads)
	filesDB, err := database.Open(database.Config{
		Path:        cfg.Database.Files.Path,
		WALMode:     cfg.Database.Files.WALMode,
		BusyTimeout: cfg.Database.Files.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening file store database: %w", err)
	}
	defer func() {
		log.Info("closing file store database")
		if closeErr := filesDB.Close(); closeErr != nil {
			log.Error("error closing file store database", "error", closeErr)
		}
	}()
	log.Info("file store database connected", "path", cfg.Database.Files.Path)

	// Run migrations, each database with its own set
	if migrateErr := mainDB.Migrate(ctx, migrations.Main()); migrateErr != nil {
		return fmt.Errorf("migrating main database: %w", migrateErr)
	}
	if migrateErr := filesDB.Migrate(ctx, migrations.Files()); migrateErr != nil {
		return fmt.Errorf("migrating file store database: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire repositories and domain services
	userRepo := auth.NewUserRepository(mainDB.DB)
	hasher := auth.NewHasher(cfg.Security.Password.BcryptCost)
	auditRepo := audit.NewSQLiteRepository(mainDB.DB)

	metaRepo := track.NewMetadataRepository(mainDB.DB)
	fileRepo := track.NewFileRepository(filesDB.DB)
	trackStore := track.NewStore(metaRepo, fileRepo, log.Logger)

	// Seed the first developer account on an empty database
	if _, seedErr := auth.SeedDeveloper(ctx, userRepo, hasher, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding developer account: %w", seedErr)
	}

	// Background orphan sweep for the dual-store split
	go trackStore.ReconcileLoop(ctx, reconcileInterval, reconcileGrace)

	// Start the API server
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Security:   cfg.Security,
		Logger:     log,
		UserRepo:   userRepo,
		Hasher:     hasher,
		TrackStore: trackStore,
		AuditRepo:  auditRepo,
		MainDB:     mainDB,
		FilesDB:    filesDB,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("geb-core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GEB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GEB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
