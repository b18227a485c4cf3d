package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/fake"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/memory"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/spotify"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/sqlite"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/youtube"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/app"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/config"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/history"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/matcher"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

// buildRegistry registers a connector per platform: the live API adapters,
// or the seeded demo catalogs in fake mode.
func buildRegistry(cfg *config.Config) *adapters.ProviderRegistry {
	registry := adapters.NewProviderRegistry()

	if cfg.Platforms.Mode == config.ModeFake {
		sp, yt := fake.Demo()
		registry.Register(domain.PlatformSpotify, fake.Connector(sp))
		registry.Register(domain.PlatformYouTube, fake.Connector(yt))
		return registry
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	registry.Register(domain.PlatformSpotify, spotify.Connector(spotify.Config{
		BaseURL:           cfg.Platforms.Spotify.BaseURL,
		RequestsPerSecond: cfg.Platforms.Spotify.RequestsPerSecond,
		HTTPClient:        httpClient,
	}))
	registry.Register(domain.PlatformYouTube, youtube.Connector(youtube.Config{
		BaseURL:           cfg.Platforms.YouTube.BaseURL,
		RequestsPerSecond: cfg.Platforms.YouTube.RequestsPerSecond,
		HTTPClient:        httpClient,
	}))
	return registry
}

// openHistory returns the configured history store and a func releasing it.
// The sqlite store is migrated before use.
func openHistory(cfg *config.Config, logger *log.Logger) (ports.HistoryStore, func() error, error) {
	if cfg.History.Driver == config.HistoryMemory {
		return memory.NewHistoryStore(), func() error { return nil }, nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	applied, err := sqlite.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	if applied > 0 {
		logger.Info("applied migrations", "count", applied, "path", cfg.History.Path)
	}
	return sqlite.NewHistoryStore(db), db.Close, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.History.Driver != config.HistorySQLite {
		return nil, fmt.Errorf("history driver %q has no database", cfg.History.Driver)
	}
	db, err := sqlite.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

func newService(cfg *config.Config, registry *adapters.ProviderRegistry, store ports.HistoryStore, logger *log.Logger) *app.Service {
	m := matcher.New(matcher.Config{
		SearchLimit:      cfg.Matcher.SearchLimit,
		MinScore:         cfg.Matcher.MinScore,
		MaxDurationDelta: cfg.Matcher.MaxDurationDelta,
	})
	return app.NewService(registry, m, history.NewRecorder(store), app.Options{
		Workers:       cfg.Transfer.Workers,
		BatchSize:     cfg.Transfer.BatchSize,
		WriteAttempts: cfg.Transfer.WriteAttempts,
		JobRetention:  cfg.Retention(),
		Logger:        logger,
	})
}
