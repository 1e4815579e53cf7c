package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/db"
	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/netwatch"
	"github.com/gramshiksha/gramshiksha-client/internal/syncapi"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Watcher  *netwatch.Pinger

	sqlite *db.SqliteService
	cancel context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	sqlite, err := db.NewSqliteService(cfg.DBPath, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	if err := sqlite.AutoMigrateAll(); err != nil {
		sqlite.Close()
		log.Sync()
		return nil, fmt.Errorf("sqlite automigrate: %w", err)
	}
	theDB := sqlite.DB()

	watcher := netwatch.NewPinger(cfg.HealthURL, cfg.NetProbeInterval, log)
	api := syncapi.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, log)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(cfg, reposet, watcher, api, log)

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Watcher:  watcher,
		sqlite:   sqlite,
	}, nil
}

// Start launches the background loops: the connectivity prober and the sync
// reconciler. Both stop when Close cancels their context.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.Watcher.Start(ctx)
	go a.Services.Sync.Run(ctx)

	// Seed the on-disk sync summary so the UI has numbers before the first
	// pass completes.
	if err := a.Services.Sync.RecomputeMetadata(ctx); err != nil {
		a.Log.Warn("Failed to seed sync metadata", "error", err)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			a.Log.Warn("Failed to close sqlite", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
