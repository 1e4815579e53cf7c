package app

import (
	"github.com/gramshiksha/gramshiksha-client/internal/device"
	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/netwatch"
	"github.com/gramshiksha/gramshiksha-client/internal/services"
	"github.com/gramshiksha/gramshiksha-client/internal/syncapi"
)

type Services struct {
	Capability services.CapabilityService
	Scheduler  services.Scheduler
	AssetCache services.AssetCacheService
	Sync       services.SyncService
	Offline    services.OfflineService
}

func wireServices(cfg Config, reposet Repos, watcher netwatch.Watcher, api *syncapi.Client, log *logger.Logger) Services {
	log.Info("Wiring services...")

	capability := services.NewCapabilityService(device.NewHostProbe(log), log)

	scheduler := services.NewScheduler(capability, watcher, services.SchedulerConfig{
		BaseSyncInterval:       cfg.BaseSyncInterval,
		LowBatterySyncInterval: cfg.LowBatterySyncInterval,
		LowBatteryLevel:        cfg.LowBatteryLevel,
		CriticalBatteryLevel:   cfg.CriticalBatteryLevel,
		LowTierCacheBudget:     cfg.LowTierCacheBudget,
		MidTierCacheBudget:     cfg.MidTierCacheBudget,
		HighTierCacheBudget:    cfg.HighTierCacheBudget,
	}, log)

	assetCache := services.NewAssetCacheService(reposet.Asset, api, scheduler, services.AssetCacheConfig{
		MaxAssetAge: cfg.MaxAssetAge,
	}, log)

	syncSvc := services.NewSyncService(
		api,
		scheduler,
		watcher,
		reposet.Progress,
		reposet.GameScore,
		reposet.Badge,
		reposet.Asset,
		reposet.SyncMeta,
		cfg.StudentID,
		log,
	)

	offline := services.NewOfflineService(
		api,
		assetCache,
		syncSvc,
		watcher,
		services.OfflineConfig{
			MinFreeBytesLesson: cfg.MinFreeBytesLesson,
			MinFreeBytesGame:   cfg.MinFreeBytesGame,
		},
		reposet.Progress,
		reposet.GameScore,
		reposet.Badge,
		reposet.Lesson,
		reposet.Game,
		reposet.Asset,
		reposet.SyncMeta,
		log,
	)

	return Services{
		Capability: capability,
		Scheduler:  scheduler,
		AssetCache: assetCache,
		Sync:       syncSvc,
		Offline:    offline,
	}
}
