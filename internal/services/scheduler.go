package services

import (
	"context"
	"time"

	"github.com/gramshiksha/gramshiksha-client/internal/device"
	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/netwatch"
)

// SchedulerConfig collects every threshold the scheduler applies, so the
// battery and tier cutoffs live in one place instead of at call sites.
type SchedulerConfig struct {
	BaseSyncInterval       time.Duration
	LowBatterySyncInterval time.Duration
	LowBatteryLevel        float64
	CriticalBatteryLevel   float64
	LowTierCacheBudget     int64
	MidTierCacheBudget     int64
	HighTierCacheBudget    int64
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BaseSyncInterval:       time.Minute,
		LowBatterySyncInterval: 5 * time.Minute,
		LowBatteryLevel:        0.20,
		CriticalBatteryLevel:   0.10,
		LowTierCacheBudget:     10 * 1024 * 1024,
		MidTierCacheBudget:     25 * 1024 * 1024,
		HighTierCacheBudget:    50 * 1024 * 1024,
	}
}

// Scheduler gates background activity on the live device snapshot and the
// connectivity flag. All methods are pure reads; nothing here mutates state.
type Scheduler interface {
	// ShouldSync reports whether a background sync pass may run now.
	// User-initiated syncs bypass this check.
	ShouldSync(ctx context.Context) bool
	SyncInterval(ctx context.Context) time.Duration
	MaxConcurrentDownloads(ctx context.Context) int
	CacheBudget(ctx context.Context) int64
	PreloadEnabled(ctx context.Context) bool
}

type scheduler struct {
	caps    CapabilityService
	watcher netwatch.Watcher
	cfg     SchedulerConfig
	log     *logger.Logger
}

func NewScheduler(caps CapabilityService, watcher netwatch.Watcher, cfg SchedulerConfig, baseLog *logger.Logger) Scheduler {
	return &scheduler{
		caps:    caps,
		watcher: watcher,
		cfg:     cfg,
		log:     baseLog.With("service", "Scheduler"),
	}
}

func (s *scheduler) ShouldSync(ctx context.Context) bool {
	if !s.watcher.Online() {
		return false
	}
	c := s.caps.Capabilities(ctx)
	if c.BatteryLevel < s.cfg.CriticalBatteryLevel && !c.Charging {
		// Below the critical cutoff only user-initiated syncs run.
		return false
	}
	return true
}

func (s *scheduler) SyncInterval(ctx context.Context) time.Duration {
	c := s.caps.Capabilities(ctx)
	if c.BatteryLevel < s.cfg.LowBatteryLevel && !c.Charging {
		return s.cfg.LowBatterySyncInterval
	}
	return s.cfg.BaseSyncInterval
}

func (s *scheduler) MaxConcurrentDownloads(ctx context.Context) int {
	switch s.caps.Capabilities(ctx).Tier() {
	case device.TierLow:
		return 1
	case device.TierMid:
		return 2
	default:
		return 4
	}
}

func (s *scheduler) CacheBudget(ctx context.Context) int64 {
	switch s.caps.Capabilities(ctx).Tier() {
	case device.TierLow:
		return s.cfg.LowTierCacheBudget
	case device.TierMid:
		return s.cfg.MidTierCacheBudget
	default:
		return s.cfg.HighTierCacheBudget
	}
}

func (s *scheduler) PreloadEnabled(ctx context.Context) bool {
	if !s.watcher.Online() {
		return false
	}
	c := s.caps.Capabilities(ctx)
	return c.Tier() != device.TierLow && !c.SlowConnection()
}
