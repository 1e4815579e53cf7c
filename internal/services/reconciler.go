package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/netwatch"
	"github.com/gramshiksha/gramshiksha-client/internal/offlinerr"
	"github.com/gramshiksha/gramshiksha-client/internal/repos"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type SyncState string

const (
	StateIdle      SyncState = "idle"
	StateSyncing   SyncState = "syncing"
	StateSyncError SyncState = "sync_error"
)

// SyncStatus is the snapshot the UI renders. PendingUploads is counted from
// the store on every read, so it cannot drift from truth.
type SyncStatus struct {
	IsOnline       bool       `json:"is_online"`
	IsSyncing      bool       `json:"is_syncing"`
	PendingUploads int64      `json:"pending_uploads"`
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
	SyncError      string     `json:"sync_error,omitempty"`
}

// SyncPusher is the slice of the API client the reconciler needs.
type SyncPusher interface {
	PushProgress(ctx context.Context, entry *types.ProgressEntry) error
	PushScore(ctx context.Context, score *types.GameScore) error
}

// SyncService drains unsynced records to the server of record, one
// submission per record. Delivery is at-least-once: a record whose ack was
// lost is resubmitted on the next pass, and the server deduplicates by the
// record's client-generated id.
type SyncService interface {
	// TriggerSync starts an async pass. A trigger while a pass is already
	// in flight is a no-op; the running pass covers the same pending set.
	TriggerSync(ctx context.Context)
	// SyncNow runs a pass synchronously. This is the user-initiated path and
	// is allowed even when the scheduler has background sync disabled.
	SyncNow(ctx context.Context) error
	Status(ctx context.Context) (SyncStatus, error)
	RecomputeMetadata(ctx context.Context) error
	// Run drives the reconciler until ctx is done: it reacts to
	// connectivity-regain events and fires on the scheduler's interval.
	Run(ctx context.Context)
}

type syncService struct {
	log     *logger.Logger
	api     SyncPusher
	sched   Scheduler
	watcher netwatch.Watcher

	progress repos.ProgressRepo
	scores   repos.GameScoreRepo
	badges   repos.BadgeRepo
	assets   repos.AssetRepo
	meta     repos.SyncMetadataRepo

	studentID string

	running atomic.Bool

	mu       sync.Mutex
	state    SyncState
	lastSync *time.Time
	syncErr  string
}

func NewSyncService(
	api SyncPusher,
	sched Scheduler,
	watcher netwatch.Watcher,
	progress repos.ProgressRepo,
	scores repos.GameScoreRepo,
	badges repos.BadgeRepo,
	assets repos.AssetRepo,
	meta repos.SyncMetadataRepo,
	studentID string,
	baseLog *logger.Logger,
) SyncService {
	return &syncService{
		log:       baseLog.With("service", "SyncService"),
		api:       api,
		sched:     sched,
		watcher:   watcher,
		progress:  progress,
		scores:    scores,
		badges:    badges,
		assets:    assets,
		meta:      meta,
		studentID: studentID,
		state:     StateIdle,
	}
}

func (s *syncService) TriggerSync(ctx context.Context) {
	// Sync passes are not cancellable by the caller going away; a partial
	// pass leaves no corrupt state, so the pass always runs to completion.
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.SyncNow(detached); err != nil {
			s.log.Warn("Sync pass failed", "error", err)
		}
	}()
}

func (s *syncService) SyncNow(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		// Already syncing; the in-flight pass picks up the same pending set.
		return nil
	}
	defer s.running.Store(false)
	return s.runPass(ctx)
}

func (s *syncService) runPass(ctx context.Context) error {
	if !s.watcher.Online() {
		return nil
	}
	s.setState(StateSyncing, "")

	// The summary is recomputed even when the pass aborts, so UI counters
	// track store truth.
	defer func() {
		if err := s.RecomputeMetadata(ctx); err != nil {
			s.log.Warn("Failed to recompute sync metadata", "error", err)
		}
	}()

	itemFailures := 0

	entries, err := s.progress.ListUnsynced(ctx, nil)
	if err != nil {
		s.setState(StateSyncError, err.Error())
		return err
	}
	for _, entry := range entries {
		if err := s.api.PushProgress(ctx, entry); err != nil {
			if abort := s.classifyPushError(err, "progress", entry.ID.String()); abort != nil {
				return abort
			}
			itemFailures++
			continue
		}
		if err := s.progress.MarkSynced(ctx, nil, entry.ID); err != nil {
			s.log.Error("Failed to mark progress entry synced", "id", entry.ID, "error", err)
		}
	}

	pending, err := s.scores.ListUnsynced(ctx, nil)
	if err != nil {
		s.setState(StateSyncError, err.Error())
		return err
	}
	for _, score := range pending {
		if err := s.api.PushScore(ctx, score); err != nil {
			if abort := s.classifyPushError(err, "game_score", score.ID.String()); abort != nil {
				return abort
			}
			itemFailures++
			continue
		}
		if err := s.scores.MarkSynced(ctx, nil, score.ID); err != nil {
			s.log.Error("Failed to mark game score synced", "id", score.ID, "error", err)
		}
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.state = StateIdle
	s.syncErr = ""
	s.lastSync = &now
	s.mu.Unlock()

	s.log.Info("Sync pass completed",
		"progress_entries", len(entries),
		"game_scores", len(pending),
		"item_failures", itemFailures,
	)
	return nil
}

// classifyPushError separates item-level rejections (log, skip, continue the
// pass) from run-level failures (network gone, auth refused) that abort the
// pass into SyncError.
func (s *syncService) classifyPushError(err error, kind, id string) error {
	if offlinerr.IsNetwork(err) || !s.watcher.Online() {
		s.setState(StateSyncError, err.Error())
		return err
	}
	s.log.Warn("Record rejected by server, leaving unsynced", "kind", kind, "id", id, "error", err)
	return nil
}

func (s *syncService) Status(ctx context.Context) (SyncStatus, error) {
	pending, err := s.pendingUploads(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncStatus{
		IsOnline:       s.watcher.Online(),
		IsSyncing:      s.state == StateSyncing,
		PendingUploads: pending,
		LastSyncTime:   s.lastSync,
		SyncError:      s.syncErr,
	}, nil
}

func (s *syncService) RecomputeMetadata(ctx context.Context) error {
	pending, err := s.pendingUploads(ctx)
	if err != nil {
		return err
	}
	totalSize, err := s.assets.TotalSize(ctx, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	lastSync := time.Time{}
	if s.lastSync != nil {
		lastSync = *s.lastSync
	}
	s.mu.Unlock()
	return s.meta.Put(ctx, nil, &types.SyncMetadata{
		StudentID:        s.studentID,
		LastSyncTime:     lastSync,
		PendingUploads:   pending,
		TotalOfflineSize: totalSize,
	})
}

func (s *syncService) pendingUploads(ctx context.Context) (int64, error) {
	progressCount, err := s.progress.CountUnsynced(ctx, nil)
	if err != nil {
		return 0, err
	}
	scoreCount, err := s.scores.CountUnsynced(ctx, nil)
	if err != nil {
		return 0, err
	}
	badgeCount, err := s.badges.CountUnsynced(ctx, nil)
	if err != nil {
		return 0, err
	}
	return progressCount + scoreCount + badgeCount, nil
}

func (s *syncService) Run(ctx context.Context) {
	transitions := s.watcher.Subscribe()
	timer := time.NewTimer(s.sched.SyncInterval(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case online := <-transitions:
			if online {
				s.log.Info("Connectivity regained, triggering sync")
				s.TriggerSync(ctx)
			}
		case <-timer.C:
			if s.sched.ShouldSync(ctx) {
				s.TriggerSync(ctx)
			}
			// Interval re-read each tick: it stretches when battery drops.
			timer.Reset(s.sched.SyncInterval(ctx))
		}
	}
}

func (s *syncService) setState(state SyncState, errMsg string) {
	s.mu.Lock()
	s.state = state
	s.syncErr = errMsg
	s.mu.Unlock()
}
