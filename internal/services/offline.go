package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/netwatch"
	"github.com/gramshiksha/gramshiksha-client/internal/offlinerr"
	"github.com/gramshiksha/gramshiksha-client/internal/repos"
	"github.com/gramshiksha/gramshiksha-client/internal/syncapi"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type ContentKind string

const (
	ContentLesson ContentKind = "lesson"
	ContentGame   ContentKind = "game"
)

type DownloadOptions struct {
	Language string
}

// DownloadResult summarizes a content download. Asset failures are
// aggregated, never fatal: a bundle with one bad URL still completes.
type DownloadResult struct {
	AssetsTotal  int `json:"assets_total"`
	AssetsFailed int `json:"assets_failed"`
}

// ProgressInput is what a UI action hands over when a learner works on a
// lesson or game. Setting ID updates an existing entry; leaving it nil
// creates a new one.
type ProgressInput struct {
	ID               *uuid.UUID
	StudentID        string
	LessonID         string
	GameID           string
	Status           string
	Score            *int
	TimeSpentSeconds int
	Completed        bool
	Metadata         map[string]interface{}
}

type GameScoreInput struct {
	StudentID        string
	GameID           string
	Score            int
	TimeSpentSeconds int
	Level            int
	Metadata         map[string]interface{}
}

type StorageUsage struct {
	UsedBytes   int64 `json:"used_bytes"`
	BudgetBytes int64 `json:"budget_bytes"`
	FreeBytes   int64 `json:"free_bytes"`
}

type OfflineConfig struct {
	MinFreeBytesLesson int64
	MinFreeBytesGame   int64
}

func DefaultOfflineConfig() OfflineConfig {
	return OfflineConfig{
		MinFreeBytesLesson: 1 * 1024 * 1024,
		MinFreeBytesGame:   5 * 1024 * 1024,
	}
}

// ContentAPI is the slice of the API client the facade needs.
type ContentAPI interface {
	GetLesson(ctx context.Context, id string) (*syncapi.LessonMeta, error)
	GetGame(ctx context.Context, id string) (*syncapi.GameMeta, error)
}

// OfflineService is the surface the application UI talks to: write-through
// saves, content downloads for offline use, local content queries, and
// data clearing.
type OfflineService interface {
	SaveProgress(ctx context.Context, input ProgressInput) (uuid.UUID, error)
	SaveGameScore(ctx context.Context, input GameScoreInput) (uuid.UUID, error)
	AwardBadge(ctx context.Context, studentID, achievementID string) (uuid.UUID, error)
	DownloadContent(ctx context.Context, kind ContentKind, id string, opts DownloadOptions) (*DownloadResult, error)
	OfflineLessons(ctx context.Context, filter repos.ContentFilter) ([]*types.Lesson, error)
	OfflineGames(ctx context.Context, filter repos.ContentFilter) ([]*types.Game, error)
	Status(ctx context.Context) (SyncStatus, error)
	StorageUsage(ctx context.Context) (StorageUsage, error)
	ClearData(ctx context.Context, studentID string) error
}

type offlineService struct {
	log     *logger.Logger
	api     ContentAPI
	cache   AssetCacheService
	sync    SyncService
	watcher netwatch.Watcher
	cfg     OfflineConfig

	progress repos.ProgressRepo
	scores   repos.GameScoreRepo
	badges   repos.BadgeRepo
	lessons  repos.LessonRepo
	games    repos.GameRepo
	assets   repos.AssetRepo
	meta     repos.SyncMetadataRepo

	// writeLocks serializes writes per progress id so a later score write
	// is never overtaken by an earlier one still in flight; BestScore
	// depends on write order. Entries are refcounted and dropped once the
	// last holder releases, so the map never outgrows the in-flight set.
	writeMu    sync.Mutex
	writeLocks map[uuid.UUID]*writeLock
}

type writeLock struct {
	mu   sync.Mutex
	refs int
}

func NewOfflineService(
	api ContentAPI,
	cache AssetCacheService,
	syncSvc SyncService,
	watcher netwatch.Watcher,
	cfg OfflineConfig,
	progress repos.ProgressRepo,
	scores repos.GameScoreRepo,
	badges repos.BadgeRepo,
	lessons repos.LessonRepo,
	games repos.GameRepo,
	assets repos.AssetRepo,
	meta repos.SyncMetadataRepo,
	baseLog *logger.Logger,
) OfflineService {
	return &offlineService{
		log:        baseLog.With("service", "OfflineService"),
		api:        api,
		cache:      cache,
		sync:       syncSvc,
		watcher:    watcher,
		cfg:        cfg,
		progress:   progress,
		scores:     scores,
		badges:     badges,
		lessons:    lessons,
		games:      games,
		assets:     assets,
		meta:       meta,
		writeLocks: make(map[uuid.UUID]*writeLock),
	}
}

func (s *offlineService) SaveProgress(ctx context.Context, input ProgressInput) (uuid.UUID, error) {
	id := uuid.New()
	if input.ID != nil {
		id = *input.ID
	}

	lock := s.acquireWriteLock(id)
	defer s.releaseWriteLock(id, lock)

	now := time.Now().UTC()
	row, err := s.progress.GetByID(ctx, nil, id)
	if err != nil {
		return uuid.Nil, err
	}
	if row == nil {
		row = &types.ProgressEntry{
			ID:        id,
			StudentID: input.StudentID,
			StartedAt: now,
			Status:    types.ProgressStatusInProgress,
		}
	}

	if input.LessonID != "" {
		lessonID := input.LessonID
		row.LessonID = &lessonID
		row.Type = types.ProgressTypeLesson
	}
	if input.GameID != "" {
		gameID := input.GameID
		row.GameID = &gameID
		row.Type = types.ProgressTypeGame
	}
	if input.StudentID != "" {
		row.StudentID = input.StudentID
	}
	if err := row.Validate(); err != nil {
		return uuid.Nil, err
	}

	row.Attempts++
	if input.Score != nil {
		row.ApplyScore(*input.Score)
	}
	if input.Status != "" {
		row.Status = input.Status
	}
	if input.Completed {
		row.Status = types.ProgressStatusCompleted
		row.CompletedAt = &now
	}
	if input.TimeSpentSeconds > 0 {
		row.TimeSpentSeconds = input.TimeSpentSeconds
	}
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encode progress metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	// A fresh local mutation is pending again even if an older version of
	// this entry had already been pushed.
	row.Synced = false
	row.LastModified = now

	if err := s.progress.Put(ctx, nil, row); err != nil {
		return uuid.Nil, err
	}
	s.afterPendingWrite(ctx)
	return id, nil
}

func (s *offlineService) SaveGameScore(ctx context.Context, input GameScoreInput) (uuid.UUID, error) {
	if input.StudentID == "" || input.GameID == "" {
		return uuid.Nil, fmt.Errorf("game score requires student and game ids")
	}
	level := input.Level
	if level < 1 {
		level = 1
	}
	row := &types.GameScore{
		ID:               uuid.New(),
		StudentID:        input.StudentID,
		GameID:           input.GameID,
		Score:            input.Score,
		TimeSpentSeconds: input.TimeSpentSeconds,
		Level:            level,
		Timestamp:        time.Now().UTC(),
	}
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encode score metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	if err := s.scores.Create(ctx, nil, row); err != nil {
		return uuid.Nil, err
	}
	s.afterPendingWrite(ctx)
	return row.ID, nil
}

func (s *offlineService) AwardBadge(ctx context.Context, studentID, achievementID string) (uuid.UUID, error) {
	if studentID == "" || achievementID == "" {
		return uuid.Nil, fmt.Errorf("badge requires student and achievement ids")
	}
	row, err := s.badges.Award(ctx, nil, studentID, achievementID)
	if err != nil {
		return uuid.Nil, err
	}
	s.afterPendingWrite(ctx)
	return row.ID, nil
}

func (s *offlineService) DownloadContent(ctx context.Context, kind ContentKind, id string, opts DownloadOptions) (*DownloadResult, error) {
	minFree := s.cfg.MinFreeBytesLesson
	if kind == ContentGame {
		minFree = s.cfg.MinFreeBytesGame
	}
	if err := s.ensureHeadroom(ctx, minFree); err != nil {
		return nil, err
	}

	var manifest types.AssetManifest
	switch kind {
	case ContentLesson:
		meta, err := s.api.GetLesson(ctx, id)
		if err != nil {
			return nil, err
		}
		language := opts.Language
		if language == "" {
			language = meta.Language
		}
		if language == "" {
			language = "en"
		}
		assets, err := meta.Assets.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode lesson assets: %w", err)
		}
		row := &types.Lesson{
			ID:           meta.ID,
			Title:        meta.Title,
			SubjectID:    meta.SubjectID,
			Grade:        meta.Grade,
			Language:     language,
			Assets:       assets,
			LastUpdated:  meta.UpdatedAt,
			DownloadedAt: time.Now().UTC(),
		}
		if err := s.lessons.Put(ctx, nil, row); err != nil {
			return nil, err
		}
		manifest = meta.Assets
	case ContentGame:
		meta, err := s.api.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}
		assets, err := meta.Assets.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode game assets: %w", err)
		}
		row := &types.Game{
			ID:           meta.ID,
			Title:        meta.Title,
			Subject:      meta.Subject,
			Grade:        meta.Grade,
			Difficulty:   meta.Difficulty,
			Assets:       assets,
			LastUpdated:  meta.UpdatedAt,
			DownloadedAt: time.Now().UTC(),
		}
		if err := s.games.Put(ctx, nil, row); err != nil {
			return nil, err
		}
		manifest = meta.Assets
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	result := &DownloadResult{}
	for tick := range s.cache.DownloadBundle(ctx, manifest.URLs()) {
		result.AssetsTotal = tick.Total
		result.AssetsFailed = tick.Failed
	}

	if kind == ContentGame {
		if err := s.games.SetAssetsDownloaded(ctx, nil, id, true); err != nil {
			s.log.Warn("Failed to flag game assets downloaded", "game_id", id, "error", err)
		}
	}
	if err := s.sync.RecomputeMetadata(ctx); err != nil {
		s.log.Warn("Failed to recompute sync metadata after download", "error", err)
	}

	s.log.Info("Content downloaded for offline use",
		"kind", kind,
		"id", id,
		"assets_total", result.AssetsTotal,
		"assets_failed", result.AssetsFailed,
	)
	return result, nil
}

func (s *offlineService) OfflineLessons(ctx context.Context, filter repos.ContentFilter) ([]*types.Lesson, error) {
	return s.lessons.List(ctx, nil, filter)
}

func (s *offlineService) OfflineGames(ctx context.Context, filter repos.ContentFilter) ([]*types.Game, error) {
	return s.games.List(ctx, nil, filter)
}

func (s *offlineService) Status(ctx context.Context) (SyncStatus, error) {
	return s.sync.Status(ctx)
}

func (s *offlineService) StorageUsage(ctx context.Context) (StorageUsage, error) {
	used, budget, err := s.cache.Usage(ctx)
	if err != nil {
		return StorageUsage{}, err
	}
	free := budget - used
	if free < 0 {
		free = 0
	}
	return StorageUsage{UsedBytes: used, BudgetBytes: budget, FreeBytes: free}, nil
}

// ClearData wipes one student's sync-able records, or with an empty id the
// whole offline store including downloaded content and assets.
func (s *offlineService) ClearData(ctx context.Context, studentID string) error {
	if studentID != "" {
		if err := s.progress.DeleteByStudent(ctx, nil, studentID); err != nil {
			return err
		}
		if err := s.scores.DeleteByStudent(ctx, nil, studentID); err != nil {
			return err
		}
		if err := s.badges.DeleteByStudent(ctx, nil, studentID); err != nil {
			return err
		}
		if err := s.meta.DeleteByStudent(ctx, nil, studentID); err != nil {
			return err
		}
		s.log.Info("Cleared student offline data", "student_id", studentID)
		return nil
	}

	if err := s.progress.DeleteAll(ctx, nil); err != nil {
		return err
	}
	if err := s.scores.DeleteAll(ctx, nil); err != nil {
		return err
	}
	if err := s.badges.DeleteAll(ctx, nil); err != nil {
		return err
	}
	if err := s.lessons.DeleteAll(ctx, nil); err != nil {
		return err
	}
	if err := s.games.DeleteAll(ctx, nil); err != nil {
		return err
	}
	if err := s.assets.DeleteAll(ctx, nil); err != nil {
		return err
	}
	if err := s.meta.DeleteAll(ctx, nil); err != nil {
		return err
	}
	s.log.Info("Cleared all offline data")
	return nil
}

// afterPendingWrite runs the bookkeeping every pending-count-changing write
// owes: recompute the summary, then push immediately when online.
func (s *offlineService) afterPendingWrite(ctx context.Context) {
	if err := s.sync.RecomputeMetadata(ctx); err != nil {
		s.log.Warn("Failed to recompute sync metadata after write", "error", err)
	}
	if s.watcher.Online() {
		s.sync.TriggerSync(ctx)
	}
}

func (s *offlineService) ensureHeadroom(ctx context.Context, minFree int64) error {
	usage, err := s.StorageUsage(ctx)
	if err != nil {
		return err
	}
	if usage.FreeBytes >= minFree {
		return nil
	}
	// Try to make room before refusing.
	if err := s.cache.Evict(ctx); err != nil {
		s.log.Warn("Eviction before download failed", "error", err)
	}
	usage, err = s.StorageUsage(ctx)
	if err != nil {
		return err
	}
	if usage.FreeBytes < minFree {
		return offlinerr.Newf(offlinerr.CodeInsufficientStorage,
			"need %d free bytes, have %d of %d budget", minFree, usage.FreeBytes, usage.BudgetBytes)
	}
	return nil
}

func (s *offlineService) acquireWriteLock(id uuid.UUID) *writeLock {
	s.writeMu.Lock()
	lock, ok := s.writeLocks[id]
	if !ok {
		lock = &writeLock{}
		s.writeLocks[id] = lock
	}
	lock.refs++
	s.writeMu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *offlineService) releaseWriteLock(id uuid.UUID, lock *writeLock) {
	lock.mu.Unlock()

	s.writeMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.writeLocks, id)
	}
	s.writeMu.Unlock()
}
