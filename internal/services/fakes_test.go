package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/repos"
	"github.com/gramshiksha/gramshiksha-client/internal/syncapi"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type memProgressRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.ProgressEntry
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{rows: make(map[uuid.UUID]*types.ProgressEntry)}
}

func (r *memProgressRepo) Put(ctx context.Context, tx *gorm.DB, row *types.ProgressEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *row
	r.rows[row.ID] = &clone
	return nil
}

func (r *memProgressRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProgressEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *memProgressRepo) ListUnsynced(ctx context.Context, tx *gorm.DB) ([]*types.ProgressEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ProgressEntry
	for _, row := range r.rows {
		if !row.Synced {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memProgressRepo) MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.Synced = true
	}
	return nil
}

func (r *memProgressRepo) CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error) {
	rows, _ := r.ListUnsynced(ctx, tx)
	return int64(len(rows)), nil
}

func (r *memProgressRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.StudentID == studentID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *memProgressRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[uuid.UUID]*types.ProgressEntry)
	return nil
}

type memGameScoreRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.GameScore
}

func newMemGameScoreRepo() *memGameScoreRepo {
	return &memGameScoreRepo{rows: make(map[uuid.UUID]*types.GameScore)}
}

func (r *memGameScoreRepo) Create(ctx context.Context, tx *gorm.DB, row *types.GameScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *row
	r.rows[row.ID] = &clone
	return nil
}

func (r *memGameScoreRepo) ListUnsynced(ctx context.Context, tx *gorm.DB) ([]*types.GameScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.GameScore
	for _, row := range r.rows {
		if !row.Synced {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memGameScoreRepo) MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.Synced = true
	}
	return nil
}

func (r *memGameScoreRepo) CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error) {
	rows, _ := r.ListUnsynced(ctx, tx)
	return int64(len(rows)), nil
}

func (r *memGameScoreRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.StudentID == studentID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *memGameScoreRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[uuid.UUID]*types.GameScore)
	return nil
}

type memBadgeRepo struct {
	mu   sync.Mutex
	rows map[string]*types.Badge
}

func newMemBadgeRepo() *memBadgeRepo {
	return &memBadgeRepo{rows: make(map[string]*types.Badge)}
}

func (r *memBadgeRepo) Award(ctx context.Context, tx *gorm.DB, studentID, achievementID string) (*types.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := studentID + "/" + achievementID
	if row, ok := r.rows[key]; ok {
		clone := *row
		return &clone, nil
	}
	row := &types.Badge{
		ID:            uuid.New(),
		StudentID:     studentID,
		AchievementID: achievementID,
		EarnedAt:      time.Now().UTC(),
	}
	r.rows[key] = row
	clone := *row
	return &clone, nil
}

func (r *memBadgeRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*types.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Badge
	for _, row := range r.rows {
		if row.StudentID == studentID {
			clone := *row
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memBadgeRepo) MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			row.Synced = true
		}
	}
	return nil
}

func (r *memBadgeRepo) CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, row := range r.rows {
		if !row.Synced {
			count++
		}
	}
	return count, nil
}

func (r *memBadgeRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, row := range r.rows {
		if row.StudentID == studentID {
			delete(r.rows, key)
		}
	}
	return nil
}

func (r *memBadgeRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]*types.Badge)
	return nil
}

type memAssetRepo struct {
	mu   sync.Mutex
	rows map[string]*types.CachedAsset
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{rows: make(map[string]*types.CachedAsset)}
}

func (r *memAssetRepo) Put(ctx context.Context, tx *gorm.DB, row *types.CachedAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *row
	if existing, ok := r.rows[row.URL]; ok {
		clone.ID = existing.ID
	}
	r.rows[row.URL] = &clone
	return nil
}

func (r *memAssetRepo) GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.CachedAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[url]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *memAssetRepo) Touch(ctx context.Context, tx *gorm.DB, url string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[url]; ok {
		row.LastAccessed = at
	}
	return nil
}

func (r *memAssetRepo) TotalSize(ctx context.Context, tx *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, row := range r.rows {
		total += row.Size
	}
	return total, nil
}

func (r *memAssetRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memAssetRepo) ListByLastAccessed(ctx context.Context, tx *gorm.DB) ([]*types.CachedAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.CachedAsset
	for _, row := range r.rows {
		clone := *row
		clone.Blob = nil
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessed.Before(out[j].LastAccessed) })
	return out, nil
}

func (r *memAssetRepo) DeleteAccessedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for url, row := range r.rows {
		if row.LastAccessed.Before(cutoff) {
			delete(r.rows, url)
		}
	}
	return nil
}

func (r *memAssetRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	victims := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		victims[id] = true
	}
	for url, row := range r.rows {
		if victims[row.ID] {
			delete(r.rows, url)
		}
	}
	return nil
}

func (r *memAssetRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]*types.CachedAsset)
	return nil
}

type memLessonRepo struct {
	mu   sync.Mutex
	rows map[string]*types.Lesson
}

func newMemLessonRepo() *memLessonRepo {
	return &memLessonRepo{rows: make(map[string]*types.Lesson)}
}

func (r *memLessonRepo) Put(ctx context.Context, tx *gorm.DB, row *types.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *row
	r.rows[row.ID] = &clone
	return nil
}

func (r *memLessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *memLessonRepo) List(ctx context.Context, tx *gorm.DB, filter repos.ContentFilter) ([]*types.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Lesson
	for _, row := range r.rows {
		if filter.Grade != 0 && row.Grade != filter.Grade {
			continue
		}
		if filter.Subject != "" && row.SubjectID != filter.Subject {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memLessonRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]*types.Lesson)
	return nil
}

type memGameRepo struct {
	mu   sync.Mutex
	rows map[string]*types.Game
}

func newMemGameRepo() *memGameRepo {
	return &memGameRepo{rows: make(map[string]*types.Game)}
}

func (r *memGameRepo) Put(ctx context.Context, tx *gorm.DB, row *types.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *row
	r.rows[row.ID] = &clone
	return nil
}

func (r *memGameRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *memGameRepo) List(ctx context.Context, tx *gorm.DB, filter repos.ContentFilter) ([]*types.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Game
	for _, row := range r.rows {
		if filter.Grade != 0 && row.Grade != filter.Grade {
			continue
		}
		if filter.Subject != "" && row.Subject != filter.Subject {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memGameRepo) SetAssetsDownloaded(ctx context.Context, tx *gorm.DB, id string, downloaded bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.AssetsDownloaded = downloaded
	}
	return nil
}

func (r *memGameRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]*types.Game)
	return nil
}

type memSyncMetaRepo struct {
	mu   sync.Mutex
	rows map[string]*types.SyncMetadata
}

func newMemSyncMetaRepo() *memSyncMetaRepo {
	return &memSyncMetaRepo{rows: make(map[string]*types.SyncMetadata)}
}

func (r *memSyncMetaRepo) Put(ctx context.Context, tx *gorm.DB, row *types.SyncMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *row
	r.rows[row.StudentID] = &clone
	return nil
}

func (r *memSyncMetaRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*types.SyncMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[studentID]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *memSyncMetaRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, studentID)
	return nil
}

func (r *memSyncMetaRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]*types.SyncMetadata)
	return nil
}

// fakePusher records every submission and can be told to fail per record id.
type fakePusher struct {
	mu        sync.Mutex
	pushed    []string
	failWith  map[string]error
	failAllAs error
}

func newFakePusher() *fakePusher {
	return &fakePusher{failWith: make(map[string]error)}
}

func (p *fakePusher) PushProgress(ctx context.Context, entry *types.ProgressEntry) error {
	return p.record(entry.ID.String())
}

func (p *fakePusher) PushScore(ctx context.Context, score *types.GameScore) error {
	return p.record(score.ID.String())
}

func (p *fakePusher) record(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAllAs != nil {
		return p.failAllAs
	}
	if err, ok := p.failWith[id]; ok {
		return err
	}
	p.pushed = append(p.pushed, id)
	return nil
}

func (p *fakePusher) pushCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, pushed := range p.pushed {
		if pushed == id {
			count++
		}
	}
	return count
}

type fakeFetcher struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	errs    map[string]error
	fetches map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		blobs:   make(map[string][]byte),
		errs:    make(map[string]error),
		fetches: make(map[string]int),
	}
}

func (f *fakeFetcher) FetchAsset(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[url]++
	if err, ok := f.errs[url]; ok {
		return nil, "", err
	}
	blob, ok := f.blobs[url]
	if !ok {
		blob = []byte("blob:" + url)
	}
	return blob, "application/octet-stream", nil
}

// fixedScheduler pins every knob so tests are independent of the host.
type fixedScheduler struct {
	shouldSync    bool
	interval      time.Duration
	maxConcurrent int
	budget        int64
	preload       bool
}

func (s fixedScheduler) ShouldSync(ctx context.Context) bool            { return s.shouldSync }
func (s fixedScheduler) SyncInterval(ctx context.Context) time.Duration { return s.interval }
func (s fixedScheduler) MaxConcurrentDownloads(ctx context.Context) int { return s.maxConcurrent }
func (s fixedScheduler) CacheBudget(ctx context.Context) int64          { return s.budget }
func (s fixedScheduler) PreloadEnabled(ctx context.Context) bool        { return s.preload }

type fakeContentAPI struct {
	lessons map[string]*syncapi.LessonMeta
	games   map[string]*syncapi.GameMeta
}

func (a *fakeContentAPI) GetLesson(ctx context.Context, id string) (*syncapi.LessonMeta, error) {
	if meta, ok := a.lessons[id]; ok {
		return meta, nil
	}
	return nil, context.Canceled
}

func (a *fakeContentAPI) GetGame(ctx context.Context, id string) (*syncapi.GameMeta, error) {
	if meta, ok := a.games[id]; ok {
		return meta, nil
	}
	return nil, context.Canceled
}
