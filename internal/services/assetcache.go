package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/repos"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

// ErrAssetNotFound is returned by GetAsset on a cache miss. The caller
// decides whether to fetch live or fail.
var ErrAssetNotFound = errors.New("asset not cached")

// AssetFetcher is the slice of the API client the cache needs.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, url string) ([]byte, string, error)
}

// BundleProgress is one tick of a bundle download. Percent always reaches
// 100: failed items count toward completion so the indicator never stalls.
type BundleProgress struct {
	URL       string `json:"url"`
	Percent   int    `json:"percent"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Total     int    `json:"total"`
}

type AssetCacheConfig struct {
	MaxAssetAge time.Duration
}

func DefaultAssetCacheConfig() AssetCacheConfig {
	return AssetCacheConfig{MaxAssetAge: 30 * 24 * time.Hour}
}

type AssetCacheService interface {
	CacheAsset(ctx context.Context, url string) error
	GetAsset(ctx context.Context, url string) ([]byte, string, error)
	DownloadBundle(ctx context.Context, urls []string) <-chan BundleProgress
	Evict(ctx context.Context) error
	Usage(ctx context.Context) (used int64, budget int64, err error)
}

type assetCacheService struct {
	assets  repos.AssetRepo
	fetcher AssetFetcher
	sched   Scheduler
	cfg     AssetCacheConfig
	log     *logger.Logger

	// inflight guards against evicting an asset that is mid-download.
	mu       sync.Mutex
	inflight map[string]int
}

func NewAssetCacheService(assets repos.AssetRepo, fetcher AssetFetcher, sched Scheduler, cfg AssetCacheConfig, baseLog *logger.Logger) AssetCacheService {
	return &assetCacheService{
		assets:   assets,
		fetcher:  fetcher,
		sched:    sched,
		cfg:      cfg,
		log:      baseLog.With("service", "AssetCacheService"),
		inflight: make(map[string]int),
	}
}

func (s *assetCacheService) CacheAsset(ctx context.Context, url string) error {
	s.beginFetch(url)
	defer s.endFetch(url)

	blob, mimeType, err := s.fetcher.FetchAsset(ctx, url)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	row := &types.CachedAsset{
		ID:           uuid.New(),
		URL:          url,
		Blob:         blob,
		MimeType:     mimeType,
		Size:         int64(len(blob)),
		DownloadedAt: now,
		LastAccessed: now,
	}
	if err := s.assets.Put(ctx, nil, row); err != nil {
		return err
	}
	return nil
}

func (s *assetCacheService) GetAsset(ctx context.Context, url string) ([]byte, string, error) {
	row, err := s.assets.GetByURL(ctx, nil, url)
	if err != nil {
		return nil, "", err
	}
	if row == nil {
		return nil, "", ErrAssetNotFound
	}
	if err := s.assets.Touch(ctx, nil, url, time.Now().UTC()); err != nil {
		s.log.Warn("Failed to refresh asset access time", "url", url, "error", err)
	}
	return row.Blob, row.MimeType, nil
}

// DownloadBundle fetches urls with concurrency bounded by the device tier.
// Cancelling ctx stops new fetches from being issued; fetches already in
// flight run to completion and still cache their bytes.
func (s *assetCacheService) DownloadBundle(ctx context.Context, urls []string) <-chan BundleProgress {
	total := len(urls)
	// Buffered so a consumer that walks away after cancel never blocks us.
	progress := make(chan BundleProgress, total+1)

	if total == 0 {
		progress <- BundleProgress{Percent: 100}
		close(progress)
		return progress
	}

	maxConcurrent := s.sched.MaxConcurrentDownloads(ctx)
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	go func() {
		defer close(progress)
		var wg sync.WaitGroup
		var mu sync.Mutex
		completed, failed := 0, 0

		for _, url := range urls {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				defer sem.Release(1)
				// The fetch outlives a caller cancellation on purpose: bytes
				// already on the wire are worth keeping.
				err := s.CacheAsset(context.WithoutCancel(ctx), u)
				mu.Lock()
				completed++
				if err != nil {
					failed++
					s.log.Warn("Asset download failed, continuing bundle", "url", u, "error", err)
				}
				// Sent while still holding mu so ticks leave in counter order
				// and the final tick is the 100% one. The channel is buffered
				// to the bundle size, so the send cannot block under the lock.
				progress <- BundleProgress{
					URL:       u,
					Percent:   completed * 100 / total,
					Completed: completed,
					Failed:    failed,
					Total:     total,
				}
				mu.Unlock()
			}(url)
		}
		wg.Wait()
	}()

	return progress
}

// Evict runs the age pass, then the capacity pass: while total size exceeds
// the tier budget, least-recently-accessed entries go first (never fewer
// than the LRU half once the budget is breached). In-flight downloads are
// exempt.
func (s *assetCacheService) Evict(ctx context.Context) error {
	if s.cfg.MaxAssetAge > 0 {
		cutoff := time.Now().UTC().Add(-s.cfg.MaxAssetAge)
		if err := s.assets.DeleteAccessedBefore(ctx, nil, cutoff); err != nil {
			return err
		}
	}

	budget := s.sched.CacheBudget(ctx)
	used, err := s.assets.TotalSize(ctx, nil)
	if err != nil {
		return err
	}
	if used <= budget {
		return nil
	}

	rows, err := s.assets.ListByLastAccessed(ctx, nil)
	if err != nil {
		return err
	}

	half := len(rows) / 2
	var victims []uuid.UUID
	removedBytes := int64(0)
	for _, row := range rows {
		if s.isInflight(row.URL) {
			continue
		}
		if used-removedBytes <= budget && len(victims) >= half {
			break
		}
		victims = append(victims, row.ID)
		removedBytes += row.Size
	}
	if err := s.assets.DeleteByIDs(ctx, nil, victims); err != nil {
		return err
	}
	s.log.Info("Evicted cached assets over budget",
		"evicted", len(victims),
		"freed_bytes", removedBytes,
		"budget", budget,
	)
	return nil
}

func (s *assetCacheService) Usage(ctx context.Context) (int64, int64, error) {
	used, err := s.assets.TotalSize(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	return used, s.sched.CacheBudget(ctx), nil
}

func (s *assetCacheService) beginFetch(url string) {
	s.mu.Lock()
	s.inflight[url]++
	s.mu.Unlock()
}

func (s *assetCacheService) endFetch(url string) {
	s.mu.Lock()
	s.inflight[url]--
	if s.inflight[url] <= 0 {
		delete(s.inflight, url)
	}
	s.mu.Unlock()
}

func (s *assetCacheService) isInflight(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[url] > 0
}
