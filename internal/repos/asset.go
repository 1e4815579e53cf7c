package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type AssetRepo interface {
	Put(ctx context.Context, tx *gorm.DB, row *types.CachedAsset) error
	GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.CachedAsset, error)
	Touch(ctx context.Context, tx *gorm.DB, url string, at time.Time) error
	TotalSize(ctx context.Context, tx *gorm.DB) (int64, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	ListByLastAccessed(ctx context.Context, tx *gorm.DB) ([]*types.CachedAsset, error)
	DeleteAccessedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

// Put stores one cached copy per source URL: a re-download of the same URL
// overwrites the prior blob.
func (r *assetRepo) Put(ctx context.Context, tx *gorm.DB, row *types.CachedAsset) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			UpdateAll: true,
		}).
		Create(row).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *assetRepo) GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.CachedAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.CachedAsset
	err := transaction.WithContext(ctx).Where("url = ?", url).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *assetRepo) Touch(ctx context.Context, tx *gorm.DB, url string, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.CachedAsset{}).
		Where("url = ?", url).
		Update("last_accessed", at).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *assetRepo) TotalSize(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.CachedAsset{}).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *assetRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CachedAsset{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByLastAccessed returns all cached assets, least recently accessed
// first. Blobs are omitted; eviction only needs ids, urls and sizes.
func (r *assetRepo) ListByLastAccessed(ctx context.Context, tx *gorm.DB) ([]*types.CachedAsset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CachedAsset
	if err := transaction.WithContext(ctx).
		Model(&types.CachedAsset{}).
		Select("id", "url", "size", "downloaded_at", "last_accessed").
		Order("last_accessed ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assetRepo) DeleteAccessedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("last_accessed < ?", cutoff).
		Delete(&types.CachedAsset{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *assetRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.CachedAsset{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *assetRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.CachedAsset{}).Error; err != nil {
		return err
	}
	return nil
}
