package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type ProgressRepo interface {
	Put(ctx context.Context, tx *gorm.DB, row *types.ProgressEntry) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProgressEntry, error)
	ListUnsynced(ctx context.Context, tx *gorm.DB) ([]*types.ProgressEntry, error)
	MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error)
	DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) Put(ctx context.Context, tx *gorm.DB, row *types.ProgressEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	// Save is a replace-by-id upsert.
	if err := transaction.WithContext(ctx).Save(row).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *progressRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProgressEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ProgressEntry
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *progressRepo) ListUnsynced(ctx context.Context, tx *gorm.DB) ([]*types.ProgressEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ProgressEntry
	if err := transaction.WithContext(ctx).
		Where("synced = ?", false).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRepo) MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	// Idempotent: marking an already-synced row again is a no-op.
	if err := transaction.WithContext(ctx).
		Model(&types.ProgressEntry{}).
		Where("id = ?", id).
		Update("synced", true).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *progressRepo) CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProgressEntry{}).
		Where("synced = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *progressRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == "" {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Delete(&types.ProgressEntry{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *progressRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.ProgressEntry{}).Error; err != nil {
		return err
	}
	return nil
}
