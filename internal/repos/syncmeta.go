package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type SyncMetadataRepo interface {
	Put(ctx context.Context, tx *gorm.DB, row *types.SyncMetadata) error
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*types.SyncMetadata, error)
	DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type syncMetadataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncMetadataRepo(db *gorm.DB, baseLog *logger.Logger) SyncMetadataRepo {
	return &syncMetadataRepo{db: db, log: baseLog.With("repo", "SyncMetadataRepo")}
}

func (r *syncMetadataRepo) Put(ctx context.Context, tx *gorm.DB, row *types.SyncMetadata) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).Save(row).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *syncMetadataRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*types.SyncMetadata, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.SyncMetadata
	err := transaction.WithContext(ctx).Where("student_id = ?", studentID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *syncMetadataRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == "" {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Delete(&types.SyncMetadata{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *syncMetadataRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.SyncMetadata{}).Error; err != nil {
		return err
	}
	return nil
}
