package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type GameScoreRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.GameScore) error
	ListUnsynced(ctx context.Context, tx *gorm.DB) ([]*types.GameScore, error)
	MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error)
	DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type gameScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGameScoreRepo(db *gorm.DB, baseLog *logger.Logger) GameScoreRepo {
	return &gameScoreRepo{db: db, log: baseLog.With("repo", "GameScoreRepo")}
}

// Create appends a new score row. Scores are immutable: a replay creates a
// new entry rather than editing an old one.
func (r *gameScoreRepo) Create(ctx context.Context, tx *gorm.DB, row *types.GameScore) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *gameScoreRepo) ListUnsynced(ctx context.Context, tx *gorm.DB) ([]*types.GameScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GameScore
	if err := transaction.WithContext(ctx).
		Where("synced = ?", false).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *gameScoreRepo) MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.GameScore{}).
		Where("id = ?", id).
		Update("synced", true).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *gameScoreRepo) CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.GameScore{}).
		Where("synced = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *gameScoreRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == "" {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Delete(&types.GameScore{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *gameScoreRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.GameScore{}).Error; err != nil {
		return err
	}
	return nil
}
