package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type BadgeRepo interface {
	Award(ctx context.Context, tx *gorm.DB, studentID, achievementID string) (*types.Badge, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*types.Badge, error)
	MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error)
	DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type badgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBadgeRepo(db *gorm.DB, baseLog *logger.Logger) BadgeRepo {
	return &badgeRepo{db: db, log: baseLog.With("repo", "BadgeRepo")}
}

// Award upserts by the unique (student_id, achievement_id) pair: re-awarding
// an achievement returns the existing row untouched.
func (r *badgeRepo) Award(ctx context.Context, tx *gorm.DB, studentID, achievementID string) (*types.Badge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.Badge{
		ID:            uuid.New(),
		StudentID:     studentID,
		AchievementID: achievementID,
		EarnedAt:      time.Now().UTC(),
	}
	err := transaction.WithContext(ctx).
		Where("student_id = ? AND achievement_id = ?", studentID, achievementID).
		FirstOrCreate(row).Error
	if isUniqueViolation(err) {
		// A concurrent Award won the insert between our lookup and create.
		// The row exists now, so re-read it.
		existing := &types.Badge{}
		if err := transaction.WithContext(ctx).
			Where("student_id = ? AND achievement_id = ?", studentID, achievementID).
			First(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, writeErr(err)
	}
	return row, nil
}

func (r *badgeRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*types.Badge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Badge
	if studentID == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *badgeRepo) MarkSynced(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Badge{}).
		Where("id = ?", id).
		Update("synced", true).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *badgeRepo) CountUnsynced(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Badge{}).
		Where("synced = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *badgeRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == "" {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Delete(&types.Badge{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *badgeRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.Badge{}).Error; err != nil {
		return err
	}
	return nil
}
