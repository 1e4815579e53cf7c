package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

// ContentFilter narrows offline content lookups. Zero values match all.
type ContentFilter struct {
	Grade   int
	Subject string
}

type LessonRepo interface {
	Put(ctx context.Context, tx *gorm.DB, row *types.Lesson) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Lesson, error)
	List(ctx context.Context, tx *gorm.DB, filter ContentFilter) ([]*types.Lesson, error)
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

// Put replaces the whole row by id. Lesson metadata is never patched in
// place; a re-download overwrites everything.
func (r *lessonRepo) Put(ctx context.Context, tx *gorm.DB, row *types.Lesson) error {
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

func (r *lessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Lesson
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *lessonRepo) List(ctx context.Context, tx *gorm.DB, filter ContentFilter) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Model(&types.Lesson{})
	if filter.Grade > 0 {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Subject != "" {
		query = query.Where("subject_id = ?", filter.Subject)
	}
	var results []*types.Lesson
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.Lesson{}).Error; err != nil {
		return err
	}
	return nil
}
