package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

type GameRepo interface {
	Put(ctx context.Context, tx *gorm.DB, row *types.Game) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Game, error)
	List(ctx context.Context, tx *gorm.DB, filter ContentFilter) ([]*types.Game, error)
	SetAssetsDownloaded(ctx context.Context, tx *gorm.DB, id string, downloaded bool) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type gameRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGameRepo(db *gorm.DB, baseLog *logger.Logger) GameRepo {
	return &gameRepo{db: db, log: baseLog.With("repo", "GameRepo")}
}

func (r *gameRepo) Put(ctx context.Context, tx *gorm.DB, row *types.Game) error {
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

func (r *gameRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Game, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Game
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gameRepo) List(ctx context.Context, tx *gorm.DB, filter ContentFilter) ([]*types.Game, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Model(&types.Game{})
	if filter.Grade > 0 {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	var results []*types.Game
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *gameRepo) SetAssetsDownloaded(ctx context.Context, tx *gorm.DB, id string, downloaded bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Game{}).
		Where("id = ?", id).
		Update("assets_downloaded", downloaded).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

func (r *gameRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.Game{}).Error; err != nil {
		return err
	}
	return nil
}
