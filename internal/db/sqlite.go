package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

// SqliteService owns the on-device database. WAL mode keeps single reads
// consistent while a write is in flight; the busy timeout covers the brief
// write lock held by an upsert.
type SqliteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSqliteService(path string, log *logger.Logger) (*SqliteService, error) {
	serviceLog := log.With("service", "SqliteService")

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)

	serviceLog.Info("Opening offline store", "path", path)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		serviceLog.Error("Failed to open offline store", "error", err)
		return nil, fmt.Errorf("open offline store: %w", err)
	}

	return &SqliteService{db: gdb, log: serviceLog}, nil
}

func (s *SqliteService) AutoMigrateAll() error {
	s.log.Info("Migrating offline store collections...")
	err := s.db.AutoMigrate(
		&types.Lesson{},
		&types.Game{},
		&types.ProgressEntry{},
		&types.GameScore{},
		&types.Badge{},
		&types.CachedAsset{},
		&types.SyncMetadata{},
	)
	if err != nil {
		s.log.Error("Offline store migration failed", "error", err)
		return fmt.Errorf("migrate offline store: %w", err)
	}
	return nil
}

func (s *SqliteService) DB() *gorm.DB {
	return s.db
}

func (s *SqliteService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
