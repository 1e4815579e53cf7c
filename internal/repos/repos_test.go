package repos

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// Each sqlite connection gets its own private in-memory database, so
	// the pool must stay at a single connection for tests to share state.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&types.Lesson{},
		&types.Game{},
		&types.ProgressEntry{},
		&types.GameScore{},
		&types.Badge{},
		&types.CachedAsset{},
		&types.SyncMetadata{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
