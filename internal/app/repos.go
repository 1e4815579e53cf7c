package app

import (
	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/repos"
)

type Repos struct {
	Progress  repos.ProgressRepo
	GameScore repos.GameScoreRepo
	Badge     repos.BadgeRepo
	Lesson    repos.LessonRepo
	Game      repos.GameRepo
	Asset     repos.AssetRepo
	SyncMeta  repos.SyncMetadataRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Progress:  repos.NewProgressRepo(db, log),
		GameScore: repos.NewGameScoreRepo(db, log),
		Badge:     repos.NewBadgeRepo(db, log),
		Lesson:    repos.NewLessonRepo(db, log),
		Game:      repos.NewGameRepo(db, log),
		Asset:     repos.NewAssetRepo(db, log),
		SyncMeta:  repos.NewSyncMetadataRepo(db, log),
	}
}
