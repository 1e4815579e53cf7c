package types

import (
	"time"

	"github.com/google/uuid"
)

// Badge marks an achievement earned by a student. The unique index on
// (student_id, achievement_id) makes a second award of the same achievement
// a no-op at the store level.
type Badge struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID     string    `gorm:"column:student_id;not null;index:idx_student_achievement,unique" json:"student_id"`
	AchievementID string    `gorm:"column:achievement_id;not null;index:idx_student_achievement,unique" json:"achievement_id"`
	EarnedAt      time.Time `gorm:"column:earned_at;not null" json:"earned_at"`
	Synced        bool      `gorm:"column:synced;not null;default:false;index" json:"synced"`
}

func (Badge) TableName() string { return "badges" }
