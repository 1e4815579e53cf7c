package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GameScore is immutable once created: a replay appends a new row instead of
// editing the old score. Only the Synced flag ever changes after creation.
type GameScore struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        string         `gorm:"column:student_id;not null;index" json:"student_id"`
	GameID           string         `gorm:"column:game_id;not null;index" json:"game_id"`
	Score            int            `gorm:"column:score;not null" json:"score"`
	TimeSpentSeconds int            `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	Level            int            `gorm:"column:level;not null;default:1" json:"level"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	Timestamp        time.Time      `gorm:"column:timestamp;not null" json:"timestamp"`
	Synced           bool           `gorm:"column:synced;not null;default:false;index" json:"synced"`
}

func (GameScore) TableName() string { return "game_scores" }
