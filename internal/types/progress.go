package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ProgressTypeLesson = "lesson"
	ProgressTypeGame   = "game"

	ProgressStatusInProgress = "in_progress"
	ProgressStatusCompleted  = "completed"
)

// ProgressEntry records a student's work on one lesson or one game. The ID is
// client-generated and doubles as the idempotency key when the entry is
// pushed to the server.
type ProgressEntry struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        string         `gorm:"column:student_id;not null;index" json:"student_id"`
	LessonID         *string        `gorm:"column:lesson_id;index" json:"lesson_id,omitempty"`
	GameID           *string        `gorm:"column:game_id;index" json:"game_id,omitempty"`
	Type             string         `gorm:"column:type;not null" json:"type"`
	Status           string         `gorm:"column:status;not null;default:'in_progress'" json:"status"`
	Score            *int           `gorm:"column:score" json:"score,omitempty"`
	TimeSpentSeconds int            `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	StartedAt        time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Attempts         int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	BestScore        *int           `gorm:"column:best_score" json:"best_score,omitempty"`
	Synced           bool           `gorm:"column:synced;not null;default:false;index" json:"synced"`
	LastModified     time.Time      `gorm:"column:last_modified;not null" json:"last_modified"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
}

func (ProgressEntry) TableName() string { return "progress_entries" }

// Validate enforces the lesson/game exclusivity rule at write time: exactly
// one of LessonID and GameID must be set.
func (p *ProgressEntry) Validate() error {
	hasLesson := p.LessonID != nil && *p.LessonID != ""
	hasGame := p.GameID != nil && *p.GameID != ""
	if hasLesson == hasGame {
		return fmt.Errorf("progress entry must reference exactly one of lesson or game")
	}
	if p.StudentID == "" {
		return fmt.Errorf("progress entry missing student id")
	}
	return nil
}

// ApplyScore records a new score while keeping BestScore monotonically
// non-decreasing: a worse replay never lowers it.
func (p *ProgressEntry) ApplyScore(score int) {
	s := score
	p.Score = &s
	if p.BestScore == nil || score > *p.BestScore {
		best := score
		p.BestScore = &best
	}
}
