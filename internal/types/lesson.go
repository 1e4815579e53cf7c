package types

import (
	"time"

	"gorm.io/datatypes"
)

// Lesson is a denormalized copy of server lesson metadata. It flows
// server -> client only: the UI never mutates it, a re-download replaces the
// whole row.
type Lesson struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	SubjectID    string         `gorm:"column:subject_id;index" json:"subject_id"`
	Grade        int            `gorm:"column:grade;index" json:"grade"`
	Language     string         `gorm:"column:language;not null;default:'en'" json:"language"`
	Assets       datatypes.JSON `gorm:"column:assets" json:"assets"`
	LastUpdated  time.Time      `gorm:"column:last_updated;not null" json:"last_updated"`
	DownloadedAt time.Time      `gorm:"column:downloaded_at;not null" json:"downloaded_at"`
}

func (Lesson) TableName() string { return "lessons" }

func (l *Lesson) Manifest() (AssetManifest, error) {
	return DecodeManifest(l.Assets)
}
