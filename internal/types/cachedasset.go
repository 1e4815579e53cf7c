package types

import (
	"time"

	"github.com/google/uuid"
)

// CachedAsset holds one downloaded binary, keyed logically by source URL
// (one cached copy per URL). LastAccessed is refreshed on every read and
// drives LRU eviction.
type CachedAsset struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	URL          string    `gorm:"column:url;not null;uniqueIndex" json:"url"`
	Blob         []byte    `gorm:"column:blob" json:"-"`
	MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
	Size         int64     `gorm:"column:size;not null" json:"size"`
	DownloadedAt time.Time `gorm:"column:downloaded_at;not null" json:"downloaded_at"`
	LastAccessed time.Time `gorm:"column:last_accessed;not null;index" json:"last_accessed"`
}

func (CachedAsset) TableName() string { return "cached_assets" }
