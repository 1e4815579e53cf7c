package types

import "time"

// SyncMetadata is a derived summary, one row per student. It is recomputed
// unconditionally after every sync pass and after every local write that
// changes the pending count, so UI counters never drift from store truth.
type SyncMetadata struct {
	StudentID        string    `gorm:"column:student_id;primaryKey" json:"student_id"`
	LastSyncTime     time.Time `gorm:"column:last_sync_time" json:"last_sync_time"`
	PendingUploads   int64     `gorm:"column:pending_uploads;not null;default:0" json:"pending_uploads"`
	TotalOfflineSize int64     `gorm:"column:total_offline_size;not null;default:0" json:"total_offline_size"`
}

func (SyncMetadata) TableName() string { return "sync_metadata" }
