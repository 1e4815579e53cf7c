package types

import (
	"time"

	"gorm.io/datatypes"
)

// Game is a denormalized copy of server game metadata, replaced wholesale on
// re-download. AssetsDownloaded flips once the asset bundle has been pulled.
type Game struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Subject          string         `gorm:"column:subject;index" json:"subject"`
	Grade            int            `gorm:"column:grade;index" json:"grade"`
	Difficulty       string         `gorm:"column:difficulty" json:"difficulty"`
	Assets           datatypes.JSON `gorm:"column:assets" json:"assets"`
	AssetsDownloaded bool           `gorm:"column:assets_downloaded;not null;default:false" json:"assets_downloaded"`
	LastUpdated      time.Time      `gorm:"column:last_updated;not null" json:"last_updated"`
	DownloadedAt     time.Time      `gorm:"column:downloaded_at;not null" json:"downloaded_at"`
}

func (Game) TableName() string { return "games" }

func (g *Game) Manifest() (AssetManifest, error) {
	return DecodeManifest(g.Assets)
}
