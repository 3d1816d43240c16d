package models

import "time"

const TableAssetMaintenances = "asset_maintenances"

// AssetMaintenance is a maintenance ticket. A nil CompletedAt means the ticket
// is still open.
type AssetMaintenance struct {
	ID          uint       `json:"id" db:"id" gorm:"primaryKey"`
	AssetID     uint       `json:"assetId" db:"asset_id" gorm:"not null;index"`
	Vendor      string     `json:"vendor" db:"vendor" gorm:"size:255;not null"`
	Duration    string     `json:"duration" db:"duration" gorm:"size:100;not null"`
	ScheduledAt time.Time  `json:"scheduledAt" db:"scheduled_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completedAt" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

func (AssetMaintenance) TableName() string {
	return TableAssetMaintenances
}
