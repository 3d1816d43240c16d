package models

import "time"

const TableAssetNotes = "asset_notes"

// AssetNote is a free-form key/value annotation on a single asset.
type AssetNote struct {
	ID        uint      `json:"id" db:"id" gorm:"primaryKey"`
	AssetID   uint      `json:"assetId" db:"asset_id" gorm:"not null;index"`
	Key       string    `json:"key" db:"key" gorm:"size:100;not null"`
	Value     string    `json:"value" db:"value" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (AssetNote) TableName() string {
	return TableAssetNotes
}
