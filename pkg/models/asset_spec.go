package models

import "time"

const TableAssetSpecs = "asset_specs"

// AssetSpec is one key/value line of an asset model's specification sheet.
type AssetSpec struct {
	ID           uint      `json:"id" db:"id" gorm:"primaryKey"`
	AssetModelID uint      `json:"assetModelId" db:"asset_model_id" gorm:"not null;index"`
	Key          string    `json:"key" db:"key" gorm:"size:100;not null"`
	Value        string    `json:"value" db:"value" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

func (AssetSpec) TableName() string {
	return TableAssetSpecs
}
