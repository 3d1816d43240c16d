package models

import "time"

const TableAssetModels = "asset_models"

// AssetModel is a catalog entry such as "Dell Latitude 5420". Titles are not
// unique.
type AssetModel struct {
	ID          uint      `json:"id" db:"id" gorm:"primaryKey"`
	AssetTypeID uint      `json:"assetTypeId" db:"asset_type_id" gorm:"not null;index"`
	BrandID     uint      `json:"brandId" db:"brand_id" gorm:"not null;index"`
	Title       string    `json:"title" db:"title" gorm:"size:255;not null"`
	SpecSummary *string   `json:"specSummary" db:"spec_summary" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

func (AssetModel) TableName() string {
	return TableAssetModels
}
