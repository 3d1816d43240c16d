package models

import "time"

const TableAssetTypes = "asset_types"

type AssetType struct {
	ID          uint      `json:"id" db:"id" gorm:"primaryKey"`
	Name        string    `json:"name" db:"name" gorm:"size:100;not null;uniqueIndex"`
	Description *string   `json:"description" db:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

func (AssetType) TableName() string {
	return TableAssetTypes
}
