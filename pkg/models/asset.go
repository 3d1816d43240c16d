package models

import "time"

const TableAssets = "assets"

// Asset is the root entity. Foreign keys are plain ids; the constraints are
// owned by the migration engine rather than by gorm associations.
type Asset struct {
	ID                uint          `json:"id" db:"id" gorm:"primaryKey"`
	AssetModelID      uint          `json:"assetModelId" db:"asset_model_id" gorm:"not null;index"`
	LocationID        uint          `json:"locationId" db:"location_id" gorm:"not null;index"`
	OwnerID           uint          `json:"ownerId" db:"owner_id" gorm:"not null;index"`
	ExpressServiceTag *string       `json:"expressServiceTag" db:"express_service_tag" gorm:"size:64"`
	PurchaseType      *PurchaseType `json:"purchaseType" db:"purchase_type" gorm:"type:varchar(16)"`
	CreatedAt         time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time     `json:"updatedAt" db:"updated_at"`
}

func (Asset) TableName() string {
	return TableAssets
}
