package models

import "time"

const TableOwners = "owners"

type Owner struct {
	ID        uint      `json:"id" db:"id" gorm:"primaryKey"`
	Name      string    `json:"name" db:"name" gorm:"size:255;not null;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (Owner) TableName() string {
	return TableOwners
}
