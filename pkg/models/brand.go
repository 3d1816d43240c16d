package models

import "time"

const TableBrands = "brands"

type Brand struct {
	ID        uint      `json:"id" db:"id" gorm:"primaryKey"`
	Name      string    `json:"name" db:"name" gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (Brand) TableName() string {
	return TableBrands
}
