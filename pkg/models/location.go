package models

import "time"

const TableLocations = "locations"

// Location is a place an asset lives in. Several rows may share a name and
// differ by room.
type Location struct {
	ID        uint      `json:"id" db:"id" gorm:"primaryKey"`
	Name      string    `json:"name" db:"name" gorm:"size:255;not null;index"`
	Room      *string   `json:"room" db:"room" gorm:"size:255"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (Location) TableName() string {
	return TableLocations
}
