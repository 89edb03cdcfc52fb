package models

import "time"

// Guest is a registered hotel guest profile. PinHash backs the room+PIN
// sign-in flow; the raw PIN is never stored.
type Guest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GuestID   string    `gorm:"column:guest_id;size:64;uniqueIndex" json:"guest_id"`
	Name      string    `gorm:"size:100" json:"name"`
	Room      string    `gorm:"size:16;index" json:"room"`
	PinHash   string    `gorm:"size:100" json:"-"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Guest) TableName() string {
	return "guest_profiles"
}
