package models

import "time"

// Identity roles carried in bearer tokens.
const (
	RoleGuest = "guest"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// StaffUser is a hotel employee account used for staff/admin sign-in.
type StaffUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	Name         string    `gorm:"size:100" json:"name"`
	Role         string    `gorm:"size:16;default:'staff'" json:"role"`
	Department   string    `gorm:"size:32" json:"department,omitempty"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (StaffUser) TableName() string {
	return "staff_users"
}
