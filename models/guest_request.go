package models

import "time"

// Hotel departments a request can be routed to.
const (
	DeptHousekeeping = "housekeeping"
	DeptMaintenance  = "maintenance"
	DeptFrontDesk    = "front_desk"
	DeptRoomService  = "room_service"
	DeptIT           = "it"
	DeptSecurity     = "security"
	DeptConcierge    = "concierge"
)

// Lifecycle states shared by chat requests and work orders.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusOnHold     = "on_hold"
)

// Departments lists every valid department, in no particular order.
var Departments = []string{
	DeptHousekeeping, DeptMaintenance, DeptFrontDesk, DeptRoomService,
	DeptIT, DeptSecurity, DeptConcierge,
}

func ValidDepartment(d string) bool {
	for _, dept := range Departments {
		if d == dept {
			return true
		}
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled, StatusOnHold:
		return true
	}
	return false
}

// TerminalStatus reports whether s permits no further transitions.
func TerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// GuestRequest is a guest's incoming chat message or order, tracked through
// its lifecycle. RequestID is the public identifier; the numeric ID is
// internal to the database.
type GuestRequest struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	RequestID  string     `gorm:"column:request_id;size:64;uniqueIndex" json:"request_id"`
	GuestID    string     `gorm:"column:guest_id;size:64;index:idx_chat_guest_created,priority:1" json:"guest_id"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Department string     `gorm:"size:32;index:idx_chat_status_dept,priority:2" json:"department"`
	Status     string     `gorm:"size:32;default:'pending';index:idx_chat_status_dept,priority:1" json:"status"`
	Tags       StringList `gorm:"type:json" json:"tags"`
	Sentiment  *float64   `json:"sentiment,omitempty"`
	Metadata   JSONMap    `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time  `gorm:"index:idx_chat_guest_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (GuestRequest) TableName() string {
	return "chat_requests"
}
