package models

import "time"

// Notification types.
const (
	NotifyChat      = "chat"
	NotifyWorkOrder = "work_order"
	NotifySystem    = "system"
	NotifyAlert     = "alert"
	NotifyReminder  = "reminder"
)

func ValidNotificationType(t string) bool {
	switch t {
	case NotifyChat, NotifyWorkOrder, NotifySystem, NotifyAlert, NotifyReminder:
		return true
	}
	return false
}

// Notification is an in-app message for a guest or staff member. Read is
// monotonic: once true it never goes back, and ReadAt is set exactly when it
// flips.
type Notification struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	NotificationID string     `gorm:"column:notification_id;size:64;uniqueIndex" json:"notification_id"`
	RequestID      string     `gorm:"column:request_id;size:64;index" json:"request_id,omitempty"`
	GuestID        string     `gorm:"column:guest_id;size:64;index:idx_notif_guest_read,priority:1" json:"guest_id"`
	Type           string     `gorm:"size:32" json:"type"`
	Message        string     `gorm:"type:text;not null" json:"message"`
	// column named is_read; READ is reserved in MySQL
	Read           bool       `gorm:"column:is_read;default:false;index:idx_notif_guest_read,priority:2" json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	Expiry         time.Time  `json:"expiry"`
	Priority       string     `gorm:"size:16;default:'medium'" json:"priority"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
