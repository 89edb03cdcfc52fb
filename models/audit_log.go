package models

import "time"

// AuditLogEntry is an append-only record of a lifecycle or security event.
// Data has already been anonymized by the time it reaches storage; entries
// are never updated or deleted by the application.
type AuditLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Event     string    `gorm:"size:100;index" json:"event"`
	Data      JSONMap   `gorm:"type:json" json:"data"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}
