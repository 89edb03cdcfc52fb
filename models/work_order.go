package models

import "time"

// Work order priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// WorkOrder is the staff-facing actionable ticket. When derived from a chat
// request it carries that request's id; staff-initiated tickets and food
// orders get a freshly generated one. AssignedAt/StartedAt/CompletedAt are
// each stamped on first entry into the matching status.
type WorkOrder struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	RequestID   string     `gorm:"column:request_id;size:64;uniqueIndex" json:"request_id"`
	GuestID     string     `gorm:"column:guest_id;size:64;index:idx_wo_guest_created,priority:1" json:"guest_id"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Department  string     `gorm:"size:32;index:idx_wo_dept_priority,priority:1" json:"department"`
	Status      string     `gorm:"size:32;default:'pending';index:idx_wo_staff_status,priority:2" json:"status"`
	Priority    string     `gorm:"size:16;default:'medium';index:idx_wo_dept_priority,priority:2" json:"priority"`
	StaffID     *string    `gorm:"column:staff_id;size:64;index:idx_wo_staff_status,priority:1" json:"staff_id,omitempty"`
	EstimatedMinutes *int  `gorm:"column:estimated_minutes" json:"estimated_duration,omitempty"`
	ActualMinutes    *int  `gorm:"column:actual_minutes" json:"actual_duration,omitempty"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       StringList `gorm:"type:json" json:"notes"`
	Tags        StringList `gorm:"type:json" json:"tags"`
	Metadata    JSONMap    `gorm:"type:json" json:"metadata"`
	CreatedAt   time.Time  `gorm:"index:idx_wo_guest_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// Overdue reports whether the order is still pending past its estimate.
func (w *WorkOrder) Overdue(now time.Time) bool {
	if w.Status != StatusPending || w.EstimatedMinutes == nil {
		return false
	}
	return now.After(w.CreatedAt.Add(time.Duration(*w.EstimatedMinutes) * time.Minute))
}
