package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/intent"
	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/utils"
)

// maxMessageLength bounds the guest message size accepted at intake.
const maxMessageLength = 2000

// Lifecycle implements request intake, routing, and state management. All
// mutations return typed errors; side effects (notifications, audit) are
// dispatched asynchronously after the database write succeeds.
type Lifecycle struct {
	store      *database.Store
	classifier *intent.Classifier
	sessions   *SessionStore
	notifier   *Notifier
	audit      *Auditor
}

func NewLifecycle(store *database.Store, classifier *intent.Classifier, sessions *SessionStore, notifier *Notifier, audit *Auditor) *Lifecycle {
	return &Lifecycle{
		store:      store,
		classifier: classifier,
		sessions:   sessions,
		notifier:   notifier,
		audit:      audit,
	}
}

// CreateRequestInput carries guest intake fields. Exactly one of Text,
// QuickReply, or VoiceTranscript supplies the message; Department, when set,
// bypasses classification.
type CreateRequestInput struct {
	GuestID         string
	Text            string
	QuickReply      string
	VoiceTranscript string
	Department      string
	SessionID       string
	Images          []string
	Tags            []string
}

// CreateGuestRequest validates and persists a new guest request, routing it
// to a department via the classifier unless one was given explicitly.
func (l *Lifecycle) CreateGuestRequest(ctx context.Context, in CreateRequestInput) (*models.GuestRequest, error) {
	message := strings.TrimSpace(in.Text)
	if message == "" {
		message = strings.TrimSpace(in.QuickReply)
	}
	if message == "" {
		message = strings.TrimSpace(in.VoiceTranscript)
	}
	if message == "" {
		return nil, Errf(KindValidation, "message text is required")
	}
	if len(message) > maxMessageLength {
		return nil, Errf(KindValidation, "message exceeds %d characters", maxMessageLength)
	}

	department := in.Department
	if department != "" && !models.ValidDepartment(department) {
		return nil, Errf(KindValidation, "unknown department %q", department)
	}
	if department == "" {
		department = l.classifier.Classify(ctx, message, in.SessionID, in.GuestID)
	}

	metadata := models.JSONMap{}
	if in.SessionID != "" {
		metadata["session_id"] = in.SessionID
	}
	if len(in.Images) > 0 {
		metadata["images"] = in.Images
	}

	req := models.GuestRequest{
		RequestID:  utils.GenerateRequestID(),
		GuestID:    in.GuestID,
		Message:    message,
		Department: department,
		Status:     models.StatusPending,
		Tags:       models.StringList(in.Tags),
		Metadata:   metadata,
	}
	if err := l.store.DB.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, l.storeErr(err, "failed to create request")
	}

	if _, err := l.sessions.AppendTurn(ctx, in.GuestID, message, department); err != nil {
		utils.Log.Warn().Err(err).Str("guest_id", in.GuestID).Msg("failed to record session turn")
	}

	go l.audit.Record("request_created", map[string]interface{}{
		"request_id": req.RequestID,
		"guest_id":   req.GuestID,
		"department": req.Department,
	})
	go l.notifier.Dispatch(NotificationPayload{
		Event:      "request_created",
		RequestID:  req.RequestID,
		GuestID:    req.GuestID,
		Type:       models.NotifyChat,
		Message:    "Your request has been received and routed to " + department + ".",
		Department: department,
		Status:     req.Status,
	})

	return &req, nil
}

// CreateWorkOrderInput carries staff ticket fields. RequestRef, when set,
// must name an existing guest request whose id the order inherits.
type CreateWorkOrderInput struct {
	GuestID          string
	Description      string
	Department       string
	Priority         string
	RequestRef       string
	EstimatedMinutes *int
	Tags             []string
	Notes            []string
}

// CreateWorkOrder persists a new work order in the pending state.
func (l *Lifecycle) CreateWorkOrder(ctx context.Context, in CreateWorkOrderInput) (*models.WorkOrder, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, Errf(KindValidation, "description is required")
	}
	if in.Department != "" && !models.ValidDepartment(in.Department) {
		return nil, Errf(KindValidation, "unknown department %q", in.Department)
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, Errf(KindValidation, "unknown priority %q", priority)
	}
	if in.EstimatedMinutes != nil && *in.EstimatedMinutes <= 0 {
		return nil, Errf(KindValidation, "estimated_duration must be positive")
	}

	requestID := utils.GenerateRequestID()
	guestID := in.GuestID
	department := in.Department
	if in.RequestRef != "" {
		req, err := l.GetRequestByID(ctx, in.RequestRef)
		if err != nil {
			return nil, err
		}
		requestID = req.RequestID
		if guestID == "" {
			guestID = req.GuestID
		}
		if department == "" {
			department = req.Department
		}
	}
	if department == "" {
		department = l.classifier.Classify(ctx, description, "", guestID)
	}

	order := models.WorkOrder{
		RequestID:        requestID,
		GuestID:          guestID,
		Description:      description,
		Department:       department,
		Status:           models.StatusPending,
		Priority:         priority,
		EstimatedMinutes: in.EstimatedMinutes,
		Tags:             models.StringList(in.Tags),
		Notes:            models.StringList(in.Notes),
		Metadata:         models.JSONMap{},
	}
	if err := l.store.DB.WithContext(ctx).Create(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Errf(KindConflict, "a work order already exists for request %s", requestID)
		}
		return nil, l.storeErr(err, "failed to create work order")
	}

	go l.audit.Record("work_order_created", map[string]interface{}{
		"request_id": order.RequestID,
		"guest_id":   order.GuestID,
		"department": order.Department,
		"priority":   order.Priority,
	})

	return &order, nil
}

// GetRequestByID loads a guest request by its public id.
func (l *Lifecycle) GetRequestByID(ctx context.Context, requestID string) (*models.GuestRequest, error) {
	var req models.GuestRequest
	err := l.store.DB.WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error
	if err != nil {
		return nil, l.storeErr(err, "request "+requestID+" not found")
	}
	return &req, nil
}

// GetWorkOrderByID loads a work order by its public id.
func (l *Lifecycle) GetWorkOrderByID(ctx context.Context, requestID string) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := l.store.DB.WithContext(ctx).Where("request_id = ?", requestID).First(&order).Error
	if err != nil {
		return nil, l.storeErr(err, "work order "+requestID+" not found")
	}
	return &order, nil
}

// ListRequestsByGuest returns a guest's requests, newest first.
func (l *Lifecycle) ListRequestsByGuest(ctx context.Context, guestID string, skip, limit int) ([]models.GuestRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	var reqs []models.GuestRequest
	err := l.store.DB.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, l.storeErr(err, "failed to list requests")
	}
	return reqs, nil
}

// WorkOrderFilter narrows ListWorkOrders. Zero values mean no filter.
type WorkOrderFilter struct {
	Status     string
	Department string
	Priority   string
	Assignee   string
	Skip       int
	Limit      int
}

// ListWorkOrders returns work orders matching the filter, newest first.
func (l *Lifecycle) ListWorkOrders(ctx context.Context, f WorkOrderFilter) ([]models.WorkOrder, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Skip < 0 {
		f.Skip = 0
	}

	q := l.store.DB.WithContext(ctx).Model(&models.WorkOrder{})
	if f.Status != "" {
		if !models.ValidStatus(f.Status) {
			return nil, Errf(KindValidation, "unknown status %q", f.Status)
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.Department != "" {
		if !models.ValidDepartment(f.Department) {
			return nil, Errf(KindValidation, "unknown department %q", f.Department)
		}
		q = q.Where("department = ?", f.Department)
	}
	if f.Priority != "" {
		if !models.ValidPriority(f.Priority) {
			return nil, Errf(KindValidation, "unknown priority %q", f.Priority)
		}
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Assignee != "" {
		q = q.Where("staff_id = ?", f.Assignee)
	}

	var orders []models.WorkOrder
	err := q.Order("created_at DESC").Offset(f.Skip).Limit(f.Limit).Find(&orders).Error
	if err != nil {
		return nil, l.storeErr(err, "failed to list work orders")
	}
	return orders, nil
}

// UpdateRequestStatus transitions a guest request. The write is conditional
// on the status observed at read time, so two racing updates cannot both
// apply; the loser gets a conflict.
func (l *Lifecycle) UpdateRequestStatus(ctx context.Context, requestID, newStatus, actor string) (*models.GuestRequest, error) {
	if !models.ValidStatus(newStatus) {
		return nil, Errf(KindValidation, "unknown status %q", newStatus)
	}

	req, err := l.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// completed and cancelled are terminal; everything else moves freely
	if models.TerminalStatus(req.Status) {
		return nil, Errf(KindConflict, "request %s is already %s", requestID, req.Status)
	}

	res := l.store.DB.WithContext(ctx).Model(&models.GuestRequest{}).
		Where("request_id = ? AND status = ?", requestID, req.Status).
		Updates(map[string]interface{}{"status": newStatus, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, l.storeErr(res.Error, "failed to update request status")
	}
	if res.RowsAffected == 0 {
		return nil, Errf(KindConflict, "request %s was modified concurrently", requestID)
	}

	oldStatus := req.Status
	req.Status = newStatus
	req.UpdatedAt = time.Now()

	go l.audit.Record("request_status_changed", map[string]interface{}{
		"request_id": requestID,
		"old_status": oldStatus,
		"new_status": newStatus,
		"actor":      actor,
	})
	go l.notifier.Dispatch(NotificationPayload{
		Event:      "request_status_changed",
		RequestID:  requestID,
		GuestID:    req.GuestID,
		Type:       models.NotifyChat,
		Message:    "Your request is now " + newStatus + ".",
		Department: req.Department,
		Status:     newStatus,
	})

	return req, nil
}

// UpdateWorkOrderStatus transitions a work order, stamping the milestone
// timestamps on first entry into assigned, in_progress, and completed.
func (l *Lifecycle) UpdateWorkOrderStatus(ctx context.Context, requestID, newStatus, actor string) (*models.WorkOrder, error) {
	if !models.ValidStatus(newStatus) {
		return nil, Errf(KindValidation, "unknown status %q", newStatus)
	}

	order, err := l.GetWorkOrderByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if models.TerminalStatus(order.Status) {
		return nil, Errf(KindConflict, "work order %s is already %s", requestID, order.Status)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": newStatus, "updated_at": now}
	switch newStatus {
	case models.StatusAssigned:
		if order.AssignedAt == nil {
			updates["assigned_at"] = now
		}
	case models.StatusInProgress:
		if order.StartedAt == nil {
			updates["started_at"] = now
		}
	case models.StatusCompleted:
		if order.CompletedAt == nil {
			updates["completed_at"] = now
			if order.StartedAt != nil {
				minutes := int(now.Sub(*order.StartedAt).Minutes())
				if minutes < 1 {
					minutes = 1
				}
				updates["actual_minutes"] = minutes
			}
		}
	}

	res := l.store.DB.WithContext(ctx).Model(&models.WorkOrder{}).
		Where("request_id = ? AND status = ?", requestID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, l.storeErr(res.Error, "failed to update work order status")
	}
	if res.RowsAffected == 0 {
		return nil, Errf(KindConflict, "work order %s was modified concurrently", requestID)
	}

	oldStatus := order.Status
	order, err = l.GetWorkOrderByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	go l.audit.Record("work_order_status_changed", map[string]interface{}{
		"request_id": requestID,
		"old_status": oldStatus,
		"new_status": newStatus,
		"actor":      actor,
	})
	go l.notifier.Dispatch(NotificationPayload{
		Event:      "work_order_status_changed",
		RequestID:  requestID,
		GuestID:    order.GuestID,
		Type:       models.NotifyWorkOrder,
		Message:    "Work order " + requestID + " is now " + newStatus + ".",
		Priority:   order.Priority,
		Department: order.Department,
		Status:     newStatus,
	})

	return order, nil
}

// AssignWorkOrder sets the assignee and promotes a pending order to
// assigned. Reassignment of an already-assigned order keeps the original
// assigned_at stamp.
func (l *Lifecycle) AssignWorkOrder(ctx context.Context, requestID, staffID, actor string) (*models.WorkOrder, error) {
	if strings.TrimSpace(staffID) == "" {
		return nil, Errf(KindValidation, "staff_id is required")
	}

	order, err := l.GetWorkOrderByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if models.TerminalStatus(order.Status) {
		return nil, Errf(KindConflict, "work order %s is already %s", requestID, order.Status)
	}

	now := time.Now()
	updates := map[string]interface{}{"staff_id": staffID, "updated_at": now}
	if order.Status == models.StatusPending {
		updates["status"] = models.StatusAssigned
	}
	if order.AssignedAt == nil {
		updates["assigned_at"] = now
	}

	res := l.store.DB.WithContext(ctx).Model(&models.WorkOrder{}).
		Where("request_id = ? AND status = ?", requestID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, l.storeErr(res.Error, "failed to assign work order")
	}
	if res.RowsAffected == 0 {
		return nil, Errf(KindConflict, "work order %s was modified concurrently", requestID)
	}

	updated, err := l.GetWorkOrderByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	guestName, room := l.guestInfo(ctx, updated.GuestID)

	go l.audit.Record("work_order_assigned", map[string]interface{}{
		"request_id": requestID,
		"staff_id":   staffID,
		"actor":      actor,
	})
	go l.notifier.Dispatch(NotificationPayload{
		Event:      "work_order_assigned",
		RequestID:  requestID,
		GuestID:    updated.GuestID,
		Type:       models.NotifyWorkOrder,
		Message:    "Work order " + requestID + " has been assigned to you.",
		Priority:   updated.Priority,
		Department: updated.Department,
		Status:     updated.Status,
		GuestName:  guestName,
		Room:       room,
		Overdue:    order.Overdue(now),
	})

	return updated, nil
}

// SetWorkOrderEstimate sets the estimated duration in minutes.
func (l *Lifecycle) SetWorkOrderEstimate(ctx context.Context, requestID string, minutes int) (*models.WorkOrder, error) {
	if minutes <= 0 {
		return nil, Errf(KindValidation, "estimated_duration must be positive")
	}

	order, err := l.GetWorkOrderByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if models.TerminalStatus(order.Status) {
		return nil, Errf(KindConflict, "work order %s is already %s", requestID, order.Status)
	}

	now := time.Now()
	res := l.store.DB.WithContext(ctx).Model(&models.WorkOrder{}).
		Where("request_id = ?", requestID).
		Updates(map[string]interface{}{"estimated_minutes": minutes, "updated_at": now})
	if res.Error != nil {
		return nil, l.storeErr(res.Error, "failed to set estimate")
	}

	order.EstimatedMinutes = &minutes
	order.UpdatedAt = now

	guestName, room := l.guestInfo(ctx, order.GuestID)
	go l.notifier.Dispatch(NotificationPayload{
		Event:      "work_order_estimated",
		RequestID:  order.RequestID,
		GuestID:    order.GuestID,
		Type:       models.NotifyWorkOrder,
		Message:    fmt.Sprintf("Work order %s is estimated at %d minutes.", order.RequestID, minutes),
		Priority:   order.Priority,
		Department: order.Department,
		Status:     order.Status,
		GuestName:  guestName,
		Room:       room,
		Overdue:    order.Overdue(now),
	})

	return order, nil
}

// DeleteRequest removes a guest request.
func (l *Lifecycle) DeleteRequest(ctx context.Context, requestID, actor string) error {
	res := l.store.DB.WithContext(ctx).Where("request_id = ?", requestID).Delete(&models.GuestRequest{})
	if res.Error != nil {
		return l.storeErr(res.Error, "failed to delete request")
	}
	if res.RowsAffected == 0 {
		return Errf(KindNotFound, "request %s not found", requestID)
	}
	go l.audit.Record("request_deleted", map[string]interface{}{
		"request_id": requestID,
		"actor":      actor,
	})
	return nil
}

// DeleteWorkOrder removes a work order.
func (l *Lifecycle) DeleteWorkOrder(ctx context.Context, requestID, actor string) error {
	res := l.store.DB.WithContext(ctx).Where("request_id = ?", requestID).Delete(&models.WorkOrder{})
	if res.Error != nil {
		return l.storeErr(res.Error, "failed to delete work order")
	}
	if res.RowsAffected == 0 {
		return Errf(KindNotFound, "work order %s not found", requestID)
	}
	go l.audit.Record("work_order_deleted", map[string]interface{}{
		"request_id": requestID,
		"actor":      actor,
	})
	return nil
}

// DepartmentSummary aggregates work order counts per department.
type DepartmentSummary struct {
	Department string `json:"department"`
	Total      int64  `json:"total"`
	Pending    int64  `json:"pending"`
	InProgress int64  `json:"in_progress"`
	Completed  int64  `json:"completed"`
}

// DepartmentReport returns per-department work order counts. The CASE
// expressions keep the query portable across mysql and sqlite.
func (l *Lifecycle) DepartmentReport(ctx context.Context) ([]DepartmentSummary, error) {
	var rows []DepartmentSummary
	err := l.store.DB.WithContext(ctx).Model(&models.WorkOrder{}).
		Select(`department,
			COUNT(*) AS total,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END) AS in_progress,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed`).
		Group("department").
		Order("department").
		Scan(&rows).Error
	if err != nil {
		return nil, l.storeErr(err, "failed to build department report")
	}
	return rows, nil
}

// SweepOverdue dispatches reminder notifications for pending work orders
// past their estimate. Returns how many reminders were sent.
func (l *Lifecycle) SweepOverdue(ctx context.Context) (int, error) {
	var orders []models.WorkOrder
	err := l.store.DB.WithContext(ctx).
		Where("status = ? AND estimated_minutes IS NOT NULL", models.StatusPending).
		Find(&orders).Error
	if err != nil {
		return 0, l.storeErr(err, "failed to load pending work orders")
	}

	now := time.Now()
	count := 0
	for i := range orders {
		if !orders[i].Overdue(now) {
			continue
		}
		count++
		go l.notifier.Dispatch(NotificationPayload{
			Event:      "work_order_overdue",
			RequestID:  orders[i].RequestID,
			GuestID:    orders[i].GuestID,
			Type:       models.NotifyReminder,
			Message:    "Work order " + orders[i].RequestID + " is overdue.",
			Priority:   models.PriorityHigh,
			Department: orders[i].Department,
			Status:     orders[i].Status,
			Overdue:    true,
		})
	}
	if count > 0 {
		utils.Log.Info().Int("count", count).Msg("dispatched overdue reminders")
	}
	return count, nil
}

// guestInfo resolves a guest's display name and room for enriched staff
// notifications. Missing profiles yield empty values.
func (l *Lifecycle) guestInfo(ctx context.Context, guestID string) (string, string) {
	var guest models.Guest
	err := l.store.DB.WithContext(ctx).Where("guest_id = ?", guestID).First(&guest).Error
	if err != nil {
		return "", ""
	}
	return guest.Name, guest.Room
}

// storeErr translates database failures into typed errors.
func (l *Lifecycle) storeErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Errf(KindNotFound, "%s", msg)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Wrap(KindConflict, err, msg)
	}
	if database.ConnectionError(err) {
		return Wrap(KindUnavailable, err, "datastore unavailable")
	}
	return Wrap(KindInternal, err, msg)
}
