package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/middleware"
	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

// NotificationController serves the in-app notification feed.
type NotificationController struct {
	store    *database.Store
	notifier *services.Notifier
}

func NewNotificationController(store *database.Store, notifier *services.Notifier) *NotificationController {
	return &NotificationController{store: store, notifier: notifier}
}

type createNotificationRequest struct {
	GuestID   string `json:"guest_id" validate:"required"`
	RequestID string `json:"request_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message" validate:"required,maxmsg"`
	Priority  string `json:"priority,omitempty"`
}

// Create dispatches a manual notification. Staff/admin only.
func (c *NotificationController) Create(w http.ResponseWriter, r *http.Request) {
	var body createNotificationRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	go c.notifier.Dispatch(services.NotificationPayload{
		Event:     "manual_notification",
		RequestID: body.RequestID,
		GuestID:   body.GuestID,
		Type:      body.Type,
		Message:   body.Message,
		Priority:  body.Priority,
	})

	utils.WriteJSON(w, http.StatusAccepted, utils.APIResponse{Success: true, Message: "Notification queued"})
}

// List returns the caller's unexpired notifications, newest first.
func (c *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := utils.ClaimsFromRequest(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	guestID := claims.Subject
	if claims.Role != models.RoleGuest {
		if q := r.URL.Query().Get("guest_id"); q != "" {
			guestID = q
		}
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := c.store.DB.WithContext(r.Context()).
		Where("guest_id = ? AND expiry > ?", guestID, time.Now())
	if r.URL.Query().Get("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifs []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&notifs).Error; err != nil {
		writeError(w, r, services.Wrap(services.KindInternal, err, "failed to list notifications"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"notifications": notifs, "count": len(notifs)},
	})
}

// Get returns a single notification owned by the caller.
func (c *NotificationController) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	id := mux.Vars(r)["notification_id"]

	var notif models.Notification
	err := c.store.DB.WithContext(r.Context()).Where("notification_id = ?", id).First(&notif).Error
	if err != nil {
		writeError(w, r, services.Errf(services.KindNotFound, "notification %s not found", id))
		return
	}
	if claims != nil && claims.Role == models.RoleGuest && notif.GuestID != claims.Subject {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Access denied"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"notification": notif},
	})
}

// MarkRead flips the read flag. The flag is monotonic: marking an already
// read notification keeps the original read_at stamp.
func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	id := mux.Vars(r)["notification_id"]

	var notif models.Notification
	err := c.store.DB.WithContext(r.Context()).Where("notification_id = ?", id).First(&notif).Error
	if err != nil {
		writeError(w, r, services.Errf(services.KindNotFound, "notification %s not found", id))
		return
	}
	if claims != nil && claims.Role == models.RoleGuest && notif.GuestID != claims.Subject {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Access denied"})
		return
	}

	if !notif.Read {
		now := time.Now()
		res := c.store.DB.WithContext(r.Context()).Model(&models.Notification{}).
			Where("notification_id = ? AND is_read = ?", id, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": now, "updated_at": now})
		if res.Error != nil {
			writeError(w, r, services.Wrap(services.KindInternal, res.Error, "failed to mark notification read"))
			return
		}
		if res.RowsAffected > 0 {
			notif.Read = true
			notif.ReadAt = &now
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Notification marked read",
		Data:    map[string]interface{}{"notification": notif},
	})
}

// Delete removes a notification. Admin only; enforced in routing.
func (c *NotificationController) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["notification_id"]
	res := c.store.DB.WithContext(r.Context()).Where("notification_id = ?", id).Delete(&models.Notification{})
	if res.Error != nil {
		writeError(w, r, services.Wrap(services.KindInternal, res.Error, "failed to delete notification"))
		return
	}
	if res.RowsAffected == 0 {
		writeError(w, r, services.Errf(services.KindNotFound, "notification %s not found", id))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Notification deleted"})
}
