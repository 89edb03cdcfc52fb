package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/utils"
)

// notificationExpiry is how long an in-app notification stays visible.
const notificationExpiry = 72 * time.Hour

// NotificationPayload is the channel-agnostic body handed to the delivery
// webhook and persisted as an in-app notification.
type NotificationPayload struct {
	Event      string `json:"event"`
	RequestID  string `json:"request_id,omitempty"`
	GuestID    string `json:"guest_id"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Priority   string `json:"priority"`
	Department string `json:"department,omitempty"`
	Status     string `json:"status,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	Room       string `json:"room,omitempty"`
	Overdue    bool   `json:"overdue,omitempty"`
}

// Notifier constructs notifications on lifecycle events and hands them to
// the delivery channel. Everything here is best-effort: callers fire it in a
// goroutine after their own mutation has succeeded, and no failure in this
// component ever propagates back to them. Delivery retries, if any, belong
// to the channel on the other side of the webhook.
type Notifier struct {
	store      *database.Store
	audit      *Auditor
	webhookURL string
	client     *http.Client
}

func NewNotifier(store *database.Store, audit *Auditor) *Notifier {
	return &Notifier{
		store:      store,
		audit:      audit,
		webhookURL: strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Dispatch persists the in-app notification, posts the payload to the
// configured webhook, and records the attempt in the audit log regardless of
// the delivery outcome.
func (n *Notifier) Dispatch(payload NotificationPayload) {
	if payload.Priority == "" {
		payload.Priority = models.PriorityMedium
	}
	if !models.ValidNotificationType(payload.Type) {
		payload.Type = models.NotifySystem
	}

	now := time.Now()
	notif := models.Notification{
		NotificationID: utils.GenerateNotificationID(),
		RequestID:      payload.RequestID,
		GuestID:        payload.GuestID,
		Type:           payload.Type,
		Message:        payload.Message,
		Expiry:         now.Add(notificationExpiry),
		Priority:       payload.Priority,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := n.store.DB.Create(&notif).Error; err != nil {
		utils.Log.Error().Err(err).
			Str("event", payload.Event).
			Str("request_id", payload.RequestID).
			Msg("failed to persist notification")
	}

	delivered := n.deliver(payload)

	n.audit.Record("notification_dispatched", map[string]interface{}{
		"event":           payload.Event,
		"notification_id": notif.NotificationID,
		"request_id":      payload.RequestID,
		"guest_id":        payload.GuestID,
		"type":            payload.Type,
		"delivered":       delivered,
	})
}

// deliver posts the payload to the webhook. Returns false on any failure;
// failures are logged only.
func (n *Notifier) deliver(payload NotificationPayload) bool {
	if n.webhookURL == "" {
		return false
	}

	body, err := json.Marshal(payload)
	if err != nil {
		utils.Log.Error().Err(err).Str("event", payload.Event).Msg("failed to encode notification payload")
		return false
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		utils.Log.Warn().Err(err).
			Str("event", payload.Event).
			Str("request_id", payload.RequestID).
			Msg("notification delivery failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		utils.Log.Warn().Int("status", resp.StatusCode).
			Str("event", payload.Event).
			Str("request_id", payload.RequestID).
			Msg("notification delivery rejected")
		return false
	}
	return true
}
