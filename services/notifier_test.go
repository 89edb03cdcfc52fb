package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/itsivali/virtual-butler/models"
)

func TestDispatch_PersistsAndDelivers(t *testing.T) {
	received := make(chan NotificationPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p NotificationPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("bad webhook payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	os.Setenv("NOTIFY_WEBHOOK_URL", srv.URL)
	defer os.Unsetenv("NOTIFY_WEBHOOK_URL")

	store := newTestStore(t)
	n := NewNotifier(store, NewAuditor(store))

	n.Dispatch(NotificationPayload{
		Event:     "work_order_assigned",
		RequestID: "req_1",
		GuestID:   "guest-1",
		Type:      models.NotifyWorkOrder,
		Message:   "assigned to you",
		Priority:  models.PriorityHigh,
	})

	p := <-received
	if p.RequestID != "req_1" || p.Message != "assigned to you" {
		t.Fatalf("unexpected payload: %+v", p)
	}

	var notifs []models.Notification
	if err := store.DB.Find(&notifs).Error; err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", len(notifs))
	}
	if notifs[0].NotificationID == "" || notifs[0].Type != models.NotifyWorkOrder {
		t.Fatalf("unexpected stored notification: %+v", notifs[0])
	}
	if notifs[0].Read {
		t.Fatal("new notifications must start unread")
	}
}

func TestDispatch_WebhookFailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	os.Setenv("NOTIFY_WEBHOOK_URL", srv.URL)
	defer os.Unsetenv("NOTIFY_WEBHOOK_URL")

	store := newTestStore(t)
	n := NewNotifier(store, NewAuditor(store))

	n.Dispatch(NotificationPayload{
		Event:   "request_created",
		GuestID: "guest-1",
		Type:    models.NotifyChat,
		Message: "received",
	})

	// notification still persisted despite delivery failure
	var count int64
	store.DB.Model(&models.Notification{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stored notification, got %d", count)
	}
}

func TestDispatch_NoWebhookConfigured(t *testing.T) {
	os.Unsetenv("NOTIFY_WEBHOOK_URL")

	store := newTestStore(t)
	n := NewNotifier(store, NewAuditor(store))

	n.Dispatch(NotificationPayload{
		Event:   "request_created",
		GuestID: "guest-1",
		Type:    models.NotifyChat,
		Message: "received",
	})

	var count int64
	store.DB.Model(&models.Notification{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stored notification, got %d", count)
	}
}

func TestDispatch_DefaultsTypeAndPriority(t *testing.T) {
	os.Unsetenv("NOTIFY_WEBHOOK_URL")

	store := newTestStore(t)
	n := NewNotifier(store, NewAuditor(store))

	n.Dispatch(NotificationPayload{
		Event:   "custom_event",
		GuestID: "guest-1",
		Type:    "nonsense",
		Message: "hello",
	})

	var notif models.Notification
	if err := store.DB.First(&notif).Error; err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if notif.Type != models.NotifySystem {
		t.Fatalf("unknown type must default to system, got %s", notif.Type)
	}
	if notif.Priority != models.PriorityMedium {
		t.Fatalf("priority must default to medium, got %s", notif.Priority)
	}
}
