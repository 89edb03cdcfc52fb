package services

import (
	"testing"

	"github.com/itsivali/virtual-butler/models"
)

func TestAnonymize_MasksSensitiveKeys(t *testing.T) {
	data := map[string]interface{}{
		"guest_id":     "guest-1",
		"pin":          "4321",
		"room_pin":     "9876",
		"access_token": "eyJhbGciOi...",
		"message":      "need towels",
	}

	masked := Anonymize(data)

	if masked["pin"] != redactedMask {
		t.Fatalf("pin not masked: %v", masked["pin"])
	}
	if masked["room_pin"] != redactedMask {
		t.Fatalf("room_pin not masked: %v", masked["room_pin"])
	}
	if masked["access_token"] != redactedMask {
		t.Fatalf("access_token not masked: %v", masked["access_token"])
	}
	if masked["guest_id"] != "guest-1" || masked["message"] != "need towels" {
		t.Fatalf("non-sensitive keys must pass through: %v", masked)
	}
}

func TestAnonymize_CaseSensitive(t *testing.T) {
	masked := Anonymize(map[string]interface{}{"PIN": "4321"})
	if masked["PIN"] != "4321" {
		t.Fatalf("uppercase PIN should pass through unmasked, got %v", masked["PIN"])
	}
}

func TestAnonymize_DoesNotMutateInput(t *testing.T) {
	data := map[string]interface{}{"pin": "4321"}
	_ = Anonymize(data)
	if data["pin"] != "4321" {
		t.Fatal("input map must not be mutated")
	}
}

func TestRecord_PersistsMaskedEntry(t *testing.T) {
	store := newTestStore(t)
	audit := NewAuditor(store)

	audit.Record("guest_login_failed", map[string]interface{}{
		"guest_id": "guest-1",
		"pin":      "4321",
	})

	var entries []models.AuditLogEntry
	if err := store.DB.Find(&entries).Error; err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Event != "guest_login_failed" {
		t.Fatalf("unexpected event: %s", entries[0].Event)
	}
	if entries[0].Data["pin"] != redactedMask {
		t.Fatalf("pin must be masked at rest, got %v", entries[0].Data["pin"])
	}
	if entries[0].Data["guest_id"] != "guest-1" {
		t.Fatalf("guest_id must survive masking, got %v", entries[0].Data["guest_id"])
	}
}
