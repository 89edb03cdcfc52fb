package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/itsivali/virtual-butler/models"
)

func TestSessionStore_EmptyContextForNewGuest(t *testing.T) {
	s := NewSessionStore(nil)

	sc, err := s.Get(context.Background(), "guest-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if sc.GuestID != "guest-1" {
		t.Fatalf("unexpected guest id: %s", sc.GuestID)
	}
	if len(sc.History) != 0 {
		t.Fatalf("new context must have empty history, got %d turns", len(sc.History))
	}
}

func TestSessionStore_AppendTwoTurnsInOrder(t *testing.T) {
	s := NewSessionStore(nil)
	ctx := context.Background()

	if _, err := s.AppendTurn(ctx, "guest-1", "need towels", models.DeptHousekeeping); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	sc, err := s.AppendTurn(ctx, "guest-1", "wifi not working", models.DeptIT)
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	if len(sc.History) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(sc.History))
	}
	if sc.History[0].Message != "need towels" || sc.History[1].Message != "wifi not working" {
		t.Fatalf("turns out of order: %+v", sc.History)
	}
	if sc.LastDepartment != models.DeptIT {
		t.Fatalf("last_department must reflect the newest turn, got %s", sc.LastDepartment)
	}

	// read back through Get
	got, err := s.Get(ctx, "guest-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.History) != 2 || got.LastDepartment != models.DeptIT {
		t.Fatalf("persisted context mismatch: %+v", got)
	}
}

func TestSessionStore_HistoryCap(t *testing.T) {
	s := NewSessionStore(nil)
	ctx := context.Background()

	for i := 0; i < maxHistoryTurns+10; i++ {
		if _, err := s.AppendTurn(ctx, "guest-1", fmt.Sprintf("turn %d", i), models.DeptFrontDesk); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	sc, err := s.Get(ctx, "guest-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(sc.History) != maxHistoryTurns {
		t.Fatalf("history must be capped at %d, got %d", maxHistoryTurns, len(sc.History))
	}
	if sc.History[0].Message != "turn 10" {
		t.Fatalf("oldest turns must be dropped, first is %q", sc.History[0].Message)
	}
	if sc.History[len(sc.History)-1].Message != fmt.Sprintf("turn %d", maxHistoryTurns+9) {
		t.Fatalf("newest turn missing, last is %q", sc.History[len(sc.History)-1].Message)
	}
}

func TestSessionStore_GuestsIsolated(t *testing.T) {
	s := NewSessionStore(nil)
	ctx := context.Background()

	if _, err := s.AppendTurn(ctx, "guest-1", "need towels", models.DeptHousekeeping); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	sc, err := s.Get(ctx, "guest-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(sc.History) != 0 {
		t.Fatalf("guest-2 must not see guest-1's turns, got %d", len(sc.History))
	}
}
