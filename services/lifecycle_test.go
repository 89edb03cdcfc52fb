package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/intent"
	"github.com/itsivali/virtual-butler/models"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	store, err := database.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return store
}

func newTestLifecycle(t *testing.T) (*Lifecycle, *database.Store) {
	t.Helper()
	store := newTestStore(t)
	audit := NewAuditor(store)
	notifier := NewNotifier(store, audit)
	sessions := NewSessionStore(nil)
	classifier := intent.NewClassifier(intent.NewOracleClient())
	return NewLifecycle(store, classifier, sessions, notifier, audit), store
}

func TestCreateGuestRequest_RoutesAndPersists(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	req, err := lc.CreateGuestRequest(ctx, CreateRequestInput{
		GuestID: "guest-1",
		Text:    "wifi not working",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if req.Department != models.DeptIT {
		t.Fatalf("expected department it, got %s", req.Department)
	}
	if req.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.RequestID == "" {
		t.Fatal("request id must be set")
	}

	loaded, err := lc.GetRequestByID(ctx, req.RequestID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if loaded.Message != "wifi not working" {
		t.Fatalf("unexpected message: %q", loaded.Message)
	}
}

func TestCreateGuestRequest_EmptyMessageRejected(t *testing.T) {
	lc, store := newTestLifecycle(t)
	ctx := context.Background()

	_, err := lc.CreateGuestRequest(ctx, CreateRequestInput{GuestID: "guest-1", Text: "   "})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation kind, got %v", KindOf(err))
	}

	var count int64
	store.DB.Model(&models.GuestRequest{}).Count(&count)
	if count != 0 {
		t.Fatalf("nothing should be persisted, found %d rows", count)
	}
}

func TestCreateGuestRequest_ExplicitDepartmentSkipsClassifier(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	req, err := lc.CreateGuestRequest(context.Background(), CreateRequestInput{
		GuestID:    "guest-1",
		Text:       "wifi not working",
		Department: models.DeptConcierge,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if req.Department != models.DeptConcierge {
		t.Fatalf("explicit department must win, got %s", req.Department)
	}
}

func TestCreateGuestRequest_UniqueIDs(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		req, err := lc.CreateGuestRequest(ctx, CreateRequestInput{GuestID: "guest-1", Text: "need towels"})
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if seen[req.RequestID] {
			t.Fatalf("duplicate request id %s", req.RequestID)
		}
		seen[req.RequestID] = true
	}
}

func TestWorkOrderLifecycle_FullScenario(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	req, err := lc.CreateGuestRequest(ctx, CreateRequestInput{GuestID: "guest-7", Text: "the AC is broken"})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	if req.Department != models.DeptMaintenance {
		t.Fatalf("expected maintenance, got %s", req.Department)
	}

	order, err := lc.CreateWorkOrder(ctx, CreateWorkOrderInput{
		Description: "AC repair in room 412",
		RequestRef:  req.RequestID,
		Priority:    models.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("create work order failed: %v", err)
	}
	if order.RequestID != req.RequestID {
		t.Fatalf("work order must inherit the request id, got %s", order.RequestID)
	}
	if order.GuestID != "guest-7" || order.Department != models.DeptMaintenance {
		t.Fatalf("work order must inherit guest and department: %+v", order)
	}

	order, err = lc.AssignWorkOrder(ctx, order.RequestID, "staff-3", "staff-3")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if order.Status != models.StatusAssigned {
		t.Fatalf("expected assigned, got %s", order.Status)
	}
	if order.StaffID == nil || *order.StaffID != "staff-3" {
		t.Fatalf("assignee not set: %+v", order.StaffID)
	}
	if order.AssignedAt == nil {
		t.Fatal("assigned_at must be stamped")
	}

	order, err = lc.UpdateWorkOrderStatus(ctx, order.RequestID, models.StatusInProgress, "staff-3")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if order.StartedAt == nil {
		t.Fatal("started_at must be stamped")
	}

	order, err = lc.UpdateWorkOrderStatus(ctx, order.RequestID, models.StatusCompleted, "staff-3")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if order.CompletedAt == nil {
		t.Fatal("completed_at must be stamped")
	}
	if order.ActualMinutes == nil || *order.ActualMinutes < 1 {
		t.Fatalf("actual duration must be recorded, got %v", order.ActualMinutes)
	}

	// terminal state: any further transition conflicts
	_, err = lc.UpdateWorkOrderStatus(ctx, order.RequestID, models.StatusInProgress, "staff-3")
	if err == nil {
		t.Fatal("expected conflict on completed order")
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind, got %v", KindOf(err))
	}
}

func TestUpdateRequestStatus_AssignedThenCompletedThenConflict(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	req, err := lc.CreateGuestRequest(ctx, CreateRequestInput{GuestID: "g1", Text: "wifi not working"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if req.Department != models.DeptIT || req.Status != models.StatusPending {
		t.Fatalf("unexpected initial state: %s/%s", req.Department, req.Status)
	}
	createdUpdatedAt := req.UpdatedAt

	req, err = lc.UpdateRequestStatus(ctx, req.RequestID, models.StatusAssigned, "staff-1")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if req.Status != models.StatusAssigned {
		t.Fatalf("expected assigned, got %s", req.Status)
	}
	if !req.UpdatedAt.After(createdUpdatedAt) {
		t.Fatal("updated_at must advance on transition")
	}

	// non-terminal transitions are unconditional
	if _, err := lc.UpdateRequestStatus(ctx, req.RequestID, models.StatusCompleted, "staff-1"); err != nil {
		t.Fatalf("complete from assigned failed: %v", err)
	}

	_, err = lc.UpdateRequestStatus(ctx, req.RequestID, models.StatusInProgress, "staff-1")
	if err == nil || KindOf(err) != KindConflict {
		t.Fatalf("expected conflict on completed request, got %v", err)
	}

	// entity unchanged by the rejected call
	loaded, err := lc.GetRequestByID(ctx, req.RequestID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if loaded.Status != models.StatusCompleted {
		t.Fatalf("rejected transition must leave the entity unchanged, got %s", loaded.Status)
	}
}

func TestUpdateRequestStatus_TerminalConflict(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	req, err := lc.CreateGuestRequest(ctx, CreateRequestInput{GuestID: "guest-1", Text: "need towels"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := lc.UpdateRequestStatus(ctx, req.RequestID, models.StatusCancelled, "guest-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err = lc.UpdateRequestStatus(ctx, req.RequestID, models.StatusAssigned, "staff-1")
	if err == nil || KindOf(err) != KindConflict {
		t.Fatalf("expected conflict on cancelled request, got %v", err)
	}
}

func TestGetWorkOrder_NotFound(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	_, err := lc.GetWorkOrderByID(context.Background(), "req_does_not_exist")
	if err == nil || KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateWorkOrder_MissingRequestRef(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	_, err := lc.CreateWorkOrder(context.Background(), CreateWorkOrderInput{
		Description: "follow up",
		RequestRef:  "req_missing",
	})
	if err == nil || KindOf(err) != KindNotFound {
		t.Fatalf("expected not found for dangling request ref, got %v", err)
	}
}

func TestCreateWorkOrder_DuplicateRequestRef(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	req, err := lc.CreateGuestRequest(ctx, CreateRequestInput{
		GuestID: "guest-1",
		Text:    "the AC is broken",
	})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}

	if _, err := lc.CreateWorkOrder(ctx, CreateWorkOrderInput{
		Description: "inspect the AC",
		RequestRef:  req.RequestID,
	}); err != nil {
		t.Fatalf("first work order failed: %v", err)
	}

	_, err = lc.CreateWorkOrder(ctx, CreateWorkOrderInput{
		Description: "inspect the AC again",
		RequestRef:  req.RequestID,
	})
	if err == nil || KindOf(err) != KindConflict {
		t.Fatalf("expected conflict for second work order on one request, got %v", err)
	}
}

func TestListWorkOrders_Filters(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := lc.CreateWorkOrder(ctx, CreateWorkOrderInput{
			GuestID:     "guest-1",
			Description: "ticket",
			Department:  models.DeptHousekeeping,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if _, err := lc.CreateWorkOrder(ctx, CreateWorkOrderInput{
		GuestID:     "guest-2",
		Description: "other ticket",
		Department:  models.DeptIT,
		Priority:    models.PriorityUrgent,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := lc.ListWorkOrders(ctx, WorkOrderFilter{Department: models.DeptHousekeeping})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 housekeeping orders, got %d", len(orders))
	}

	orders, err = lc.ListWorkOrders(ctx, WorkOrderFilter{Priority: models.PriorityUrgent})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 urgent order, got %d", len(orders))
	}

	if _, err := lc.ListWorkOrders(ctx, WorkOrderFilter{Status: "bogus"}); err == nil || KindOf(err) != KindValidation {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
}

func TestDepartmentReport(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	o1, _ := lc.CreateWorkOrder(ctx, CreateWorkOrderInput{GuestID: "g", Description: "a", Department: models.DeptIT})
	if _, err := lc.CreateWorkOrder(ctx, CreateWorkOrderInput{GuestID: "g", Description: "b", Department: models.DeptIT}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := lc.AssignWorkOrder(ctx, o1.RequestID, "staff-1", "staff-1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if _, err := lc.UpdateWorkOrderStatus(ctx, o1.RequestID, models.StatusInProgress, "staff-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	rows, err := lc.DepartmentReport(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	var it *DepartmentSummary
	for i := range rows {
		if rows[i].Department == models.DeptIT {
			it = &rows[i]
		}
	}
	if it == nil {
		t.Fatal("it department missing from report")
	}
	if it.Total != 2 || it.Pending != 1 || it.InProgress != 1 {
		t.Fatalf("unexpected counts: %+v", it)
	}
}

func TestDeleteRequest(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	ctx := context.Background()

	req, _ := lc.CreateGuestRequest(ctx, CreateRequestInput{GuestID: "guest-1", Text: "need towels"})
	if err := lc.DeleteRequest(ctx, req.RequestID, "admin"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := lc.DeleteRequest(ctx, req.RequestID, "admin"); err == nil || KindOf(err) != KindNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
