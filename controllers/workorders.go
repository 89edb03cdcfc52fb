package controllers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/itsivali/virtual-butler/middleware"
	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

// WorkOrderController handles the staff-facing ticket surface.
type WorkOrderController struct {
	lifecycle *services.Lifecycle
}

func NewWorkOrderController(lifecycle *services.Lifecycle) *WorkOrderController {
	return &WorkOrderController{lifecycle: lifecycle}
}

type createWorkOrderRequest struct {
	GuestID          string   `json:"guest_id,omitempty"`
	Description      string   `json:"description" validate:"required"`
	Department       string   `json:"department,omitempty"`
	Priority         string   `json:"priority,omitempty"`
	RequestRef       string   `json:"request_ref,omitempty"`
	EstimatedMinutes *int     `json:"estimated_duration,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Notes            []string `json:"notes,omitempty"`
}

// Create opens a new work order.
func (c *WorkOrderController) Create(w http.ResponseWriter, r *http.Request) {
	var body createWorkOrderRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	order, err := c.lifecycle.CreateWorkOrder(r.Context(), services.CreateWorkOrderInput{
		GuestID:          body.GuestID,
		Description:      body.Description,
		Department:       body.Department,
		Priority:         body.Priority,
		RequestRef:       body.RequestRef,
		EstimatedMinutes: body.EstimatedMinutes,
		Tags:             body.Tags,
		Notes:            body.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Work order created",
		Data:    map[string]interface{}{"work_order": order},
	})
}

// Get returns a single work order.
func (c *WorkOrderController) Get(w http.ResponseWriter, r *http.Request) {
	order, err := c.lifecycle.GetWorkOrderByID(r.Context(), mux.Vars(r)["request_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"work_order": order},
	})
}

// List returns work orders matching the query filters.
func (c *WorkOrderController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	orders, err := c.lifecycle.ListWorkOrders(r.Context(), services.WorkOrderFilter{
		Status:     q.Get("status"),
		Department: q.Get("department"),
		Priority:   q.Get("priority"),
		Assignee:   q.Get("assignee"),
		Skip:       skip,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"work_orders": orders, "count": len(orders)},
	})
}

// UpdateStatus transitions a work order through its lifecycle.
func (c *WorkOrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	var body updateStatusRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	actor := ""
	if claims != nil {
		actor = claims.Subject
	}
	order, err := c.lifecycle.UpdateWorkOrderStatus(r.Context(), mux.Vars(r)["request_id"], body.Status, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Status updated",
		Data:    map[string]interface{}{"work_order": order},
	})
}

type assignRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
}

// Assign sets the work order's assignee.
func (c *WorkOrderController) Assign(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	var body assignRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	actor := ""
	if claims != nil {
		actor = claims.Subject
	}
	order, err := c.lifecycle.AssignWorkOrder(r.Context(), mux.Vars(r)["request_id"], body.StaffID, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Work order assigned",
		Data:    map[string]interface{}{"work_order": order},
	})
}

type estimateRequest struct {
	EstimatedMinutes int `json:"estimated_duration"`
}

// SetEstimate sets the expected duration in minutes.
func (c *WorkOrderController) SetEstimate(w http.ResponseWriter, r *http.Request) {
	var body estimateRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	order, err := c.lifecycle.SetWorkOrderEstimate(r.Context(), mux.Vars(r)["request_id"], body.EstimatedMinutes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Estimate updated",
		Data:    map[string]interface{}{"work_order": order},
	})
}

// Delete removes a work order. Admin only; enforced in routing.
func (c *WorkOrderController) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	actor := ""
	if claims != nil {
		actor = claims.Subject
	}
	if err := c.lifecycle.DeleteWorkOrder(r.Context(), mux.Vars(r)["request_id"], actor); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Work order deleted"})
}
