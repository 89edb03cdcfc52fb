package controllers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/itsivali/virtual-butler/middleware"
	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

// ChatController handles guest request intake and retrieval.
type ChatController struct {
	lifecycle *services.Lifecycle
}

func NewChatController(lifecycle *services.Lifecycle) *ChatController {
	return &ChatController{lifecycle: lifecycle}
}

type createChatRequest struct {
	Text            string   `json:"text" validate:"maxmsg"`
	QuickReply      string   `json:"quick_reply,omitempty"`
	VoiceTranscript string   `json:"voice_transcript,omitempty"`
	Department      string   `json:"department,omitempty"`
	SessionID       string   `json:"session_id,omitempty"`
	Images          []string `json:"images,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// Create accepts a new guest request. The guest identity comes from the
// token, never from the body.
func (c *ChatController) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := utils.ClaimsFromRequest(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var body createChatRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	req, err := c.lifecycle.CreateGuestRequest(r.Context(), services.CreateRequestInput{
		GuestID:         claims.Subject,
		Text:            body.Text,
		QuickReply:      body.QuickReply,
		VoiceTranscript: body.VoiceTranscript,
		Department:      body.Department,
		SessionID:       body.SessionID,
		Images:          body.Images,
		Tags:            body.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Request created",
		Data:    map[string]interface{}{"request": req},
	})
}

// Get returns one request. Guests can only read their own.
func (c *ChatController) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	requestID := mux.Vars(r)["request_id"]

	req, err := c.lifecycle.GetRequestByID(r.Context(), requestID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if claims != nil && claims.Role == models.RoleGuest && req.GuestID != claims.Subject {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Access denied"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"request": req},
	})
}

// List returns the caller's requests. Staff can list any guest's via the
// guest_id query parameter.
func (c *ChatController) List(w http.ResponseWriter, r *http.Request) {
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
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reqs, err := c.lifecycle.ListRequestsByGuest(r.Context(), guestID, skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"requests": reqs, "count": len(reqs)},
	})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus transitions a request through its lifecycle.
func (c *ChatController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	requestID := mux.Vars(r)["request_id"]

	var body updateStatusRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	actor := ""
	if claims != nil {
		actor = claims.Subject
	}
	req, err := c.lifecycle.UpdateRequestStatus(r.Context(), requestID, body.Status, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Status updated",
		Data:    map[string]interface{}{"request": req},
	})
}

// Delete removes a request. Admin only; enforced in routing.
func (c *ChatController) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := utils.ClaimsFromRequest(r)
	requestID := mux.Vars(r)["request_id"]

	actor := ""
	if claims != nil {
		actor = claims.Subject
	}
	if err := c.lifecycle.DeleteRequest(r.Context(), requestID, actor); err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Request deleted"})
}
