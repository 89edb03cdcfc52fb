package auth

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/middleware"
	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

// Controller issues bearer tokens for guests and staff.
type Controller struct {
	store *database.Store
	audit *services.Auditor
}

func NewController(store *database.Store, audit *services.Auditor) *Controller {
	return &Controller{store: store, audit: audit}
}

func tokenExpiry() time.Duration {
	hours := 24
	if s := os.Getenv("JWT_EXPIRY_HOURS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			hours = v
		}
	}
	return time.Duration(hours) * time.Hour
}

type guestLoginRequest struct {
	GuestID string `json:"guest_id" validate:"required"`
	Room    string `json:"room" validate:"required,roomok"`
	Pin     string `json:"pin" validate:"required,pinmin"`
}

// GuestLogin verifies guest_id + room + PIN and issues a guest token. The
// response never distinguishes which of the three was wrong.
func (c *Controller) GuestLogin(w http.ResponseWriter, r *http.Request) {
	var body guestLoginRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	invalid := func() {
		c.audit.Record("guest_login_failed", map[string]interface{}{
			"guest_id": body.GuestID,
			"pin":      body.Pin,
		})
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid credentials"})
	}

	var guest models.Guest
	err := c.store.DB.WithContext(r.Context()).Where("guest_id = ?", body.GuestID).First(&guest).Error
	if err != nil || !guest.IsActive || guest.Room != body.Room {
		invalid()
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(guest.PinHash), []byte(body.Pin)) != nil {
		invalid()
		return
	}

	token, err := utils.GenerateToken(guest.GuestID, models.RoleGuest, guest.Room, tokenExpiry())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Internal server error"})
		return
	}

	c.audit.Record("guest_login", map[string]interface{}{"guest_id": guest.GuestID})
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"token": token,
			"guest": guest,
		},
	})
}

type staffLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// StaffLogin verifies username + password and issues a staff or admin token.
func (c *Controller) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var body staffLoginRequest
	if err := middleware.ValidateJSON(w, r, &body); err != nil {
		return
	}

	invalid := func() {
		c.audit.Record("staff_login_failed", map[string]interface{}{"username": body.Username})
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid credentials"})
	}

	var staff models.StaffUser
	err := c.store.DB.WithContext(r.Context()).Where("username = ?", body.Username).First(&staff).Error
	if err != nil || !staff.IsActive {
		invalid()
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(body.Password)) != nil {
		invalid()
		return
	}

	token, err := utils.GenerateToken(staff.Username, staff.Role, "", tokenExpiry())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Internal server error"})
		return
	}

	c.audit.Record("staff_login", map[string]interface{}{"username": staff.Username, "role": staff.Role})
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"token": token,
			"user":  staff,
		},
	})
}
