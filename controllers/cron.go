package controllers

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

// CronController exposes scheduled jobs to an external scheduler. Requests
// must carry the shared X-CRON-KEY header.
type CronController struct {
	lifecycle *services.Lifecycle
}

func NewCronController(lifecycle *services.Lifecycle) *CronController {
	return &CronController{lifecycle: lifecycle}
}

func cronAuthorized(r *http.Request) bool {
	key := os.Getenv("CRON_KEY")
	if key == "" {
		return false
	}
	given := r.Header.Get("X-CRON-KEY")
	return subtle.ConstantTimeCompare([]byte(key), []byte(given)) == 1
}

// OverdueReminders sweeps pending work orders past their estimate and
// dispatches reminder notifications.
func (c *CronController) OverdueReminders(w http.ResponseWriter, r *http.Request) {
	if !cronAuthorized(r) {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	count, err := c.lifecycle.SweepOverdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Sweep completed",
		Data:    map[string]interface{}{"reminders_sent": count},
	})
}
