package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/utils"
)

// HealthController serves liveness and readiness probes.
type HealthController struct {
	store *database.Store
}

func NewHealthController(store *database.Store) *HealthController {
	return &HealthController{store: store}
}

// Health is the liveness probe: answers as long as the process is up.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "healthy",
		Data: map[string]interface{}{
			"service":   "virtual-butler",
			"timestamp": time.Now().Unix(),
		},
	})
}

// Ready is the readiness probe: verifies the backing stores answer.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := c.store.Ready(ctx); err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "not ready"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "ready"})
}
