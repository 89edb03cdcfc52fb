package controllers

import (
	"net/http"

	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

// ReportController serves operational aggregates for staff dashboards.
type ReportController struct {
	lifecycle *services.Lifecycle
}

func NewReportController(lifecycle *services.Lifecycle) *ReportController {
	return &ReportController{lifecycle: lifecycle}
}

// DepartmentSummary returns per-department work order counts.
func (c *ReportController) DepartmentSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := c.lifecycle.DepartmentReport(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"departments": rows},
	})
}
