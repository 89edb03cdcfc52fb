package controllers

import (
	"net/http"

	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

// writeError translates a service error into the wire envelope. Internal
// failures get a generic message plus the request id; everything else
// surfaces its own message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status := services.HTTPStatus(kind)

	if status >= 500 {
		rid, _ := r.Context().Value(utils.RequestIDKey).(string)
		utils.Log.Error().Err(err).Str("request_id", rid).Str("path", r.URL.Path).Msg("request failed")
		msg := "Internal server error"
		if kind == services.KindUnavailable {
			msg = "Service temporarily unavailable"
		}
		utils.WriteJSON(w, status, utils.APIResponse{
			Success: false,
			Message: msg,
			Data:    map[string]interface{}{"request_id": rid},
		})
		return
	}

	utils.WriteJSON(w, status, utils.APIResponse{Success: false, Message: err.Error()})
}
