package auth

import (
	"net/http"

	"github.com/itsivali/virtual-butler/utils"
)

// Logout blacklists the caller's token id for the token's remaining
// lifetime. Revocation is best-effort: without a revocation store the
// token simply ages out at its natural expiry.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := utils.ClaimsFromRequest(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	if token, found := utils.BearerToken(r); found {
		if jti, ttl, err := utils.RevocationInfo(token); err == nil {
			if err := utils.RevokeJTI(jti, ttl); err != nil {
				utils.Log.Debug().Err(err).Msg("token revocation skipped")
			}
		}
	}

	c.audit.Record("logout", map[string]interface{}{
		"subject": claims.Subject,
		"role":    claims.Role,
	})
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}
