package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/itsivali/virtual-butler/utils"
)

// AuthMiddleware validates the bearer token and places the verified identity
// in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := utils.BearerToken(r)
		if !ok {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
			return
		}

		claims, err := utils.ValidateToken(tokenStr)
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Session expired, please sign in again"})
				return
			}
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), utils.IdentityKey, claims.Subject)
		ctx = context.WithValue(ctx, utils.RoleKey, claims.Role)
		ctx = context.WithValue(ctx, utils.RoomKey, claims.Room)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only the listed roles past. Must run after
// AuthMiddleware.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(utils.RoleKey).(string)
			for _, a := range allowed {
				if role == a {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Access denied"})
		})
	}
}
