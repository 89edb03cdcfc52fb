package routes

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itsivali/virtual-butler/controllers"
	authcontroller "github.com/itsivali/virtual-butler/controllers/auth"
	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/middleware"
	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/services"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Deps carries the constructed services the router wires into handlers.
type Deps struct {
	Store     *database.Store
	Lifecycle *services.Lifecycle
	Notifier  *services.Notifier
	Audit     *services.Auditor
}

func InitRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	// CORS origins from CORS_ALLOWED_ORIGINS (comma-separated) or local defaults
	origins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
		for _, p := range strings.Split(env, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-CRON-KEY", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	health := controllers.NewHealthController(d.Store)
	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", health.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	chat := controllers.NewChatController(d.Lifecycle)
	workOrders := controllers.NewWorkOrderController(d.Lifecycle)
	notifications := controllers.NewNotificationController(d.Store, d.Notifier)
	reports := controllers.NewReportController(d.Lifecycle)
	cron := controllers.NewCronController(d.Lifecycle)
	attachments := controllers.NewAttachmentController()
	login := authcontroller.NewController(d.Store, d.Audit)

	writeLimiter := middleware.NewIdentityRateLimiter()
	auth := middleware.AuthMiddleware
	staffOnly := middleware.RequireRole(models.RoleStaff, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	limited := func(h http.HandlerFunc) http.Handler {
		return auth(writeLimiter.Middleware(h))
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return auth(http.HandlerFunc(h))
	}
	staff := func(h http.HandlerFunc) http.Handler {
		return auth(staffOnly(http.HandlerFunc(h)))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return auth(adminOnly(http.HandlerFunc(h)))
	}

	// Sign-in (unauthenticated; IP-keyed rate limit via limiter fallback)
	api.Handle("/auth/guest", writeLimiter.Middleware(http.HandlerFunc(login.GuestLogin))).Methods(http.MethodPost)
	api.Handle("/auth/staff", writeLimiter.Middleware(http.HandlerFunc(login.StaffLogin))).Methods(http.MethodPost)
	api.Handle("/auth/logout", authed(login.Logout)).Methods(http.MethodPost)

	// Guest chat requests
	api.Handle("/chat/requests", limited(chat.Create)).Methods(http.MethodPost)
	api.Handle("/chat/requests", authed(chat.List)).Methods(http.MethodGet)
	api.Handle("/chat/requests/{request_id}", authed(chat.Get)).Methods(http.MethodGet)
	api.Handle("/chat/requests/{request_id}/status", staff(chat.UpdateStatus)).Methods(http.MethodPatch)
	api.Handle("/chat/requests/{request_id}", admin(chat.Delete)).Methods(http.MethodDelete)

	// Work orders
	api.Handle("/work-orders", limited(workOrders.Create)).Methods(http.MethodPost)
	api.Handle("/work-orders", staff(workOrders.List)).Methods(http.MethodGet)
	api.Handle("/work-orders/{request_id}", authed(workOrders.Get)).Methods(http.MethodGet)
	api.Handle("/work-orders/{request_id}/status", staff(workOrders.UpdateStatus)).Methods(http.MethodPatch)
	api.Handle("/work-orders/{request_id}/assign", staff(workOrders.Assign)).Methods(http.MethodPatch)
	api.Handle("/work-orders/{request_id}/estimate", staff(workOrders.SetEstimate)).Methods(http.MethodPatch)
	api.Handle("/work-orders/{request_id}", admin(workOrders.Delete)).Methods(http.MethodDelete)

	// Notifications
	api.Handle("/notifications", staff(notifications.Create)).Methods(http.MethodPost)
	api.Handle("/notifications", authed(notifications.List)).Methods(http.MethodGet)
	api.Handle("/notifications/{notification_id}", authed(notifications.Get)).Methods(http.MethodGet)
	api.Handle("/notifications/{notification_id}/read", authed(notifications.MarkRead)).Methods(http.MethodPatch)
	api.Handle("/notifications/{notification_id}", admin(notifications.Delete)).Methods(http.MethodDelete)

	// Attachments
	api.Handle("/attachments", limited(attachments.Upload)).Methods(http.MethodPost)
	api.Handle("/attachments/{object:.+}", authed(attachments.SignedURL)).Methods(http.MethodGet)
	api.Handle("/attachments/{object:.+}", admin(attachments.Delete)).Methods(http.MethodDelete)

	// Reports
	api.Handle("/reports/departments", staff(reports.DepartmentSummary)).Methods(http.MethodGet)

	// Cron (protected via X-CRON-KEY header)
	api.HandleFunc("/cron/overdue-reminders", cron.OverdueReminders).Methods(http.MethodPost)

	return r
}
