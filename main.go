package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/itsivali/virtual-butler/database"
	"github.com/itsivali/virtual-butler/intent"
	"github.com/itsivali/virtual-butler/middleware"
	"github.com/itsivali/virtual-butler/routes"
	"github.com/itsivali/virtual-butler/services"
	"github.com/itsivali/virtual-butler/utils"
)

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	utils.SetupLogger()

	// Validate required environment variables
	required := []string{"JWT_SECRET"}
	if strings.ToLower(os.Getenv("DB_DRIVER")) != "sqlite" {
		required = append(required, "DB_HOST", "DB_USER", "DB_PASS", "DB_NAME")
	}
	for _, envVar := range required {
		if os.Getenv(envVar) == "" {
			utils.Log.Fatal().Str("var", envVar).Msg("required environment variable is not set")
		}
	}

	store, err := database.Open()
	if err != nil {
		utils.Log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			utils.Log.Warn().Err(err).Msg("error closing store")
		}
	}()

	// Auto-migrate only in development to avoid accidental production schema changes
	if strings.ToLower(os.Getenv("ENV")) != "production" {
		utils.Log.Info().Msg("performing auto-migration")
		if err := store.Migrate(); err != nil {
			utils.Log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	utils.SetRevocationClient(store.Redis)

	audit := services.NewAuditor(store)
	notifier := services.NewNotifier(store, audit)
	sessions := services.NewSessionStore(store.Redis)
	classifier := intent.NewClassifier(intent.NewOracleClient())
	lifecycle := services.NewLifecycle(store, classifier, sessions, notifier, audit)

	// Internal overdue sweep alongside the external cron endpoint
	scheduler := cron.New()
	sweepSpec := os.Getenv("OVERDUE_SWEEP_SPEC")
	if sweepSpec == "" {
		sweepSpec = "@every 10m"
	}
	if _, err := scheduler.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := lifecycle.SweepOverdue(ctx); err != nil {
			utils.Log.Warn().Err(err).Msg("overdue sweep failed")
		}
	}); err != nil {
		utils.Log.Fatal().Err(err).Str("spec", sweepSpec).Msg("invalid sweep schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := routes.InitRouter(routes.Deps{
		Store:     store,
		Lifecycle: lifecycle,
		Notifier:  notifier,
		Audit:     audit,
	})

	// Global middleware, outermost first:
	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery -> Metrics -> Suspicious Activity
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(
							middleware.MetricsMiddleware(
								middleware.SuspiciousActivityMiddleware(router),
							),
						),
					),
				),
			),
		),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Log.Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		utils.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	utils.Log.Info().Msg("server exited")
}
