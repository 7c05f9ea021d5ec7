// Command audit-service runs the inventory audit core's HTTP server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/djsadd/inventory-audit-service/pkg/api"
	"github.com/djsadd/inventory-audit-service/pkg/audit/httpapi"
	"github.com/djsadd/inventory-audit-service/pkg/audit/service"
	"github.com/djsadd/inventory-audit-service/pkg/audit/store"
	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
	"github.com/djsadd/inventory-audit-service/pkg/config"
	"github.com/djsadd/inventory-audit-service/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", "error", err)
		return 1
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping database", "error", err)
		return 1
	}
	logger.Info("database connected")

	plans := store.NewPlanStore(db)
	sessions := store.NewSessionStore(db)
	expected := store.NewExpectedStore(db)
	results := store.NewResultStore(db)
	scans := store.NewScanStore(db)
	discrepancies := store.NewDiscrepancyStore(db)
	actions := store.NewActionStore(db)

	authClient := collaborators.NewAuthClient(cfg.AuthServiceURL)
	locationClient := collaborators.NewLocationClient(cfg.LocationServiceURL)
	inventoryClient := collaborators.NewInventoryClient(cfg.InventoryServiceURL)
	notificationClient := collaborators.NewNotificationClient(cfg.NotificationServiceURL, cfg.NotificationSecret)
	if cfg.RedisAddr != "" {
		notificationClient = notificationClient.WithDedupCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Info("notification de-dup cache enabled", "redis_addr", cfg.RedisAddr)
	}

	planService := service.NewPlanService(plans)
	sessionService := service.NewSessionService(db, sessions, expected, results, scans, discrepancies, inventoryClient, notificationClient)
	resolutionService := service.NewResolutionService(db, sessions, discrepancies, actions, notificationClient)
	applyService := service.NewApplyService(db, sessions, actions, inventoryClient, notificationClient)
	reportService := service.NewReportService(db)

	router := httpapi.NewRouter(httpapi.Deps{
		Plans:         httpapi.NewPlanHandlers(planService, cfg.RoleAuditor, cfg.RoleSupervisor, cfg.RoleSystemAdmin),
		Sessions:      httpapi.NewSessionHandlers(sessionService, resolutionService, applyService, locationClient, inventoryClient, cfg.RoleAuditor, cfg.RoleSupervisor, cfg.RoleSystemAdmin),
		SessionChild:  httpapi.NewSessionChildHandlers(expected, results, discrepancies, actions),
		Discrepancies: httpapi.NewDiscrepancyHandlers(resolutionService, cfg.RoleSupervisor, cfg.RoleSystemAdmin),
		Reports:       httpapi.NewReportHandlers(reportService, cfg.RoleSupervisor, cfg.RoleSystemAdmin),
		Auth:          authClient,
	})

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := api.Chain(router, api.RequestIDMiddleware, api.Recover, limiter.Middleware)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("audit service listening", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-sigCh:
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}
