package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/ntholi/registry-web-sub009/api/swagger"
	"github.com/ntholi/registry-web-sub009/internal/repository"
	"github.com/ntholi/registry-web-sub009/internal/service"
	"github.com/ntholi/registry-web-sub009/pkg/cache"
	"github.com/ntholi/registry-web-sub009/pkg/config"
	"github.com/ntholi/registry-web-sub009/pkg/database"
	"github.com/ntholi/registry-web-sub009/pkg/jobs"
	"github.com/ntholi/registry-web-sub009/pkg/logger"
)

// @title Registry Registration API
// @version 1.0.0
// @description Registration requests, department clearances and enrollment completion.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const serviceName = "registry-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, serviceName)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, queue counts will not be cached", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	metrics.WatchDB(db.DB, "registry")
	validate := validator.New()

	notifications := service.NewNotificationService(service.NewLogDispatcher(logr), metrics, logr)
	queue := jobs.New("notifications", notifications.Handle, jobs.Config{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	queue.Start()
	notifications.Bind(queue)
	metrics.WatchQueue("notifications", queue.Len)

	registrations := repository.NewRegistrationRepository(db)
	clearanceRepo := repository.NewClearanceRepository(db)

	eligibility := service.NewEligibilityService(
		repository.NewStudentRepository(db),
		repository.NewSemesterModuleRepository(db),
		&cfg.Registration,
		logr,
	)
	sponsorships := service.NewSponsorshipService(repository.NewSponsorshipRepository(db), db, logr)
	clearances := service.NewClearanceService(service.ClearanceServiceParams{
		Store:     clearanceRepo,
		Requests:  registrations,
		Cache:     cacheRepo,
		Tx:        db,
		Notifier:  notifications,
		Metrics:   metrics,
		Config:    cfg.Clearance,
		Validator: validate,
		Logger:    logr,
	})
	registrationSvc := service.NewRegistrationService(service.RegistrationServiceParams{
		Requests:     registrations,
		Modules:      repository.NewRequestedModuleRepository(db),
		Terms:        repository.NewTermRepository(db),
		Eligibility:  eligibility,
		Sponsorships: sponsorships,
		Clearances:   clearances,
		Tx:           db,
		Notifier:     notifications,
		Metrics:      metrics,
		Config:       &cfg.Registration,
		Validator:    validate,
		Logger:       logr,
	})
	auth := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            serviceName,
	})

	router := newRouter(cfg, logr, routerDeps{
		auth:          auth,
		registrations: registrationSvc,
		clearances:    clearances,
		eligibility:   eligibility,
		audit:         service.NewAuditService(repository.NewAuditLogRepository(db)),
		metrics:       metrics,
		db:            db,
		cache:         cacheRepo,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		logr.Warn("notification queue not drained", zap.Int("pending", queue.Len()), zap.Error(err))
	}
	return nil
}
