package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/internal/handler"
	"github.com/ntholi/registry-web-sub009/internal/middleware"
	"github.com/ntholi/registry-web-sub009/internal/models"
	"github.com/ntholi/registry-web-sub009/internal/service"
	"github.com/ntholi/registry-web-sub009/pkg/config"
	"github.com/ntholi/registry-web-sub009/pkg/logger"
	corsmiddleware "github.com/ntholi/registry-web-sub009/pkg/middleware/cors"
	reqidmiddleware "github.com/ntholi/registry-web-sub009/pkg/middleware/requestid"
)

type routerDeps struct {
	auth          *service.AuthService
	registrations *service.RegistrationService
	clearances    *service.ClearanceService
	eligibility   *service.EligibilityService
	audit         *service.AuditService
	metrics       *service.MetricsService
	db            handler.Pinger
	cache         handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(deps.metrics))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, map[string]handler.Pinger{
		"postgres": deps.db,
		"redis":    deps.cache,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		r.POST(cfg.APIPrefix+"/auth/token", handler.NewAuthHandler(deps.auth).IssueToken)
	}

	registrationHandler := handler.NewRegistrationHandler(deps.registrations)
	clearanceHandler := handler.NewClearanceHandler(deps.clearances)
	eligibilityHandler := handler.NewEligibilityHandler(deps.eligibility)
	auditHandler := handler.NewAuditHandler(deps.audit)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.auth))

	applicants := middleware.RequireRoles(models.RoleStudent, models.RoleRegistry, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleRegistry, models.RoleAdmin)
	departments := middleware.RequireRoles(models.RoleFinance, models.RoleLibrary, models.RoleAcademic, models.RoleRegistry, models.RoleAdmin)
	selfOrStaff := middleware.RBAC(string(models.RoleRegistry), string(models.RoleAdmin), middleware.Self)

	registrations := api.Group("/registrations")
	registrations.POST("", applicants, registrationHandler.Create)
	registrations.PUT("/:id", applicants, registrationHandler.Update)
	registrations.GET("/:id", registrationHandler.Get)
	registrations.POST("/:id/complete", staff, registrationHandler.Complete)

	students := api.Group("/students/:stdNo")
	students.Use(selfOrStaff)
	students.GET("/registration", registrationHandler.GetForStudent)
	students.GET("/eligible-modules", eligibilityHandler.EligibleModules)
	students.POST("/semester-status", eligibilityHandler.SemesterStatus)

	clearances := api.Group("/clearances", departments)
	clearances.GET("/queue", clearanceHandler.Queue)
	clearances.GET("/queue/count", clearanceHandler.Count)
	clearances.PUT("/:id", clearanceHandler.Respond)
	clearances.GET("/:id/history", clearanceHandler.History)

	api.GET("/audit-logs", staff, auditHandler.List)
	api.GET("/metrics/summary", staff, metricsHandler.Summary)

	return r
}
