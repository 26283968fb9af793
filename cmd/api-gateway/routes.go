package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/handler"
	"github.com/xralks/Bancodealimentos/internal/middleware"
	"github.com/xralks/Bancodealimentos/internal/models"
	"github.com/xralks/Bancodealimentos/pkg/config"
	"github.com/xralks/Bancodealimentos/pkg/logger"
	corsmiddleware "github.com/xralks/Bancodealimentos/pkg/middleware/cors"
	reqidmiddleware "github.com/xralks/Bancodealimentos/pkg/middleware/requestid"
)

type routerDeps struct {
	auth    middleware.TokenValidator
	metrics middleware.RequestObserver
	audit   middleware.AuditRecorder

	authH    *handler.AuthHandler
	profile  *handler.ProfileHandler
	product  *handler.ProductHandler
	post     *handler.PostHandler
	stock    *handler.StockHandler
	donation *handler.DonationHandler
	report   *handler.ReportHandler
	metricsH *handler.MetricsHandler

	avatarDir string
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.metricsH.Health)
	r.GET("/ready", deps.metricsH.Ready)
	r.GET("/metrics", deps.metricsH.Prometheus)

	if deps.avatarDir != "" {
		r.Static("/static/avatars", deps.avatarDir)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", deps.authH.Register)
	auth.POST("/login", deps.authH.Login)
	auth.POST("/refresh", deps.authH.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))

	secured.POST("/auth/logout", deps.authH.Logout)
	secured.POST("/auth/change-password", deps.authH.ChangePassword)
	secured.GET("/auth/me", deps.authH.Me)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	reviewers := middleware.RequireRoles(models.RoleAdmin, models.RoleInstitucion)

	profiles := secured.Group("/profiles")
	profiles.GET("/me", deps.profile.Me)
	profiles.PUT("/me", deps.profile.Update)
	profiles.POST("/me/avatar", deps.profile.UploadAvatar)
	profiles.GET("/:id", deps.profile.Get)

	products := secured.Group("/products")
	products.GET("", deps.product.List)
	products.POST("", adminOnly, deps.product.Create)

	posts := secured.Group("/posts")
	posts.POST("", deps.post.Create)
	posts.GET("/feed", deps.post.Feed)
	posts.GET("/mine", deps.post.Mine)
	posts.GET("/:id", deps.post.Get)
	posts.POST("/:id/accept", reviewers, deps.post.Accept)
	posts.POST("/:id/pickup", adminOnly, deps.stock.ConfirmPickup)

	stock := secured.Group("/stock")
	stock.GET("", deps.stock.Inventory)
	stock.GET("/pickups", adminOnly, deps.stock.Pickups)

	donations := secured.Group("/donations")
	donations.GET("", deps.donation.List)
	donations.GET("/institutions", adminOnly, deps.donation.Institutions)
	donations.POST("", adminOnly, deps.donation.Confirm)

	secured.GET("/metrics/summary", adminOnly, deps.metricsH.Summary)

	if deps.report != nil {
		reports := secured.Group("/reports")
		reports.Use(adminOnly)
		reports.GET("", deps.report.ListReports)
		reports.GET("/:id", deps.report.ReportStatus)
		reports.POST("/:type", middleware.Audit(deps.audit, models.AuditActionReportRequest, "report"), deps.report.GenerateReport)

		api.GET("/export/:token", middleware.Audit(deps.audit, models.AuditActionReportDownload, "report"), deps.report.DownloadReport)
	}

	return r
}
