package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/xralks/Bancodealimentos/api/swagger"
	"github.com/xralks/Bancodealimentos/internal/handler"
	"github.com/xralks/Bancodealimentos/internal/repository"
	"github.com/xralks/Bancodealimentos/internal/service"
	"github.com/xralks/Bancodealimentos/pkg/cache"
	"github.com/xralks/Bancodealimentos/pkg/config"
	"github.com/xralks/Bancodealimentos/pkg/database"
	"github.com/xralks/Bancodealimentos/pkg/export"
	"github.com/xralks/Bancodealimentos/pkg/jobs"
	"github.com/xralks/Bancodealimentos/pkg/logger"
	"github.com/xralks/Bancodealimentos/pkg/storage"
)

// @title Banco de Alimentos API
// @version 1.0.0
// @description Donation network between food-stall vendors, institutions and administrators.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, feed cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	lines := repository.NewPostProductRepository(db)
	products := repository.NewProductRepository(db)
	donations := repository.NewDonationRepository(db)
	reportJobs := repository.NewReportRepository(db)

	var cacheStore service.CacheRepository
	if redisClient != nil {
		cacheStore = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, cfg.Feed.CacheTTL, logr, redisClient != nil)

	avatars, err := storage.NewObjectStore(ctx, cfg.Avatars)
	if err != nil {
		logr.Fatal("failed to init avatar storage", zap.Error(err))
	}

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	profileSvc := service.NewProfileService(users, avatars, validate, logr, service.ProfileConfig{
		MaxAvatarBytes: cfg.Avatars.MaxFileSizeBytes,
		AllowedMIMEs:   cfg.Avatars.AllowedMIMEs,
	})
	productSvc := service.NewProductService(products, validate, logr)
	postSvc := service.NewPostService(posts, lines, products, users, cacheSvc, metrics, validate, logr, service.PostServiceConfig{
		FeedTTL: cfg.Feed.CacheTTL,
	})
	stockSvc := service.NewStockService(lines, donations, posts, users, metrics, logr)
	donationSvc := service.NewDonationService(donations, lines, products, posts, users, users, metrics, validate, logr, service.DonationServiceConfig{
		StrictGuard: cfg.Donations.StrictGuard,
	})

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		reportSvc = startReports(ctx, cfg, logr, donations, lines, reportJobs)
	}

	router := newRouter(cfg, logr, routerDeps{
		auth:      authSvc,
		metrics:   metrics,
		audit:     users,
		authH:     handler.NewAuthHandler(authSvc),
		profile:   handler.NewProfileHandler(profileSvc),
		product:   handler.NewProductHandler(productSvc),
		post:      handler.NewPostHandler(postSvc),
		stock:     handler.NewStockHandler(stockSvc),
		donation:  handler.NewDonationHandler(donationSvc),
		report:    reportHandler(reportSvc, logr),
		metricsH:  handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
		avatarDir: localAvatarDir(cfg.Avatars),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	case sig := <-shutdown:
		logr.Sugar().Infow("shutdown signal received", "signal", sig.String())
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Errorw("graceful shutdown failed", "error", err)
			_ = srv.Close()
		}
		logr.Info("server stopped")
	}
}

// startReports wires the export pipeline: file storage, signer, worker queue and cleanup loop.
func startReports(ctx context.Context, cfg *config.Config, logr *zap.Logger, donations *repository.DonationRepository, lines *repository.PostProductRepository, reportJobs *repository.ReportRepository) *service.ReportService {
	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(donations, lines, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	worker := service.NewReportWorker(reportJobs, exporter, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	go func() {
		<-ctx.Done()
		queue.Stop()
	}()

	reportSvc := service.NewReportService(reportJobs, queue, exporter, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)
	return reportSvc
}

func reportHandler(svc *service.ReportService, logr *zap.Logger) *handler.ReportHandler {
	if svc == nil {
		return nil
	}
	return handler.NewReportHandler(svc, logr)
}

func readinessChecks(db handler.Pinger, client *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"postgres": db}
	if client != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return checks
}

func localAvatarDir(cfg config.AvatarsConfig) string {
	if cfg.Driver == config.AvatarDriverS3 {
		return ""
	}
	return cfg.LocalDir
}
