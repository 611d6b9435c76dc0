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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/unipass-api/api/swagger"
	"github.com/noah-isme/unipass-api/internal/handler"
	internalmiddleware "github.com/noah-isme/unipass-api/internal/middleware"
	"github.com/noah-isme/unipass-api/internal/repository"
	"github.com/noah-isme/unipass-api/internal/service"
	"github.com/noah-isme/unipass-api/pkg/cache"
	"github.com/noah-isme/unipass-api/pkg/config"
	"github.com/noah-isme/unipass-api/pkg/database"
	"github.com/noah-isme/unipass-api/pkg/jobs"
	"github.com/noah-isme/unipass-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/unipass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/unipass-api/pkg/middleware/requestid"
	"github.com/noah-isme/unipass-api/pkg/storage"
	"github.com/noah-isme/unipass-api/pkg/validation"
	"github.com/noah-isme/unipass-api/pkg/wallet/apple"
	"github.com/noah-isme/unipass-api/pkg/wallet/google"
)

// @title UniPass API
// @version 1.0.0
// @description University student passes for Apple and Google wallets
// @BasePath /
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, query cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validation.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metricsSvc,
		cfg.Cache.QueryTTL,
		logr,
		cfg.Cache.Enabled && redisClient != nil,
	)

	userRepo := repository.NewUserRepository(db)
	universityRepo := repository.NewUniversityRepository(db)
	careerRepo := repository.NewCareerRepository(db)
	cityRepo := repository.NewCityRepository(db)
	passRepo := repository.NewPassRepository(db)
	tagRepo := repository.NewTagRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, universityRepo, validate, logr)
	universitySvc := service.NewUniversityService(universityRepo, validate, logr)
	careerSvc := service.NewCareerService(careerRepo, validate, logr)
	citySvc := service.NewCityService(cityRepo, validate, logr)
	passSvc := service.NewPassService(passRepo, careerRepo, tagRepo, cacheSvc, validate, logr, service.PassServiceConfig{
		QueryCacheTTL: cfg.Cache.QueryTTL,
	})
	dashboardSvc := service.NewDashboardService(passRepo, cacheSvc, cfg.Cache.QueryTTL, logr)
	tagSvc := service.NewTagService(tagRepo, passRepo, cacheSvc, validate, logr)

	walletSvc, err := buildWalletService(ctx, cfg, passRepo, deviceRepo, metricsSvc, logr)
	if err != nil {
		logr.Sugar().Fatalw("wallet initialisation failed", "error", err)
	}
	passSvc.SetUpdateListener(walletSvc)
	deviceSvc := service.NewDeviceService(deviceRepo, passRepo, walletSvc, validate, logr,
		cfg.AppleWallet.PassTypeIdentifier, cfg.AppleWallet.TokenSecret)

	worker := service.NewNotificationWorker(walletSvc, passRepo, cacheSvc, metricsSvc, logr)
	notificationQueue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: 0,
		Logger:     logr,
		OnFailure:  worker.HandleFailure,
	})
	notificationQueue.Start(context.WithoutCancel(ctx))
	metricsSvc.RegisterQueue(notificationQueue)
	notificationSvc := service.NewNotificationService(passSvc, notificationQueue, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	registerRoutes(r, cfg, routeDeps{
		auth:          authSvc,
		devices:       deviceSvc,
		logger:        logr,
		authH:         handler.NewAuthHandler(authSvc),
		userH:         handler.NewUserHandler(userSvc),
		universityH:   handler.NewUniversityHandler(universitySvc),
		careerH:       handler.NewCareerHandler(careerSvc),
		cityH:         handler.NewCityHandler(citySvc),
		passH:         handler.NewPassHandler(passSvc),
		tagH:          handler.NewTagHandler(tagSvc),
		walletH:       handler.NewWalletHandler(walletSvc),
		passKitH:      handler.NewPassKitHandler(deviceSvc),
		notificationH: handler.NewNotificationHandler(notificationSvc),
		metricsH:      handler.NewMetricsHandler(metricsSvc, readinessChecks(db, redisClient)...),
		dashboardH:    handler.NewDashboardHandler(dashboardSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := notificationQueue.Shutdown(shutdownCtx); err != nil {
		logr.Warn("notification queue did not drain", zap.Error(err))
	}
}

// buildWalletService loads wallet credentials for the enabled platforms.
// A disabled platform leaves its manager nil.
func buildWalletService(ctx context.Context, cfg *config.Config, passes *repository.PassRepository, devices *repository.DeviceRepository,
	metrics *service.MetricsService, logr *zap.Logger) (*service.WalletService, error) {
	store, err := storage.NewLocalStorage(cfg.Passes.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init pass storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Passes.SignedURLSecret, cfg.Passes.SignedURLTTL)

	walletCfg := service.WalletServiceConfig{
		Google: service.GoogleWalletSettings{
			ClassSuffix:   cfg.GoogleWallet.ClassSuffix,
			Origin:        cfg.GoogleWallet.Origin,
			LogoURI:       cfg.GoogleWallet.LogoURI,
			HeroURI:       cfg.GoogleWallet.HeroURI,
			HexBackground: cfg.GoogleWallet.HexBackground,
		},
		PublicBaseURL: cfg.Passes.PublicBaseURL,
		APIPrefix:     cfg.APIPrefix,
	}

	var (
		appleManager  service.AppleWallet
		pusher        apple.Pusher
		googleManager service.GoogleWallet
	)

	if cfg.AppleWallet.Enabled {
		creds, err := apple.LoadCredentials(cfg.AppleWallet)
		if err != nil {
			return nil, err
		}
		images, err := apple.LoadImages(cfg.AppleWallet.ImagesDir)
		if err != nil {
			return nil, err
		}
		client, err := apple.NewAPNsClient(cfg.AppleWallet.APNsCertPath, cfg.AppleWallet.APNsCertPassword, cfg.AppleWallet.APNsProduction)
		if err != nil {
			return nil, err
		}
		appleManager = apple.NewManager(logr.Named("apple_wallet"))
		pusher = client
		walletCfg.Apple = service.AppleWalletSettings{
			Credentials:   creds,
			Images:        images,
			WebServiceURL: cfg.AppleWallet.WebServiceURL,
			TokenSecret:   cfg.AppleWallet.TokenSecret,
		}
	}

	if cfg.GoogleWallet.Enabled {
		credentials, err := os.ReadFile(cfg.GoogleWallet.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("read google wallet credentials: %w", err)
		}
		manager, err := google.NewManager(ctx, cfg.GoogleWallet.IssuerID, credentials, logr.Named("google_wallet"))
		if err != nil {
			return nil, err
		}
		googleManager = manager
	}

	return service.NewWalletService(passes, devices, appleManager, pusher, googleManager, store, signer, metrics, logr, walletCfg), nil
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) []handler.ReadinessCheck {
	checks := []handler.ReadinessCheck{{Name: "postgres", Probe: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	return checks
}
