package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	migration "splay/cmd/database/migrate"
	"splay/domain"
	"splay/internal/api/handlers"
	"splay/internal/api/presenters"
	"splay/internal/api/routes"
	"splay/internal/cache"
	"splay/internal/metrics"
	"splay/internal/middleware"
	"splay/internal/utils"
	"splay/internal/utils/mailing"
	"splay/internal/utils/storage"
	"splay/pkg/jwt"
	"splay/pkg/matching"
	"splay/pkg/midtrans"
	"splay/pkg/product"
	"splay/pkg/scan"
	"splay/pkg/user"
	"splay/pkg/vision"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the wired API plus the resources that must be released on shutdown.
type App struct {
	Fiber *fiber.App

	pool    *scan.WorkerPool
	closers []func() error
	logger  *zap.Logger
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return presenters.ErrorResponse(c, status, domain.MessageFailedProcessRequest, err)
}

func accessLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating logs directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return file, nil
}

func newStorage(ctx context.Context, cfg utils.Config) (storage.Storage, string, error) {
	if strings.EqualFold(cfg.StorageType, "s3") {
		s3, err := storage.NewAwsS3(ctx, storage.S3Config{
			Bucket:    cfg.AWSS3Bucket,
			Region:    cfg.AWSS3Region,
			Endpoint:  cfg.AWSS3Endpoint,
			PublicURL: cfg.AWSS3PublicURL,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			PathStyle: utils.GetConfigBool("AWS_S3_PATH_STYLE"),
		})
		return s3, "", err
	}

	local, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, "", err
	}
	return local, local.BasePath(), nil
}

func newCache(cfg utils.Config, log *zap.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewInMemoryCache()
	}
	redisCache, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       utils.GetConfigInt("REDIS_DB", 0),
	})
	if err != nil {
		log.Warn("redis unavailable, caching scans in memory", zap.Error(err))
		return cache.NewInMemoryCache()
	}
	log.Info("caching scans in redis", zap.String("addr", cfg.RedisAddr))
	return redisCache
}

func NewApp(ctx context.Context, db *gorm.DB, log *zap.Logger) (*App, error) {
	cfg := utils.GetAppConfig()
	utils.InitValidator()
	validator := utils.Validate

	if err := migration.Migrate(db); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "Splay API",
		BodyLimit:    domain.MaxUploadSize + 1<<20,
		ErrorHandler: errorHandler,
	})
	application := &App{Fiber: app, logger: log}

	app.Use(recover.New())

	// setting up logging and limiter
	if cfg.AccessLog != "" {
		file, err := accessLog(cfg.AccessLog)
		if err != nil {
			return nil, err
		}
		application.closers = append(application.closers, file.Close)
		app.Use(logger.New(logger.Config{
			TimeFormat: "2006-01-02 15:04:05",
			TimeZone:   "UTC",
			Output:     file,
		}))
	}

	if rateLimit := utils.GetConfigInt("RATE_LIMIT", 10); rateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        rateLimit,
			Expiration: 1 * time.Second,
		}))
	}

	// utils
	m := metrics.New()
	store, storageDir, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	scanCache := newCache(cfg, log)
	application.closers = append(application.closers, scanCache.Close)

	provider, err := vision.NewProvider(ctx, vision.Config{
		Provider:     cfg.VisionProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	})
	if err != nil {
		return nil, fmt.Errorf("vision provider: %w", err)
	}
	application.closers = append(application.closers, provider.Close)
	mailer := mailing.NewMailer(mailing.LoadMailConfig(), log)

	// Repository
	userRepository := user.NewUserRepository(db)
	productRepository := product.NewProductRepository(db)
	scanRepository := scan.NewScanRepository(db)
	midtransRepository := midtrans.NewMidtransRepository(db)

	if n, err := scanRepository.FailProcessingScans(ctx, "interrupted", time.Now()); err != nil {
		return nil, fmt.Errorf("recovering scans: %w", err)
	} else if n > 0 {
		log.Warn("marked interrupted scans as failed", zap.Int64("count", n))
	}

	// Service
	freeScanLimit := utils.GetConfigInt("FREE_SCAN_LIMIT", 10)
	jwtService := jwt.NewJWTService()
	userService := user.NewUserService(userRepository, jwtService, mailer, log)
	productService := product.NewProductService(productRepository, log)
	matchingService := matching.NewMatchingService(productRepository)

	processor := scan.NewProcessor(scanRepository, store, provider, matchingService, m, log)
	application.pool = scan.NewWorkerPool(
		processor.Process,
		utils.GetConfigInt("SCAN_WORKERS", 2),
		utils.GetConfigInt("SCAN_QUEUE_SIZE", 64),
		m,
		log,
	)
	scanService := scan.NewScanService(
		scanRepository,
		userRepository,
		store,
		application.pool,
		processor.Process,
		scanCache,
		log,
		scan.Options{FreeScanLimit: freeScanLimit},
	)
	midtransService := midtrans.NewMidtransService(
		midtransRepository,
		userRepository,
		midtrans.NewSnapClient(cfg.ServerKey, utils.GetConfigBool("IS_PROD")),
		log,
		midtrans.Options{
			ServerKey:     cfg.ServerKey,
			PremiumPrice:  int64(utils.GetConfigInt("PREMIUM_PRICE", 99000)),
			FreeScanLimit: freeScanLimit,
		},
	)

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	scanHandler := handlers.NewScanHandler(scanService, validator)
	productHandler := handlers.NewProductHandler(productService)
	midtransHandler := handlers.NewMidtransHandler(midtransService, validator)

	// routes
	routesConfig := routes.Config{
		App:             app,
		UserHandler:     userHandler,
		ScanHandler:     scanHandler,
		ProductHandler:  productHandler,
		MidtransHandler: midtransHandler,
		Middleware:      middleware.NewMiddleware(userRepository, m, log),
		JWTService:      jwtService,
		Metrics:         m,
		Environment:     cfg.Environment,
		StorageDir:      storageDir,
	}
	routesConfig.Setup()

	application.pool.Start()
	return application, nil
}

// Shutdown stops accepting requests, drains queued scans and releases the
// remaining resources.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Fiber.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scan workers: %w", err))
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
