package router

import (
	"context"
	"fmt"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/cache"
	"github.com/kashsbd/awlam-backend/internal/fanout"
	"github.com/kashsbd/awlam-backend/internal/handlers"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/middleware"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/push"
	"github.com/kashsbd/awlam-backend/internal/realtime"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/kashsbd/awlam-backend/internal/search"
	"github.com/kashsbd/awlam-backend/internal/storage"
	"github.com/kashsbd/awlam-backend/pkg/config"
	"github.com/kashsbd/awlam-backend/pkg/firebase"
	"github.com/kashsbd/awlam-backend/pkg/validators"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Services are the connected backends. Postgres, Redis, Search and Firebase
// are optional.
type Services struct {
	Config   *config.Config
	Mongo    *mongo.Database
	Postgres *gorm.DB
	Redis    *redis.Client
	Objects  storage.ObjectStore
	Search   *search.Client
	Firebase *firebase.App
	Hub      *realtime.Hub
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler
	e.Validator = validators.NewValidator()

	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Metrics())
	logger.Log.Info("Global middleware configured.")
}

// SetupRoutes wires repositories, the fan-out engine and every handler.
func SetupRoutes(e *echo.Echo, s Services) error {
	cfg := s.Config

	// --- Initialize Repositories ---
	contentRegistry := repositories.NewContentRegistry(s.Mongo)
	commentRepo := repositories.NewMongoCommentRepository(s.Mongo)
	notificationRepo := repositories.NewMongoNotificationRepository(s.Mongo)
	userRepo := repositories.NewMongoUserRepository(s.Mongo)
	mediaRepo := repositories.NewMongoMediaRepository(s.Mongo)

	var receiptRepo repositories.PushReceiptRepository
	if s.Postgres != nil {
		if err := s.Postgres.AutoMigrate(&models.PushReceipt{}); err != nil {
			return fmt.Errorf("failed to auto migrate push receipts: %w", err)
		}
		receiptRepo = repositories.NewPostgresPushReceiptRepository(s.Postgres)
		logger.Log.Info("PostgreSQL auto-migrations completed for push receipts.")
	}

	// --- Fan-out ---
	var gateway push.Gateway = push.Noop{}
	if s.Firebase != nil {
		gateway = push.NewFCM(s.Firebase.MessagingClient)
	} else {
		logger.Log.Warn("Firebase not configured, push notifications are disabled")
	}
	if receiptRepo != nil {
		gateway = push.WithReceipts(gateway, receiptRepo)
	}

	engine := fanout.NewEngine(fanout.Deps{
		Contents:      func(collection string) fanout.ContentStore { return contentRegistry.For(collection) },
		Comments:      commentRepo,
		Notifications: notificationRepo,
		Users:         userRepo,
		Media:         mediaRepo,
		Broadcaster:   s.Hub,
		Push:          gateway,
		ServerURL:     cfg.ServerURL,
		PushTimeout:   cfg.PushTimeout,
	})

	uploader := storage.NewUploader(s.Objects, mediaRepo)

	// Health check - always accessible
	healthHandler := handlers.NewHealthHandler(healthChecks(s))
	e.GET("/health", healthHandler.HealthCheck)

	// --- Unprotected routes ---
	authGroup := e.Group("/api/v1/auth")
	var verifier handlers.TokenVerifier
	if s.Firebase != nil {
		verifier = s.Firebase.AuthClient
	}
	authHandler := handlers.NewAuthHandler(userRepo, verifier, cfg.JWTSecret, cfg.JWTExpiry)
	if s.Search != nil {
		authHandler.WithUserIndex(s.Search)
	}
	authHandler.RegisterAuthRoutes(authGroup)

	public := e.Group("/api/v1")
	mediaHandler := handlers.NewMediaHandler(mediaRepo, userRepo, s.Objects)
	mediaHandler.RegisterMediaRoutes(public)
	logger.Log.Info("Auth and media routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	var listCache echo.MiddlewareFunc
	if s.Redis != nil {
		listCache = cache.ResponseCache(cache.NewRedisStore(s.Redis), cfg.CacheTTL, middleware.UserID)
	}
	var searcher handlers.Searcher
	if s.Search != nil {
		searcher = s.Search
	}

	contentDeps := handlers.ContentDeps{
		Contents:  func(collection string) repositories.ContentRepository { return contentRegistry.For(collection) },
		Comments:  commentRepo,
		Users:     userRepo,
		Fanout:    engine,
		Uploader:  uploader,
		Search:    searcher,
		ListCache: listCache,
	}
	for _, d := range fanout.TopLevel() {
		handlers.NewContentHandler(d, contentDeps).RegisterContentRoutes(api)
	}
	logger.Log.Info("Content routes configured.")

	commentHandler := handlers.NewCommentHandler(commentRepo, userRepo)
	commentHandler.RegisterCommentRoutes(api)

	userHandler := handlers.NewUserHandler(userRepo, uploader)
	if s.Search != nil {
		userHandler.WithSearch(s.Search)
	}
	userHandler.RegisterUserRoutes(api)

	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo, mediaRepo, receiptRepo)
	notificationHandler.RegisterNotificationRoutes(api)

	realtimeHandler := realtime.NewHandler(s.Hub, middleware.UserID, cfg.WSOriginPatterns)
	realtimeHandler.RegisterRealtimeRoutes(api)

	logger.Log.Info("All routes configured.")
	return nil
}

func healthChecks(s Services) map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"mongo": func(ctx context.Context) error {
			return s.Mongo.Client().Ping(ctx, nil)
		},
	}
	if s.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		}
	}
	if s.Postgres != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := s.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	return checks
}
