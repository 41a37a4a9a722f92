package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"truckyard/internal/api/middleware"
	"truckyard/internal/auth"
	"truckyard/internal/catalog"
	"truckyard/internal/config"
	"truckyard/internal/inquiry"
	"truckyard/internal/media"
	"truckyard/internal/page"
	"truckyard/internal/storage"
	"truckyard/internal/vehicle"
)

// RegisterRoutes 注册全部 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	storageClient *storage.Client,
	logger *slog.Logger,
) {
	catalogService := catalog.NewService(db)
	vehicleService := vehicle.NewService(db, catalogService)
	mediaService := media.NewService(db, storageClient, logger,
		cfg.Upload.MaxBytes, cfg.Upload.MaxImagesPerVehicle)
	inquiryService := inquiry.NewService(db, asynqClient, logger)
	pageService := page.NewService(db, storageClient, logger)

	categoryHandler := NewCategoryHandler(catalogService)
	vehicleHandler := NewVehicleHandler(vehicleService, mediaService)
	imageHandler := NewImageHandler(mediaService, storageClient, cfg.Upload.ClamdAddr)
	inquiryHandler := NewInquiryHandler(inquiryService)
	pageHandler := NewPageHandler(pageService)
	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		time.Duration(cfg.Auth.LoginLockTTLMin)*time.Minute,
	)
	feedHandler := NewFeedHandler(redisClient, authService, logger)
	authMiddleware := middleware.AuthMiddleware(authService)

	api := router.Group("/api")
	{
		// 公开读取
		api.GET("/categories", categoryHandler.List)
		api.GET("/categories/:id", categoryHandler.Get)
		api.GET("/vehicles", vehicleHandler.List)
		api.GET("/vehicles/search", vehicleHandler.Search)
		api.GET("/vehicles/:id", vehicleHandler.Get)
		api.GET("/vehicles/:id/related", vehicleHandler.Related)
		api.GET("/vehicles/:id/images", imageHandler.ListByVehicle)
		api.GET("/images/:filename", imageHandler.Serve)
		api.GET("/pages", pageHandler.ListPublished)
		api.GET("/pages/:slug", pageHandler.GetPublished)

		// 公开提交
		api.POST("/inquiries", inquiryHandler.Create)

		// 浏览器 WebSocket 客户端无法携带 Authorization 头，
		// 鉴权在连接建立后的首条 auth 消息内完成。
		api.GET("/ws/inquiries", feedHandler.HandleConnection)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/verify", authMiddleware, authHandler.Verify)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		// 后台管理
		admin := api.Group("")
		admin.Use(authMiddleware)
		{
			admin.POST("/categories", categoryHandler.Create)
			admin.DELETE("/categories/:id", categoryHandler.Delete)

			admin.POST("/vehicles", vehicleHandler.Create)
			admin.PUT("/vehicles/:id", vehicleHandler.Update)
			admin.DELETE("/vehicles/:id", vehicleHandler.Delete)

			admin.POST("/vehicles/:id/images", imageHandler.Upload)
			admin.DELETE("/images/:imageId", imageHandler.Delete)

			admin.GET("/inquiries", inquiryHandler.List)
			admin.GET("/inquiries/:id", inquiryHandler.Get)
			admin.PUT("/inquiries/:id", inquiryHandler.UpdateStatus)

			admin.GET("/admin/pages", pageHandler.ListAll)
			admin.GET("/admin/pages/:id", pageHandler.Get)
			admin.POST("/admin/pages", pageHandler.Create)
			admin.PUT("/admin/pages/:id", pageHandler.Update)
			admin.DELETE("/admin/pages/:id", pageHandler.Delete)
		}
	}
}
