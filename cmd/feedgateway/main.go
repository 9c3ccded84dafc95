package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	feedgateway "feed_gateway/internal/domain/feed/gateway"
	mentiongateway "feed_gateway/internal/domain/mention/gateway"
	notifgateway "feed_gateway/internal/domain/notification/gateway"
	sessionservice "feed_gateway/internal/domain/session/service"
	"feed_gateway/internal/pkg/config"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/pkg/registry"
	"feed_gateway/internal/pkg/worker"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/cache"
	"feed_gateway/pkg/logger"

	// 各模块靠 init() 自注册路由
	_ "feed_gateway/internal/domain/composer"
	_ "feed_gateway/internal/domain/feed"
	_ "feed_gateway/internal/domain/mention"
	_ "feed_gateway/internal/domain/notification"
	_ "feed_gateway/internal/domain/session"

	_ "feed_gateway/docs" // swagger 文档

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title Feed Gateway API
// @version 1.0
// @description 创作者平台信息流交互引擎的本地网关
// @BasePath /api
func main() {
	config.LoadConfig()
	cfg := config.GlobalConfig

	logger.Init(cfg.Server.Mode)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("invalid config", zap.Error(err))
	}

	// 平台客户端 + 缓存
	client := platform.NewClient(cfg.Platform)
	var cacheService cache.CacheService
	if cfg.Redis.Enabled {
		rdb := cache.InitRedis()
		cacheService = cache.NewRedisCache(rdb, cfg.App.Env)
	} else {
		cacheService = cache.NewNoop()
	}

	// 上传池
	pool := worker.NewUploadPool(client, cfg.Upload.Workers, cfg.Upload.QueueSize)
	pool.Start()

	// 会话注册表：各领域网关在这里拼起来
	sessions := sessionservice.NewRegistry(
		feedgateway.NewFeedGateway(client, cacheService, cfg.Feed.CacheTTL),
		notifgateway.NewNotificationGateway(client),
		mentiongateway.NewSearchGateway(client, cacheService, cfg.Feed.SearchTTL),
		pool,
		sessionservice.Options{
			FeedPerPage:  cfg.Feed.PerPage,
			PollInterval: cfg.Feed.PollInterval,
			IdleTTL:      cfg.Session.IdleTTL,
			Sweep:        cfg.Session.SweepInterval,
		},
	)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sessions.StartSweeper(sweepCtx)

	// HTTP 面
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	moduleCtx := &registry.ModuleContext{
		Router:   router,
		Sessions: sessions,
		Platform: client,
		Cache:    cacheService,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("module init failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("feed gateway listening",
			zap.String("port", cfg.Server.Port),
			zap.String("platform", cfg.Platform.BaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	// 优雅退出：先停新请求，再停清扫和所有会话的轮询
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
	stopSweeper()
	sessions.Shutdown()
	logger.Log.Info("bye")
}
