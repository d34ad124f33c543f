package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-coder/internal/config"
	"github.com/ashwinyue/next-coder/internal/database"
	"github.com/ashwinyue/next-coder/internal/handler"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/repository"
	"github.com/ashwinyue/next-coder/internal/router"
	"github.com/ashwinyue/next-coder/internal/service"
	"github.com/ashwinyue/next-coder/internal/service/callback"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.New(cfg)
	if err != nil {
		zlog.Fatal("failed to init database", "error", err)
	}
	defer db.Close()

	zlog.Info("database connected", "driver", cfg.Database.Driver)

	// 初始化 Redis，未开启时对话记忆只保存在进程内
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			zlog.Warn("redis unreachable, chat memory mirror disabled", "error", err)
			redisClient = nil
		}
		cancel()
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	services, err := service.NewServices(repos, cfg, redisClient, zlog)
	if err != nil {
		zlog.Fatal("failed to init services", "error", err)
	}
	callback.SetupGlobalCallbacks(zlog, cfg.App.Debug)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go services.Generators.RunJanitor(ctx, time.Minute)

	handlers := handler.NewHandlers(services, zlog)

	// 初始化路由
	r := router.SetupRouter(handlers, services.User, zlog)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		zlog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", "error", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	stop()

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", "error", err)
	}

	zlog.Info("server exited")
}
