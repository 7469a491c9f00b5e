// Package main 聊天上下文服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"svtr-chat-api/internal/application/conversation"
	"svtr-chat-api/internal/application/retrieval"
	"svtr-chat-api/internal/config"
	"svtr-chat-api/internal/domain/repository"
	"svtr-chat-api/internal/infrastructure/persistence/memory"
	"svtr-chat-api/internal/infrastructure/persistence/postgres"
	"svtr-chat-api/internal/infrastructure/persistence/redis"
	"svtr-chat-api/internal/interfaces/http/handler"
	"svtr-chat-api/internal/interfaces/http/middleware"
	"svtr-chat-api/internal/interfaces/http/router"
	"svtr-chat-api/pkg/logger"
	"svtr-chat-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting chat-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 知识库（必需依赖）
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to connect postgres", err)
	}
	defer func() {
		if err := pgClient.Close(); err != nil {
			log.Error("failed to close postgres", "error", err)
		}
	}()

	// Redis（可选依赖）：不可用时降级为进程内缓存
	var (
		redisClient *redis.Client
		kvStore     repository.KVStore
		limiter     middleware.RateLimiter
	)
	if cfg.Cache.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-memory store", "error", err)
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("failed to close redis", "error", err)
			}
		}()
		kvStore = redis.NewKVStore(redisClient)
		limiter = redis.NewRateLimiter(redisClient)
	} else {
		kvStore = memory.NewKVStore(cfg.Session.TTL, cfg.Session.SweepInterval)
	}

	// 应用装配
	knowledgeRepo := postgres.NewKnowledgeRepository(pgClient)
	resultCache := retrieval.NewResultCache(kvStore, cfg.Retrieval.CacheTTL)
	engine := retrieval.NewEngine(knowledgeRepo, resultCache, cfg.Retrieval)
	sessions := conversation.NewManager(kvStore, cfg.Session)

	// 后台清理过期会话
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sessions.RunSweeper(sweepCtx)

	r := router.New(cfg, router.Handlers{
		Chat:   handler.NewChatHandler(engine, sessions, cfg),
		Health: handler.NewHealthHandler(pgClient, redisClient),
	}, limiter)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
