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

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/kachmul2004/auraflowpos-sub004/common/entity"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/config"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/domains/repo/rpsync"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/domains/services/svsync"
	lmstfyx "github.com/kachmul2004/auraflowpos-sub004/internal/app/infra/mq/lmstfy"
	redisx "github.com/kachmul2004/auraflowpos-sub004/internal/app/infra/persistence/redis"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
	synchandler "github.com/kachmul2004/auraflowpos-sub004/internal/app/server/handlers/sync"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/server/routers"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化日志
	zlog, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	// 3. 初始化 MySQL
	// TranslateError 必须开启：对账引擎依赖 gorm.ErrDuplicatedKey 识别并发插入
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect mysql: %v", err)
	}
	if err := db.AutoMigrate(&entity.SyncOrder{}, &entity.SyncTransaction{}, &entity.DeviceSettlement{}); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	// 4. 初始化 Redis Pub/Sub（同步变更事件）
	pubsub, err := redisx.NewPubSubClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer pubsub.Close()
	eventPublisher := redisx.NewSyncEventPublisher(pubsub, cfg.Sync.EventChannel)

	// 5. 初始化 Lmstfy（清算任务队列）
	mqClient, err := lmstfyx.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		log.Fatalf("Failed to create lmstfy client: %v", err)
	}
	settlementQueue := lmstfyx.NewSettlementPublisher(mqClient, cfg.Sync.SettleQueue)

	// 6. 组装同步服务与路由
	syncRepo := rpsync.NewSyncRepository(db)
	syncService := svsync.NewService(syncRepo, eventPublisher, settlementQueue, zlog)
	syncHandler := synchandler.NewSyncHandler(syncService, zlog)
	engine := routers.SetupRoutes(syncHandler, zlog)

	// 7. 启动 HTTP Server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// 8. 优雅停机处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Received shutdown signal, gracefully shutting down...")
		gracefulShutdown(server)
	case err := <-serverErrChan:
		log.Fatalf("HTTP server error: %v", err)
	}

	log.Println("Application stopped")
}

// gracefulShutdown 优雅停机
func gracefulShutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped gracefully")
	}
}
