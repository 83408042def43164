package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/kachmul2004/auraflowpos-sub004/common/entity"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/config"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/domains/repo/rpsync"
	lmstfyx "github.com/kachmul2004/auraflowpos-sub004/internal/app/infra/mq/lmstfy"
	redisx "github.com/kachmul2004/auraflowpos-sub004/internal/app/infra/persistence/redis"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/worker"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("config/worker.yaml")
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
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect mysql: %v", err)
	}
	if err := db.AutoMigrate(&entity.DeviceSettlement{}); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	// 4. 初始化 Lmstfy 与 Redis
	mqClient, err := lmstfyx.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		log.Fatalf("Failed to create lmstfy client: %v", err)
	}
	pubsub, err := redisx.NewPubSubClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer pubsub.Close()

	// 5. 组装并启动清算 Worker
	settlementRepo := rpsync.NewSettlementRepository(db)
	settlementWorker := worker.NewSettlementWorker(
		mqClient,
		settlementRepo,
		pubsub,
		cfg.Sync.SettleQueue,
		cfg.Sync.SettleCompleteChannel,
		zlog,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerErrChan := make(chan error, 1)
	go func() {
		workerErrChan <- settlementWorker.Run(ctx)
	}()

	// 6. 优雅停机处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Received shutdown signal, gracefully shutting down...")
		settlementWorker.Shutdown()
		select {
		case <-workerErrChan:
		case <-time.After(10 * time.Second):
			log.Println("Worker shutdown timed out")
		}
	case err := <-workerErrChan:
		if err != nil {
			log.Fatalf("Worker error: %v", err)
		}
	}

	log.Println("Application stopped")
}
