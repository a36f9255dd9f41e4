package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yankey-ledger/internal/config"
	httpapi "yankey-ledger/internal/http"
	"yankey-ledger/internal/logger"
	"yankey-ledger/internal/repository"
	"yankey-ledger/internal/service"
	"yankey-ledger/internal/store"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "yankey-ledger")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// Redis（域名路由缓存，可选）
	var redisClient *redis.Client
	var kv store.KV
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
	}

	// 控制面数据库 + 商户分区注册表
	// DB 不可用时整体退到内存仓库（本地联测）
	var adminDB *sql.DB
	var merchantsRepo repository.MerchantsRepository
	var partitions repository.PartitionSource
	var registry *repository.TenantRegistry

	if cfg.DBEnabled {
		db, err := sql.Open("postgres", cfg.AdminDSN)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = db.PingContext(ctx)
			cancel()
			if err == nil {
				err = repository.EnsureSchema(context.Background(), db, repository.AdminSchema)
			}
		}
		if err != nil {
			log.Warn("DB enabled but admin database unavailable, falling back to in-memory repositories", zap.Error(err))
		} else {
			adminDB = db
			log.Info("admin database ready")
		}
	}

	if adminDB != nil {
		merchantsRepo = repository.NewPostgresMerchantsRepository(adminDB)
		registry = repository.NewTenantRegistry(cfg.TenantDSNTemplate, log)
		partitions = registry
	} else {
		merchantsRepo = repository.NewMemoryMerchantsRepo()
		partitions = repository.NewMemoryPartitions()
	}

	// 通知出口（可选）
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		notifier = service.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
	}

	// 服务层
	merchantService := service.NewMerchantService(merchantsRepo, partitions, kv, log)
	ledgerService := service.NewLedgerService(merchantsRepo, partitions, notifier, log)
	userService := service.NewUserService(partitions, ledgerService, log)
	operatorService := service.NewOperatorService(partitions, log)
	dashboardService := service.NewDashboardService(partitions, log)

	// HTTP 层
	router := httpapi.NewRouter(log)
	router.RegisterOfficeRoutes(httpapi.NewOfficeHandler(
		merchantService, operatorService, userService, ledgerService, dashboardService, log))
	router.RegisterOperatorRoutes(httpapi.NewOperatorHandler(
		merchantService, operatorService, userService, ledgerService, log))
	router.RegisterUserRoutes(httpapi.NewUserHandler(merchantService, userService, log))
	router.RegisterDoctorRoutes(httpapi.NewDoctorHandler(adminDB, redisClient, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if registry != nil {
		registry.Close()
	}
	if adminDB != nil {
		_ = adminDB.Close()
	}
}
