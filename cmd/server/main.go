package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawnshop/internal/config"
	"pawnshop/internal/handler"
	"pawnshop/internal/infrastructure/cache"
	"pawnshop/internal/infrastructure/database"
	"pawnshop/internal/infrastructure/lock"
	"pawnshop/internal/infrastructure/logger"
	"pawnshop/internal/infrastructure/mq"
	"pawnshop/internal/job"
	"pawnshop/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("服务异常退出", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	// 初始化 MySQL
	db, err := database.InitMySQL(&cfg.MySQL, zlog)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化 Redis
	redisClient, err := cache.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// 初始化 Kafka
	producer, err := mq.InitKafka(&cfg.Kafka)
	if err != nil {
		return err
	}
	publisher := mq.NewKafkaPublisher(producer)
	defer publisher.Close()

	contracts := service.NewContractService(db, cfg, zlog)
	auctions := service.NewAuctionService(db, cfg, zlog)
	reports := service.NewReportService(db, cfg)

	// 启动后台任务
	outboxSender := job.NewOutboxSender(db, publisher, cfg, zlog)
	go outboxSender.Start(ctx)

	sweepInterval := cfg.Business.OverdueSweepInterval()
	sweepLock := lock.NewSweepLock(redisClient, instanceID(), sweepInterval)
	sweepJob := job.NewOverdueSweepJob(contracts, sweepLock, sweepInterval, zlog)
	go sweepJob.Start(ctx)

	ready := func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer pingCancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			return fmt.Errorf("mysql: %w", err)
		}
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	// 设置路由
	gin.SetMode(gin.ReleaseMode)
	router := handler.SetupRouter(handler.NewHandler(contracts, auctions, reports, ready), zlog)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("服务启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		zlog.Info("正在关闭服务...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		return fmt.Errorf("服务启动失败: %w", err)
	}

	// 取消上下文，停止后台任务
	cancel()
	outboxSender.Stop()
	sweepJob.Stop()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("服务关闭异常", zap.Error(err))
	}

	zlog.Info("服务已关闭")
	return nil
}

// instanceID 标识持有逾期扫描锁的实例
func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
