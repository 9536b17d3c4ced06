package main

import (
	"log"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/config"
	"github.com/FarahBaraket-03/FundChain/internal/database"
	"github.com/FarahBaraket-03/FundChain/internal/fund"
	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/reconcile"
	"github.com/FarahBaraket-03/FundChain/internal/router"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	"github.com/FarahBaraket-03/FundChain/internal/sync"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := initLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化链上客户端
	chainClient, err := ledger.NewClient(cfg.Chain, cfg.Sync)
	if err != nil {
		logger.Fatal("Failed to initialize ledger client: %v", err)
	}
	defer chainClient.Close()

	st := store.New(db)
	syncer := sync.NewSynchronizer(st)
	checker := fund.NewChecker(st, chainClient, time.Duration(cfg.Sync.ChainTimeout)*time.Second)

	// 启动事件消费
	consumer := sync.NewConsumer(chainClient, syncer, st)
	if err := consumer.Start(); err != nil {
		logger.Fatal("Failed to start event consumer: %v", err)
	}
	defer consumer.Stop()

	// 启动对账任务
	coordinator, err := reconcile.Start(st, syncer, chainClient, cfg)
	if err != nil {
		logger.Fatal("Failed to start reconciliation coordinator: %v", err)
	}
	defer coordinator.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由并启动服务器
	r := router.Setup(st, syncer, checker)
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

func initLogger(cfg config.LogConfig) error {
	level := logger.ParseLogLevel(cfg.Level)

	var l *logger.Logger
	var err error
	if cfg.Output == "file" && cfg.File != "" {
		l, err = logger.NewWithFileRotation(level, cfg.File)
	} else {
		l, err = logger.New(level)
	}
	if err != nil {
		return err
	}
	logger.SetDefaultLogger(l)
	return nil
}
