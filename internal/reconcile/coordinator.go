package reconcile

import (
	"context"

	"github.com/FarahBaraket-03/FundChain/internal/config"
	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	"github.com/FarahBaraket-03/FundChain/internal/sync"
	"github.com/go-co-op/gocron/v2"
)

// Ledger 对账任务依赖的链上读接口
type Ledger interface {
	GetCampaignCount(ctx context.Context) (uint64, error)
	GetCampaignSnapshot(ctx context.Context, id uint64) (*ledger.CampaignSnapshot, error)
}

// Coordinator 对账协调器：调度全量重同步、重试队列重放和漂移审计
type Coordinator struct {
	scheduler gocron.Scheduler
	store     *store.Store
	syncer    *sync.Synchronizer
	chain     Ledger
	config    *config.Config
}

// NewCoordinator 创建对账协调器
func NewCoordinator(st *store.Store, syncer *sync.Synchronizer, chain Ledger, cfg *config.Config) (*Coordinator, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		scheduler: s,
		store:     st,
		syncer:    syncer,
		chain:     chain,
		config:    cfg,
	}, nil
}

// Start 创建协调器、注册全部任务并启动调度器
func Start(st *store.Store, syncer *sync.Synchronizer, chain Ledger, cfg *config.Config) (*Coordinator, error) {
	coordinator, err := NewCoordinator(st, syncer, chain, cfg)
	if err != nil {
		return nil, err
	}

	coordinator.RegisterJobs()
	coordinator.scheduler.Start()

	logger.Info("Reconciliation coordinator started")
	return coordinator, nil
}

// RegisterJobs 注册所有对账任务
func (c *Coordinator) RegisterJobs() {
	c.register(NewResyncJob(c.store, c.syncer, c.chain, c.config))
	c.register(NewRetryJob(c.store, c.syncer, c.chain, c.config))
	c.register(NewAuditJob(c.store, c.config))
}

// Job 对账任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

func (c *Coordinator) register(job Job) {
	_, err := c.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止调度器
func (c *Coordinator) Stop() {
	if err := c.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown reconciliation scheduler: %v", err)
	}
	logger.Info("Reconciliation coordinator stopped")
}
