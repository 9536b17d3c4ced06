package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/config"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	syncer "github.com/FarahBaraket-03/FundChain/internal/sync"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
)

// ResyncJob 全量重同步任务：拉取链上全部活动快照覆盖本地缓存，
// 对漏掉的事件兜底
type ResyncJob struct {
	store  *store.Store
	syncer *syncer.Synchronizer
	chain  Ledger
	config *config.Config
}

// NewResyncJob 创建全量重同步任务
func NewResyncJob(st *store.Store, sy *syncer.Synchronizer, chain Ledger, cfg *config.Config) *ResyncJob {
	return &ResyncJob{
		store:  st,
		syncer: sy,
		chain:  chain,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *ResyncJob) GetName() string {
	return "campaign_resync"
}

// GetSchedule 获取调度配置
func (j *ResyncJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Reconcile.ResyncInterval) * time.Second)
}

// Execute 执行任务
func (j *ResyncJob) Execute() {
	logger.Info("Starting campaign resync")
	ctx := context.Background()

	count, err := j.chain.GetCampaignCount(ctx)
	if err != nil {
		logger.Error("Failed to fetch campaign count: %v", err)
		return
	}
	if count == 0 {
		return
	}

	workers := j.config.Reconcile.Workers
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		logger.Error("Failed to create resync worker pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	synced := 0
	var mu sync.Mutex

	for id := uint64(0); id < count; id++ {
		campaignID := id
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := j.resyncOne(ctx, campaignID); err != nil {
				logger.Error("Failed to resync campaign %d: %v", campaignID, err)
				return
			}
			mu.Lock()
			synced++
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit resync task for campaign %d: %v", campaignID, err)
		}
	}
	wg.Wait()

	logger.Info("Campaign resync completed: %d/%d synced", synced, count)
}

func (j *ResyncJob) resyncOne(ctx context.Context, id uint64) error {
	snap, err := j.chain.GetCampaignSnapshot(ctx, id)
	if err != nil {
		return err
	}
	_, err = j.syncer.SyncSnapshot(snap)
	return err
}
