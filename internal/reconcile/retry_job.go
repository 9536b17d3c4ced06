package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/config"
	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	syncer "github.com/FarahBaraket-03/FundChain/internal/sync"
	"github.com/go-co-op/gocron/v2"
)

// 单轮处理的重试条目上限
const retryBatchSize = 100

// RetryJob 重试队列重放任务：按入队顺序重放失败的投影写入，
// 成功即出队，超过重试上限的条目保留并按漂移告警
type RetryJob struct {
	store  *store.Store
	syncer *syncer.Synchronizer
	chain  Ledger
	config *config.Config
}

// NewRetryJob 创建重试队列任务
func NewRetryJob(st *store.Store, sy *syncer.Synchronizer, chain Ledger, cfg *config.Config) *RetryJob {
	return &RetryJob{
		store:  st,
		syncer: sy,
		chain:  chain,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *RetryJob) GetName() string {
	return "sync_retry_replayer"
}

// GetSchedule 获取调度配置
func (j *RetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Reconcile.RetryInterval) * time.Second)
}

// Execute 执行任务
func (j *RetryJob) Execute() {
	entries, err := j.store.DueRetries(retryBatchSize)
	if err != nil {
		logger.Error("Failed to fetch retry entries: %v", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	logger.Info("Replaying %d retry entries", len(entries))
	for _, entry := range entries {
		if entry.Attempts >= j.config.Reconcile.MaxAttempts {
			logger.Error("Retry %d (kind %s, campaign %d) exhausted %d attempts, last error: %s",
				entry.ID, entry.Kind, entry.CampaignID, entry.Attempts, entry.LastError)
			continue
		}
		if err := j.replay(&entry); err != nil {
			logger.Warn("Retry %d (kind %s, campaign %d) failed: %v",
				entry.ID, entry.Kind, entry.CampaignID, err)
			if err := j.store.BumpRetry(entry.ID, err.Error()); err != nil {
				logger.Error("Failed to bump retry %d: %v", entry.ID, err)
			}
			continue
		}
		if err := j.store.ResolveRetry(entry.ID); err != nil {
			logger.Error("Failed to resolve retry %d: %v", entry.ID, err)
		}
	}
}

func (j *RetryJob) replay(entry *model.SyncRetry) error {
	switch entry.Kind {
	case model.RetryKindDonation:
		var ev ledger.Event
		if err := json.Unmarshal([]byte(entry.Payload), &ev); err != nil {
			return err
		}
		return j.syncer.SyncDonation(ev)
	case model.RetryKindWithdrawal:
		var ev ledger.Event
		if err := json.Unmarshal([]byte(entry.Payload), &ev); err != nil {
			return err
		}
		return j.syncer.SyncWithdrawal(ev)
	default:
		// 活动类条目不重放事件本身，直接拉最新快照覆盖
		snap, err := j.chain.GetCampaignSnapshot(context.Background(), entry.CampaignID)
		if err != nil {
			return err
		}
		_, err = j.syncer.SyncSnapshot(snap)
		return err
	}
}
