package sync

import (
	"context"

	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/FarahBaraket-03/FundChain/internal/store"
)

// LedgerSource 消费端依赖的链上数据来源
type LedgerSource interface {
	Subscribe(ctx context.Context, kind ledger.EventKind, fromBlock uint64) (<-chan ledger.Event, error)
	GetCampaignSnapshot(ctx context.Context, id uint64) (*ledger.CampaignSnapshot, error)
	GetStartBlock() uint64
}

// Consumer 消费链上事件流并交给投影器落库。
// 每种事件各占一个协程，单条事件失败不阻断后续事件：
// 可重放的失败进重试队列，由对账任务兜底。
type Consumer struct {
	source LedgerSource
	syncer *Synchronizer
	store  *store.Store

	ctx    context.Context
	cancel context.CancelFunc
}

func NewConsumer(source LedgerSource, syncer *Synchronizer, st *store.Store) *Consumer {
	return &Consumer{
		source: source,
		syncer: syncer,
		store:  st,
	}
}

// Start 订阅全部事件种类并启动消费协程
func (c *Consumer) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())
	fromBlock := c.source.GetStartBlock()

	kinds := []ledger.EventKind{
		ledger.EventCampaignCreated,
		ledger.EventDonationMade,
		ledger.EventFundsWithdrawn,
		ledger.EventCampaignCancelled,
	}
	for _, kind := range kinds {
		ch, err := c.source.Subscribe(c.ctx, kind, fromBlock)
		if err != nil {
			c.cancel()
			return err
		}
		go c.consume(kind, ch)
	}

	logger.Info("Event consumer started from block %d", fromBlock)
	return nil
}

// Stop 停止全部消费协程
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	logger.Info("Event consumer stopped")
}

func (c *Consumer) consume(kind ledger.EventKind, ch <-chan ledger.Event) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := c.dispatch(ev); err != nil {
				logger.Error("Failed to apply %s event for campaign %d (tx %s): %v",
					kind, ev.CampaignID, ev.TxHash, err)
				c.enqueue(ev)
			}
		}
	}
}

func (c *Consumer) dispatch(ev ledger.Event) error {
	switch ev.Kind {
	case ledger.EventCampaignCreated:
		// 事件只携带ID和发起人，元数据走一次快照拉取
		snap, err := c.source.GetCampaignSnapshot(c.ctx, ev.CampaignID)
		if err != nil {
			return err
		}
		_, err = c.syncer.SyncSnapshot(snap)
		return err
	case ledger.EventDonationMade:
		return c.syncer.SyncDonation(ev)
	case ledger.EventFundsWithdrawn:
		return c.syncer.SyncWithdrawal(ev)
	case ledger.EventCampaignCancelled:
		return c.syncer.SyncCancellation(ev.CampaignID, "")
	default:
		logger.Warn("Unknown event kind: %s", ev.Kind)
		return nil
	}
}

// enqueue 把失败的事件写入重试队列；入队本身失败只能告警，
// 全量重同步任务是最终兜底。
func (c *Consumer) enqueue(ev ledger.Event) {
	kind := retryKindOf(ev.Kind)
	if err := c.store.EnqueueRetry(kind, ev.CampaignID, ev); err != nil {
		logger.Error("Failed to enqueue retry for campaign %d (tx %s): %v",
			ev.CampaignID, ev.TxHash, err)
	}
}

func retryKindOf(kind ledger.EventKind) string {
	switch kind {
	case ledger.EventDonationMade:
		return model.RetryKindDonation
	case ledger.EventFundsWithdrawn:
		return model.RetryKindWithdrawal
	default:
		return model.RetryKindCampaign
	}
}
