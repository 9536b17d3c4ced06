package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// EventKind 事件种类
type EventKind string

const (
	EventCampaignCreated   EventKind = "CampaignCreated"
	EventDonationMade      EventKind = "DonationMade"
	EventFundsWithdrawn    EventKind = "FundsWithdrawn"
	EventCampaignCancelled EventKind = "CampaignCancelled"
)

// Event 解析后的链上事件
type Event struct {
	Kind        EventKind       `json:"kind"`
	CampaignID  uint64          `json:"campaign_id"`
	Address     string          `json:"address"` // 捐款人/收款人/发起人（小写）
	Amount      decimal.Decimal `json:"amount"`
	TxHash      string          `json:"tx_hash"`
	BlockNumber uint64          `json:"block_number"`
}

// 单次FilterLogs的最大区块跨度，避免RPC超限
const maxFilterRange = 5000

// Subscribe 订阅某一种类的事件，从 fromBlock 开始投递。
//
// 每个种类一条轮询循环，同种类事件按区块顺序投递；投递语义为至少一次，
// 失败的区块段下个周期重查，去重交给下游的幂等键。
func (c *Client) Subscribe(ctx context.Context, kind EventKind, fromBlock uint64) (<-chan Event, error) {
	abiEvent, ok := c.contractABI.Events[string(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}

	ch := make(chan Event, c.buffer)

	go func() {
		defer close(ch)

		next := fromBlock
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("Subscription for %s stopped", kind)
				return
			case <-ticker.C:
				head, err := c.eth.BlockNumber(ctx)
				if err != nil {
					logger.Warn("Failed to get head block for %s subscription: %v", kind, err)
					continue
				}
				// 只处理已确认的区块
				if head < c.confirmations {
					continue
				}
				safe := head - c.confirmations
				if safe < next {
					continue
				}

				to := safe
				if to-next >= maxFilterRange {
					to = next + maxFilterRange - 1
				}

				logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
					FromBlock: new(big.Int).SetUint64(next),
					ToBlock:   new(big.Int).SetUint64(to),
					Addresses: []common.Address{c.contractAddr},
					Topics:    [][]common.Hash{{abiEvent.ID}},
				})
				if err != nil {
					logger.Warn("Failed to filter %s logs for blocks %d-%d: %v", kind, next, to, err)
					continue
				}

				for _, l := range logs {
					ev, err := c.decodeEvent(kind, l)
					if err != nil {
						// 单个异常事件只记录，不中断订阅
						logger.Error("Failed to decode %s event in tx %s: %v", kind, l.TxHash.Hex(), err)
						continue
					}
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					}
				}

				next = to + 1
			}
		}
	}()

	return ch, nil
}

// decodeEvent 将原始日志解析为类型化事件
func (c *Client) decodeEvent(kind EventKind, l types.Log) (Event, error) {
	if len(l.Topics) < 2 {
		return Event{}, fmt.Errorf("insufficient topics: %d", len(l.Topics))
	}

	ev := Event{
		Kind:        kind,
		CampaignID:  new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
		TxHash:      l.TxHash.Hex(),
		BlockNumber: l.BlockNumber,
	}

	switch kind {
	case EventDonationMade, EventFundsWithdrawn, EventCampaignCreated:
		if len(l.Topics) < 3 {
			return Event{}, fmt.Errorf("insufficient topics for %s: %d", kind, len(l.Topics))
		}
		ev.Address = strings.ToLower(common.BytesToAddress(l.Topics[2].Bytes()).Hex())
	}

	switch kind {
	case EventDonationMade, EventFundsWithdrawn:
		vals, err := c.contractABI.Unpack(string(kind), l.Data)
		if err != nil {
			return Event{}, fmt.Errorf("failed to unpack %s data: %w", kind, err)
		}
		ev.Amount = WeiToDecimal(vals[0].(*big.Int))
	}

	return ev, nil
}
