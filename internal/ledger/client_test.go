package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

func TestWeiConversion(t *testing.T) {
	t.Run("one ether round trips", func(t *testing.T) {
		wei, _ := new(big.Int).SetString("1000000000000000000", 10)
		d := WeiToDecimal(wei)
		if !d.Equal(decimal.NewFromInt(1)) {
			t.Errorf("WeiToDecimal(1e18) = %s, want 1", d)
		}
		if DecimalToWei(d).Cmp(wei) != 0 {
			t.Errorf("DecimalToWei(1) = %s, want %s", DecimalToWei(d), wei)
		}
	})

	t.Run("sub-unit amounts keep full precision", func(t *testing.T) {
		wei := big.NewInt(1) // 最小基础单位
		d := WeiToDecimal(wei)
		want, _ := decimal.NewFromString("0.000000000000000001")
		if !d.Equal(want) {
			t.Errorf("WeiToDecimal(1) = %s, want %s", d, want)
		}
	})

	t.Run("nil wei is zero", func(t *testing.T) {
		if !WeiToDecimal(nil).IsZero() {
			t.Error("WeiToDecimal(nil) should be zero")
		}
	})
}

func TestClassify(t *testing.T) {
	t.Run("revert with reason is preserved verbatim", func(t *testing.T) {
		err := classify(errors.New("execution reverted: Goal already reached"))
		var re *RevertError
		if !errors.As(err, &re) {
			t.Fatalf("expected RevertError, got %T", err)
		}
		if re.Reason != "Goal already reached" {
			t.Errorf("reason = %q, want contract reason preserved", re.Reason)
		}
	})

	t.Run("transient rpc error passes through", func(t *testing.T) {
		orig := errors.New("connection refused")
		if got := classify(orig); got != orig {
			t.Errorf("transient error should pass through, got %v", got)
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if classify(nil) != nil {
			t.Error("classify(nil) should be nil")
		}
	})
}

func TestWithRetry(t *testing.T) {
	t.Run("exhaustion returns without a trailing backoff sleep", func(t *testing.T) {
		c := &Client{retryAttempts: 3, retryBackoff: 40 * time.Millisecond}

		calls := 0
		start := time.Now()
		err := c.withRetry(context.Background(), "test", func() error {
			calls++
			return errors.New("connection refused")
		})
		elapsed := time.Since(start)

		if !errors.Is(err, ErrChainUnavailable) {
			t.Fatalf("expected ErrChainUnavailable, got %v", err)
		}
		if calls != 3 {
			t.Errorf("fn called %d times, want 3", calls)
		}
		// 只应等待前两次失败后的退避（40+80ms），最后一次失败直接返回
		if elapsed >= 160*time.Millisecond {
			t.Errorf("withRetry took %s, should not sleep after the final attempt", elapsed)
		}
	})

	t.Run("revert is returned immediately without retrying", func(t *testing.T) {
		c := &Client{retryAttempts: 3, retryBackoff: time.Millisecond}

		calls := 0
		err := c.withRetry(context.Background(), "test", func() error {
			calls++
			return errors.New("execution reverted: Goal already reached")
		})
		if !IsRevert(err) {
			t.Fatalf("expected RevertError, got %v", err)
		}
		if calls != 1 {
			t.Errorf("fn called %d times, want 1", calls)
		}
	})
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		t.Fatalf("failed to parse ABI: %v", err)
	}
	return &Client{contractABI: parsed}
}

func TestDecodeEvent(t *testing.T) {
	c := newTestClient(t)

	campaignTopic := common.BigToHash(big.NewInt(7))
	donor := common.HexToAddress("0xAbCd000000000000000000000000000000000001")
	txHash := common.HexToHash("0x1234")

	t.Run("donation event carries id, donor and amount", func(t *testing.T) {
		event := c.contractABI.Events[string(EventDonationMade)]
		amount, _ := new(big.Int).SetString("2500000000000000000", 10) // 2.5
		data, err := event.Inputs.NonIndexed().Pack(amount)
		if err != nil {
			t.Fatalf("failed to pack event data: %v", err)
		}

		ev, err := c.decodeEvent(EventDonationMade, types.Log{
			Topics:      []common.Hash{event.ID, campaignTopic, common.BytesToHash(donor.Bytes())},
			Data:        data,
			TxHash:      txHash,
			BlockNumber: 100,
		})
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if ev.CampaignID != 7 {
			t.Errorf("campaign id = %d, want 7", ev.CampaignID)
		}
		if ev.Address != strings.ToLower(donor.Hex()) {
			t.Errorf("address = %s, want lowercase donor", ev.Address)
		}
		if want, _ := decimal.NewFromString("2.5"); !ev.Amount.Equal(want) {
			t.Errorf("amount = %s, want 2.5", ev.Amount)
		}
		if ev.BlockNumber != 100 || ev.TxHash != txHash.Hex() {
			t.Errorf("log metadata not carried over: %+v", ev)
		}
	})

	t.Run("cancellation event needs only the campaign id", func(t *testing.T) {
		event := c.contractABI.Events[string(EventCampaignCancelled)]
		ev, err := c.decodeEvent(EventCampaignCancelled, types.Log{
			Topics: []common.Hash{event.ID, campaignTopic},
			TxHash: txHash,
		})
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if ev.CampaignID != 7 || ev.Address != "" || !ev.Amount.IsZero() {
			t.Errorf("unexpected cancellation event: %+v", ev)
		}
	})

	t.Run("missing topics are rejected", func(t *testing.T) {
		event := c.contractABI.Events[string(EventDonationMade)]
		if _, err := c.decodeEvent(EventDonationMade, types.Log{
			Topics: []common.Hash{event.ID, campaignTopic},
		}); err == nil {
			t.Fatal("expected error for missing donor topic")
		}
	})
}
