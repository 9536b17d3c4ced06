package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
)

type fakeSource struct {
	channels  map[ledger.EventKind]chan ledger.Event
	snapshots map[uint64]*ledger.CampaignSnapshot
}

func newFakeSource() *fakeSource {
	f := &fakeSource{
		channels:  make(map[ledger.EventKind]chan ledger.Event),
		snapshots: make(map[uint64]*ledger.CampaignSnapshot),
	}
	for _, kind := range []ledger.EventKind{
		ledger.EventCampaignCreated,
		ledger.EventDonationMade,
		ledger.EventFundsWithdrawn,
		ledger.EventCampaignCancelled,
	} {
		f.channels[kind] = make(chan ledger.Event, 16)
	}
	return f
}

func (f *fakeSource) Subscribe(ctx context.Context, kind ledger.EventKind, fromBlock uint64) (<-chan ledger.Event, error) {
	return f.channels[kind], nil
}

func (f *fakeSource) GetCampaignSnapshot(ctx context.Context, id uint64) (*ledger.CampaignSnapshot, error) {
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("no campaign %d", id)
	}
	return snap, nil
}

func (f *fakeSource) GetStartBlock() uint64 { return 0 }

// waitFor 轮询直到条件成立或超时
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConsumerSkipsFailedEvents(t *testing.T) {
	syncer, st := newTestSyncer(t)
	seedSnapshot(t, syncer, 1, true, "0")

	source := newFakeSource()
	consumer := NewConsumer(source, syncer, st)
	if err := consumer.Start(); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}
	defer consumer.Stop()

	// 第一条事件指向不存在的活动，必然失败；第二条正常。
	// 失败事件只入重试队列，不得中断后续消费。
	source.channels[ledger.EventDonationMade] <- ledger.Event{
		Kind:       ledger.EventDonationMade,
		CampaignID: 99,
		Address:    "0xdonor000000000000000000000000000000000001",
		Amount:     dec("1"),
		TxHash:     "0xbad1",
	}
	source.channels[ledger.EventDonationMade] <- ledger.Event{
		Kind:       ledger.EventDonationMade,
		CampaignID: 1,
		Address:    "0xdonor000000000000000000000000000000000001",
		Amount:     dec("2"),
		TxHash:     "0xgood1",
	}

	waitFor(t, "good event to be applied", func() bool {
		campaign, err := st.CampaignByChainID(1)
		return err == nil && campaign.AmountCollected.Equal(dec("2"))
	})

	entries, err := st.DueRetries(10)
	if err != nil {
		t.Fatalf("DueRetries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 retry entry for the failed event, got %d", len(entries))
	}
	if entries[0].Kind != model.RetryKindDonation || entries[0].CampaignID != 99 {
		t.Errorf("unexpected retry entry: kind=%s campaign=%d", entries[0].Kind, entries[0].CampaignID)
	}
}

func TestConsumerProjectsCreationViaSnapshot(t *testing.T) {
	syncer, st := newTestSyncer(t)

	source := newFakeSource()
	source.snapshots[5] = &ledger.CampaignSnapshot{
		ID:              5,
		Owner:           "0xowner000000000000000000000000000000000001",
		Title:           "created on chain",
		Target:          dec("10"),
		Deadline:        2_000_000_000,
		AmountCollected: dec("0"),
		IsActive:        true,
	}

	consumer := NewConsumer(source, syncer, st)
	if err := consumer.Start(); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}
	defer consumer.Stop()

	source.channels[ledger.EventCampaignCreated] <- ledger.Event{
		Kind:       ledger.EventCampaignCreated,
		CampaignID: 5,
		Address:    "0xowner000000000000000000000000000000000001",
		TxHash:     "0xcreate1",
	}

	waitFor(t, "creation event to be projected", func() bool {
		campaign, err := st.CampaignByChainID(5)
		return err == nil && campaign.Title == "created on chain"
	})
}
