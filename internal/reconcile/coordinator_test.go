package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/FarahBaraket-03/FundChain/internal/config"
	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	syncer "github.com/FarahBaraket-03/FundChain/internal/sync"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeLedger struct {
	snapshots map[uint64]*ledger.CampaignSnapshot
	countErr  error
	snapErr   map[uint64]error
}

func (f *fakeLedger) GetCampaignCount(ctx context.Context) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return uint64(len(f.snapshots)), nil
}

func (f *fakeLedger) GetCampaignSnapshot(ctx context.Context, id uint64) (*ledger.CampaignSnapshot, error) {
	if err, ok := f.snapErr[id]; ok {
		return nil, err
	}
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("no campaign %d", id)
	}
	return snap, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestDeps(t *testing.T) (*store.Store, *syncer.Synchronizer, *config.Config) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&model.Campaign{},
		&model.Category{},
		&model.Donation{},
		&model.Withdrawal{},
		&model.SyncRetry{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	st := store.New(db)
	cfg := &config.Config{
		Reconcile: config.ReconcileConfig{
			ResyncInterval: 600,
			RetryInterval:  60,
			AuditInterval:  300,
			Workers:        4,
			MaxAttempts:    3,
		},
	}
	return st, syncer.NewSynchronizer(st), cfg
}

func snapshot(id uint64, collected string) *ledger.CampaignSnapshot {
	return &ledger.CampaignSnapshot{
		ID:              id,
		Owner:           "0xowner000000000000000000000000000000000001",
		Title:           fmt.Sprintf("campaign %d", id),
		Target:          dec("10"),
		Deadline:        2_000_000_000,
		AmountCollected: dec(collected),
		IsActive:        true,
	}
}

func TestResyncJob(t *testing.T) {
	st, sy, cfg := newTestDeps(t)
	chain := &fakeLedger{
		snapshots: map[uint64]*ledger.CampaignSnapshot{
			0: snapshot(0, "1"),
			1: snapshot(1, "2"),
			2: snapshot(2, "3"),
		},
	}

	NewResyncJob(st, sy, chain, cfg).Execute()

	ids, err := st.CampaignIDs()
	if err != nil {
		t.Fatalf("CampaignIDs failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 campaigns after resync, got %d", len(ids))
	}
	campaign, err := st.CampaignByChainID(2)
	if err != nil {
		t.Fatalf("failed to load campaign: %v", err)
	}
	if !campaign.AmountCollected.Equal(dec("3")) {
		t.Errorf("amount_collected = %s, want 3", campaign.AmountCollected)
	}

	// 单个活动拉取失败不阻断其余活动
	chain.snapErr = map[uint64]error{1: fmt.Errorf("rpc down")}
	chain.snapshots[0] = snapshot(0, "9")
	NewResyncJob(st, sy, chain, cfg).Execute()
	updated, err := st.CampaignByChainID(0)
	if err != nil {
		t.Fatalf("failed to load campaign: %v", err)
	}
	if !updated.AmountCollected.Equal(dec("9")) {
		t.Errorf("resync skipped healthy campaign: amount = %s", updated.AmountCollected)
	}
}

func TestRetryJob(t *testing.T) {
	t.Run("successful replay drains the queue", func(t *testing.T) {
		st, sy, cfg := newTestDeps(t)
		chain := &fakeLedger{snapshots: map[uint64]*ledger.CampaignSnapshot{1: snapshot(1, "0")}}

		// 先让活动存在，事件重放才能命中
		if _, err := sy.SyncSnapshot(snapshot(1, "0")); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		ev := ledger.Event{
			Kind:        ledger.EventDonationMade,
			CampaignID:  1,
			Address:     "0xdonor000000000000000000000000000000000001",
			Amount:      dec("2"),
			TxHash:      "0xaaa1",
			BlockNumber: 5,
		}
		if err := st.EnqueueRetry(model.RetryKindDonation, 1, ev); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}

		NewRetryJob(st, sy, chain, cfg).Execute()

		remaining, err := st.DueRetries(10)
		if err != nil {
			t.Fatalf("DueRetries failed: %v", err)
		}
		if len(remaining) != 0 {
			t.Fatalf("queue should be drained, %d entries left", len(remaining))
		}
		campaign, err := st.CampaignByChainID(1)
		if err != nil {
			t.Fatalf("failed to load campaign: %v", err)
		}
		if !campaign.AmountCollected.Equal(dec("2")) {
			t.Errorf("replayed donation not applied: amount = %s", campaign.AmountCollected)
		}
	})

	t.Run("failed replay bumps attempts and keeps the entry", func(t *testing.T) {
		st, sy, cfg := newTestDeps(t)
		chain := &fakeLedger{snapshots: map[uint64]*ledger.CampaignSnapshot{}}

		// 活动不存在，捐款重放必然失败
		ev := ledger.Event{Kind: ledger.EventDonationMade, CampaignID: 9, Amount: dec("1"), TxHash: "0xbbb1", Address: "0xdonor000000000000000000000000000000000001"}
		if err := st.EnqueueRetry(model.RetryKindDonation, 9, ev); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}

		NewRetryJob(st, sy, chain, cfg).Execute()

		entries, err := st.DueRetries(10)
		if err != nil {
			t.Fatalf("DueRetries failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("entry should remain, got %d", len(entries))
		}
		if entries[0].Attempts != 1 || entries[0].LastError == "" {
			t.Errorf("failure not recorded: attempts=%d lastError=%q", entries[0].Attempts, entries[0].LastError)
		}
	})

	t.Run("campaign entry replays via fresh snapshot", func(t *testing.T) {
		st, sy, cfg := newTestDeps(t)
		chain := &fakeLedger{snapshots: map[uint64]*ledger.CampaignSnapshot{3: snapshot(3, "7")}}

		if err := st.EnqueueRetry(model.RetryKindCampaign, 3, nil); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}

		NewRetryJob(st, sy, chain, cfg).Execute()

		campaign, err := st.CampaignByChainID(3)
		if err != nil {
			t.Fatalf("snapshot replay did not create campaign: %v", err)
		}
		if !campaign.AmountCollected.Equal(dec("7")) {
			t.Errorf("amount_collected = %s, want 7", campaign.AmountCollected)
		}
	})
}

func TestAuditJob(t *testing.T) {
	st, sy, cfg := newTestDeps(t)
	job := NewAuditJob(st, cfg)

	// 干净的活动：聚合列与明细一致
	if _, err := sy.SyncSnapshot(snapshot(1, "0")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := sy.SyncDonation(ledger.Event{
		Kind:       ledger.EventDonationMade,
		CampaignID: 1,
		Address:    "0xdonor000000000000000000000000000000000001",
		Amount:     dec("2"),
		TxHash:     "0xaaa1",
	}); err != nil {
		t.Fatalf("donation failed: %v", err)
	}
	if job.auditOne(1) {
		t.Error("consistent campaign flagged as drifted")
	}

	// 漂移的活动：聚合列与捐款明细脱节
	if _, err := sy.SyncSnapshot(snapshot(2, "5")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if !job.auditOne(2) {
		t.Error("campaign with aggregate/detail mismatch not flagged")
	}
}
