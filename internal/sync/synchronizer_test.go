package sync

import (
	"fmt"
	"testing"

	"github.com/FarahBaraket-03/FundChain/internal/fund"
	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestSyncer(t *testing.T) (*Synchronizer, *store.Store) {
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
	return NewSynchronizer(st), st
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedSnapshot(t *testing.T, s *Synchronizer, id uint64, active bool, collected string) {
	t.Helper()
	snap := &ledger.CampaignSnapshot{
		ID:              id,
		Owner:           "0xowner000000000000000000000000000000000001",
		Title:           "snapshot campaign",
		Description:     "from chain",
		Target:          dec("10"),
		Deadline:        2_000_000_000,
		AmountCollected: dec(collected),
		IsActive:        active,
	}
	if _, err := s.SyncSnapshot(snap); err != nil {
		t.Fatalf("failed to sync snapshot: %v", err)
	}
}

func TestSyncSnapshot(t *testing.T) {
	s, st := newTestSyncer(t)
	seedSnapshot(t, s, 7, true, "3")

	campaign, err := st.CampaignByChainID(7)
	if err != nil {
		t.Fatalf("campaign not projected: %v", err)
	}
	if campaign.Title != "snapshot campaign" || !campaign.AmountCollected.Equal(dec("3")) {
		t.Errorf("snapshot not fully applied: %+v", campaign)
	}

	// 重放同一份快照必须收敛到相同状态
	seedSnapshot(t, s, 7, true, "3")
	again, err := st.CampaignByChainID(7)
	if err != nil {
		t.Fatalf("campaign lost after replay: %v", err)
	}
	if again.ID != campaign.ID || !again.AmountCollected.Equal(dec("3")) {
		t.Errorf("snapshot replay changed state: %+v", again)
	}
}

func TestSyncDonation(t *testing.T) {
	s, st := newTestSyncer(t)
	seedSnapshot(t, s, 1, true, "0")

	ev := ledger.Event{
		Kind:        ledger.EventDonationMade,
		CampaignID:  1,
		Address:     "0xdonor000000000000000000000000000000000001",
		Amount:      dec("2"),
		TxHash:      "0xaaa1",
		BlockNumber: 5,
	}

	// 同一事件投递两次，最终状态与一次投递完全相同
	if err := s.SyncDonation(ev); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := s.SyncDonation(ev); err != nil {
		t.Fatalf("duplicate delivery must be a no-op, got %v", err)
	}

	campaign, err := st.CampaignByChainID(1)
	if err != nil {
		t.Fatalf("failed to load campaign: %v", err)
	}
	if !campaign.AmountCollected.Equal(dec("2")) {
		t.Errorf("amount_collected = %s, want 2", campaign.AmountCollected)
	}
	sum, err := st.SumDonations(1)
	if err != nil {
		t.Fatalf("SumDonations failed: %v", err)
	}
	if !sum.Equal(dec("2")) {
		t.Errorf("donation sum = %s, want one row worth 2", sum)
	}
}

func TestSyncWithdrawal(t *testing.T) {
	s, st := newTestSyncer(t)
	seedSnapshot(t, s, 1, true, "0")

	for i := 0; i < 3; i++ {
		if err := s.SyncDonation(ledger.Event{
			Kind:       ledger.EventDonationMade,
			CampaignID: 1,
			Address:    "0xdonor000000000000000000000000000000000001",
			Amount:     dec("4"),
			TxHash:     fmt.Sprintf("0xbbb%d", i),
		}); err != nil {
			t.Fatalf("donation failed: %v", err)
		}
	}

	ev := ledger.Event{
		Kind:       ledger.EventFundsWithdrawn,
		CampaignID: 1,
		Address:    "0xowner000000000000000000000000000000000001",
		Amount:     dec("5"),
		TxHash:     "0xccc1",
	}
	if err := s.SyncWithdrawal(ev); err != nil {
		t.Fatalf("withdrawal failed: %v", err)
	}
	if err := s.SyncWithdrawal(ev); err != nil {
		t.Fatalf("duplicate withdrawal must be a no-op, got %v", err)
	}

	campaign, err := st.CampaignByChainID(1)
	if err != nil {
		t.Fatalf("failed to load campaign: %v", err)
	}
	if !campaign.FundsWithdrawn.Equal(dec("5")) {
		t.Errorf("funds_withdrawn = %s, want 5", campaign.FundsWithdrawn)
	}
}

func TestSyncCancellation(t *testing.T) {
	t.Run("event path deactivates without eligibility check", func(t *testing.T) {
		s, st := newTestSyncer(t)
		seedSnapshot(t, s, 1, true, "3")

		if err := s.SyncCancellation(1, ""); err != nil {
			t.Fatalf("event cancellation failed: %v", err)
		}
		campaign, err := st.CampaignByChainID(1)
		if err != nil {
			t.Fatalf("failed to load campaign: %v", err)
		}
		if campaign.IsActive {
			t.Error("campaign should be inactive after cancellation event")
		}

		// 重复的取消事件是无操作
		if err := s.SyncCancellation(1, ""); err != nil {
			t.Fatalf("duplicate cancellation must be a no-op, got %v", err)
		}
	})

	t.Run("api path enforces owner check", func(t *testing.T) {
		s, st := newTestSyncer(t)
		seedSnapshot(t, s, 1, true, "3")

		err := s.SyncCancellation(1, "0xstranger0000000000000000000000000000001")
		if !fund.IsPrecondition(err) {
			t.Fatalf("expected precondition error, got %v", err)
		}
		campaign, loadErr := st.CampaignByChainID(1)
		if loadErr != nil {
			t.Fatalf("failed to load campaign: %v", loadErr)
		}
		if !campaign.IsActive {
			t.Error("rejected cancellation must not deactivate the campaign")
		}
	})

	t.Run("api path accepts the owner", func(t *testing.T) {
		s, st := newTestSyncer(t)
		seedSnapshot(t, s, 1, true, "3")

		if err := s.SyncCancellation(1, "0xOWNER000000000000000000000000000000000001"); err != nil {
			t.Fatalf("owner cancellation failed: %v", err)
		}
		campaign, err := st.CampaignByChainID(1)
		if err != nil {
			t.Fatalf("failed to load campaign: %v", err)
		}
		if campaign.IsActive {
			t.Error("campaign should be inactive")
		}
	})

	t.Run("unknown campaign surfaces not found", func(t *testing.T) {
		s, _ := newTestSyncer(t)
		if err := s.SyncCancellation(99, ""); err != store.ErrCampaignNotFound {
			t.Fatalf("expected ErrCampaignNotFound, got %v", err)
		}
	})
}
