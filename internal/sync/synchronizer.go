package sync

import (
	"errors"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/fund"
	"github.com/FarahBaraket-03/FundChain/internal/ledger"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/FarahBaraket-03/FundChain/internal/store"
)

// Synchronizer 把链上事件与快照投影到本地缓存库。
// 所有写入都是幂等的：重复事件被吸收，不产生副作用。
type Synchronizer struct {
	store *store.Store
}

func NewSynchronizer(st *store.Store) *Synchronizer {
	return &Synchronizer{store: st}
}

// SyncCampaign 以部分更新语义写入活动元数据。
// 缺失字段保持缓存现值，不会被置空。
func (s *Synchronizer) SyncCampaign(u *store.CampaignUpsert) (*model.Campaign, error) {
	campaign, created, err := s.store.ApplyCampaignUpsert(u)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("Campaign %d created in cache, owner: %s", u.BlockchainID, u.OwnerAddress)
	} else {
		logger.Info("Campaign %d updated in cache", u.BlockchainID)
	}
	return campaign, nil
}

// SyncSnapshot 把一份完整的链上快照投影为活动行，链上为准
func (s *Synchronizer) SyncSnapshot(snap *ledger.CampaignSnapshot) (*model.Campaign, error) {
	u := &store.CampaignUpsert{
		BlockchainID:    snap.ID,
		OwnerAddress:    snap.Owner,
		Title:           &snap.Title,
		Description:     &snap.Description,
		ImageURL:        &snap.Image,
		TargetAmount:    &snap.Target,
		Deadline:        &snap.Deadline,
		AmountCollected: &snap.AmountCollected,
		FundsWithdrawn:  &snap.FundsWithdrawn,
		IsActive:        &snap.IsActive,
		IsVerified:      &snap.IsVerified,
	}
	return s.SyncCampaign(u)
}

// SyncDonation 投影一条捐款事件。重复的交易哈希是正常情况
// （至少一次投递），记日志后静默吸收。
func (s *Synchronizer) SyncDonation(ev ledger.Event) error {
	donation := &model.Donation{
		CampaignID:      ev.CampaignID,
		DonorAddress:    ev.Address,
		Amount:          ev.Amount,
		TransactionHash: ev.TxHash,
		BlockNumber:     ev.BlockNumber,
	}
	err := s.store.InsertDonation(donation)
	if errors.Is(err, store.ErrDuplicateTransaction) {
		logger.Debug("Donation %s already applied, skipping", ev.TxHash)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Donation applied: campaign %d, donor %s, amount %s, tx %s",
		ev.CampaignID, ev.Address, ev.Amount, ev.TxHash)
	return nil
}

// SyncWithdrawal 投影一条提款事件，幂等语义与捐款一致
func (s *Synchronizer) SyncWithdrawal(ev ledger.Event) error {
	withdrawal := &model.Withdrawal{
		CampaignID:       ev.CampaignID,
		RecipientAddress: ev.Address,
		Amount:           ev.Amount,
		TransactionHash:  ev.TxHash,
		BlockNumber:      ev.BlockNumber,
	}
	err := s.store.InsertWithdrawal(withdrawal)
	if errors.Is(err, store.ErrDuplicateTransaction) {
		logger.Debug("Withdrawal %s already applied, skipping", ev.TxHash)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Withdrawal applied: campaign %d, recipient %s, amount %s, tx %s",
		ev.CampaignID, ev.Address, ev.Amount, ev.TxHash)
	return nil
}

// SyncCancellation 把活动置为非激活。caller 为空表示链上事件路径，
// 合约已做过全部校验，直接落地；非空表示API路径，需走完整的取消
// 前置检查，不满足时返回 *fund.PreconditionError。
func (s *Synchronizer) SyncCancellation(campaignID uint64, caller string) error {
	campaign, err := s.store.CampaignByChainID(campaignID)
	if err != nil {
		return err
	}
	if !campaign.IsActive {
		logger.Debug("Campaign %d already inactive, skipping cancellation", campaignID)
		return nil
	}
	if caller != "" {
		decision := fund.CheckCancel(fund.StateOf(campaign), caller, campaign.OwnerAddress, time.Now())
		if !decision.Eligible {
			return &fund.PreconditionError{Code: decision.Code, Reason: decision.Reason}
		}
	}
	if err := s.store.DeactivateCampaign(campaignID); err != nil {
		return err
	}
	logger.Info("Campaign %d cancelled", campaignID)
	return nil
}
