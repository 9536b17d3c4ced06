package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 金额比对容差（8位小数的最小刻度）
var tolerance = decimal.New(1, -8)

// 聚合列竞争更新的重试上限
const casAttempts = 5

const (
	colAmountCollected = "amount_collected"
	colFundsWithdrawn  = "funds_withdrawn"
)

// InsertDonation 在单个存储事务内：插入捐款行（哈希冲突视为重复投递，
// 返回 ErrDuplicateTransaction，未产生任何写入），随后对所属活动的
// amount_collected 做乐观重算累加并复读校验。
func (s *Store) InsertDonation(d *model.Donation) error {
	d.DonorAddress = strings.ToLower(d.DonorAddress)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := campaignInTx(tx, d.CampaignID); err != nil {
			return err
		}
		if err := tx.Create(d).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateTransaction
			}
			return err
		}
		_, err := s.casAdd(tx, d.CampaignID, colAmountCollected, d.Amount)
		return err
	})
}

// InsertWithdrawal 与 InsertDonation 对称，累加 funds_withdrawn，
// 并强制不变式 funds_withdrawn ≤ amount_collected。
func (s *Store) InsertWithdrawal(w *model.Withdrawal) error {
	w.RecipientAddress = strings.ToLower(w.RecipientAddress)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := campaignInTx(tx, w.CampaignID); err != nil {
			return err
		}
		if err := tx.Create(w).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateTransaction
			}
			return err
		}
		_, err := s.casAdd(tx, w.CampaignID, colFundsWithdrawn, w.Amount)
		return err
	})
}

// 测试用挂钩，在读与条件更新之间注入并发写入
var casBeforeWrite func(tx *gorm.DB, attempt int)

// casAdd 乐观重算累加：读旧值、在Go侧计算 old+delta、按旧值条件更新。
// 竞争失败时重试（序列化范围限定在单个活动行）——重试轮不再以
// old+delta 为目标，而是按本事务可见的明细行之和重算：竞争方可能是
// 一次快照重同步，其写入的链上权威值已计入本次增量，再叠加会重复
// 记账。更新命中后复读校验写入值，偏差超过1e-8按预期值强制修正并告警。
func (s *Store) casAdd(tx *gorm.DB, campaignID uint64, column string, delta decimal.Decimal) (decimal.Decimal, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		campaign, err := campaignInTx(tx, campaignID)
		if err != nil {
			return decimal.Zero, err
		}

		old := campaign.AmountCollected
		if column == colFundsWithdrawn {
			old = campaign.FundsWithdrawn
		}

		var next decimal.Decimal
		if attempt == 0 {
			next = old.Add(delta)
		} else {
			next, err = aggregateTotal(tx, campaignID, column)
			if err != nil {
				return decimal.Zero, err
			}
		}

		if column == colFundsWithdrawn && next.GreaterThan(campaign.AmountCollected.Add(tolerance)) {
			return decimal.Zero, &DriftError{
				CampaignID: campaignID,
				Detail: fmt.Sprintf("withdrawal total %s would exceed collected amount %s",
					next, campaign.AmountCollected),
			}
		}

		if casBeforeWrite != nil {
			casBeforeWrite(tx, attempt)
		}

		res := tx.Model(&model.Campaign{}).
			Where(fmt.Sprintf("blockchain_id = ? AND %s = ?", column), campaignID, old).
			Update(column, next)
		if res.Error != nil {
			return decimal.Zero, res.Error
		}
		if res.RowsAffected == 0 {
			// 另一个写入方先改了该行，重读后重试
			continue
		}

		verified, err := campaignInTx(tx, campaignID)
		if err != nil {
			return decimal.Zero, err
		}
		got := verified.AmountCollected
		if column == colFundsWithdrawn {
			got = verified.FundsWithdrawn
		}
		if got.Sub(next).Abs().GreaterThan(tolerance) {
			logger.Error("Campaign %d %s drifted after increment: expected %s, got %s; issuing corrective set",
				campaignID, column, next, got)
			if err := tx.Model(&model.Campaign{}).
				Where("blockchain_id = ?", campaignID).
				Update(column, next).Error; err != nil {
				return decimal.Zero, err
			}
		}
		return next, nil
	}

	return decimal.Zero, &DriftError{
		CampaignID: campaignID,
		Detail:     fmt.Sprintf("update contention on %s exceeded %d attempts", column, casAttempts),
	}
}

// aggregateTotal 事务内按明细行重算聚合值（含本事务尚未提交的行）
func aggregateTotal(tx *gorm.DB, campaignID uint64, column string) (decimal.Decimal, error) {
	var entries interface{} = &model.Donation{}
	if column == colFundsWithdrawn {
		entries = &model.Withdrawal{}
	}
	var total decimal.Decimal
	err := tx.Model(entries).
		Where("campaign_id = ?", campaignID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// campaignInTx 事务内按链上ID读活动行
func campaignInTx(tx *gorm.DB, id uint64) (*model.Campaign, error) {
	var campaign model.Campaign
	if err := tx.Where("blockchain_id = ?", id).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}
