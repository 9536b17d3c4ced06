package store

import (
	"errors"
	"strings"

	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store 缓存存储，活动/捐款/提款的唯一持久化入口
type Store struct {
	db *gorm.DB
}

// New 创建缓存存储
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CampaignUpsert 活动局部更新载荷。指针字段为nil表示载荷中未携带，
// 更新时跳过，避免稀疏的事件载荷清空已有的描述和图片。
type CampaignUpsert struct {
	BlockchainID    uint64
	OwnerAddress    string
	Title           *string
	Description     *string
	ImageURL        *string
	SocialLinks     *string
	TargetAmount    *decimal.Decimal
	Deadline        *int64
	AmountCollected *decimal.Decimal
	FundsWithdrawn  *decimal.Decimal
	IsActive        *bool
	IsVerified      *bool
	CategoryID      *uint
}

// CampaignByChainID 按链上ID查询活动
func (s *Store) CampaignByChainID(id uint64) (*model.Campaign, error) {
	var campaign model.Campaign
	if err := s.db.Where("blockchain_id = ?", id).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// CampaignIDs 所有已缓存活动的链上ID
func (s *Store) CampaignIDs() ([]uint64, error) {
	var ids []uint64
	if err := s.db.Model(&model.Campaign{}).Order("blockchain_id ASC").Pluck("blockchain_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ApplyCampaignUpsert 按 blockchain_id 幂等写入活动。
// 已存在时只更新载荷中携带的字段；不存在时以默认值插入
// （is_active=true，金额为0，social_links为空串）。
func (s *Store) ApplyCampaignUpsert(u *CampaignUpsert) (*model.Campaign, bool, error) {
	var campaign model.Campaign
	err := s.db.Where("blockchain_id = ?", u.BlockchainID).First(&campaign).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		campaign = model.Campaign{
			BlockchainID:    u.BlockchainID,
			OwnerAddress:    strings.ToLower(u.OwnerAddress),
			IsActive:        true,
			TargetAmount:    decimal.Zero,
			AmountCollected: decimal.Zero,
			FundsWithdrawn:  decimal.Zero,
		}
		applyFields(&campaign, u)
		if createErr := s.db.Create(&campaign).Error; createErr != nil {
			// 并发创建撞唯一键：另一个写入方赢了，转为局部更新
			if !isDuplicateKey(createErr) {
				return nil, false, createErr
			}
			return s.ApplyCampaignUpsert(u)
		}
		return &campaign, true, nil
	}

	updates := updateFields(u)
	if len(updates) > 0 {
		if err := s.db.Model(&campaign).Updates(updates).Error; err != nil {
			return nil, false, err
		}
	}

	if err := s.db.Where("blockchain_id = ?", u.BlockchainID).First(&campaign).Error; err != nil {
		return nil, false, err
	}
	return &campaign, false, nil
}

// applyFields 创建路径：载荷携带的字段覆盖默认值
func applyFields(c *model.Campaign, u *CampaignUpsert) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.ImageURL != nil {
		c.ImageURL = *u.ImageURL
	}
	if u.SocialLinks != nil {
		c.SocialLinks = *u.SocialLinks
	}
	if u.TargetAmount != nil {
		c.TargetAmount = *u.TargetAmount
	}
	if u.Deadline != nil {
		c.Deadline = *u.Deadline
	}
	if u.AmountCollected != nil {
		c.AmountCollected = *u.AmountCollected
	}
	if u.FundsWithdrawn != nil {
		c.FundsWithdrawn = *u.FundsWithdrawn
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	if u.IsVerified != nil {
		c.IsVerified = *u.IsVerified
	}
	if u.CategoryID != nil {
		c.CategoryID = u.CategoryID
	}
}

// updateFields 更新路径：只收集载荷中携带的字段
func updateFields(u *CampaignUpsert) map[string]interface{} {
	updates := make(map[string]interface{})
	if u.OwnerAddress != "" {
		updates["owner_address"] = strings.ToLower(u.OwnerAddress)
	}
	if u.Title != nil {
		updates["title"] = *u.Title
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.ImageURL != nil {
		updates["image_url"] = *u.ImageURL
	}
	if u.SocialLinks != nil {
		updates["social_links"] = *u.SocialLinks
	}
	if u.TargetAmount != nil {
		updates["target_amount"] = *u.TargetAmount
	}
	if u.Deadline != nil {
		updates["deadline"] = *u.Deadline
	}
	if u.AmountCollected != nil {
		updates["amount_collected"] = *u.AmountCollected
	}
	if u.FundsWithdrawn != nil {
		updates["funds_withdrawn"] = *u.FundsWithdrawn
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.IsVerified != nil {
		updates["is_verified"] = *u.IsVerified
	}
	if u.CategoryID != nil {
		updates["category_id"] = *u.CategoryID
	}
	return updates
}

// DeactivateCampaign 将活动置为非活动（取消的落库动作）
func (s *Store) DeactivateCampaign(id uint64) error {
	res := s.db.Model(&model.Campaign{}).Where("blockchain_id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// DonorContribution 某捐款人对某活动的累计捐款
func (s *Store) DonorContribution(campaignID uint64, donor string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.Model(&model.Donation{}).
		Where("campaign_id = ? AND donor_address = ?", campaignID, strings.ToLower(donor)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SumDonations 活动的捐款总额（漂移审计用）
func (s *Store) SumDonations(campaignID uint64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.Model(&model.Donation{}).
		Where("campaign_id = ?", campaignID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
