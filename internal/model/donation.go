package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation 捐款记录
//
// 只追加，不修改。TransactionHash 为幂等键，重复投递的事件在此被吸收。
type Donation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CampaignID      uint64          `json:"campaign_id" gorm:"not null;index"` // 引用 Campaign.BlockchainID
	DonorAddress    string          `json:"donor_address" gorm:"type:varchar(42);not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(26,8);not null"`
	TransactionHash string          `json:"transaction_hash" gorm:"type:varchar(66);uniqueIndex;not null"`
	BlockNumber     uint64          `json:"block_number"`
}
