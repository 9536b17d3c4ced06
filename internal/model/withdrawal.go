package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal 提款记录
//
// 与 Donation 同形，只追加，TransactionHash 唯一。
type Withdrawal struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CampaignID       uint64          `json:"campaign_id" gorm:"not null;index"` // 引用 Campaign.BlockchainID
	RecipientAddress string          `json:"recipient_address" gorm:"type:varchar(42);not null;index"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(26,8);not null"`
	TransactionHash  string          `json:"transaction_hash" gorm:"type:varchar(66);uniqueIndex;not null"`
	BlockNumber      uint64          `json:"block_number"`
}
