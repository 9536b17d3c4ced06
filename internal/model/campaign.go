package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign 众筹活动缓存模型
//
// 链上状态为权威数据，此表只是派生镜像，仅由 Synchronizer 写入。
// 活动永不删除，终态保留用于审计。
type Campaign struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 链上标识（合约分配，不可变）
	BlockchainID uint64 `json:"blockchain_id" gorm:"uniqueIndex;not null"`
	OwnerAddress string `json:"owner_address" gorm:"type:varchar(42);not null;index"`

	// 基本信息
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url"`
	SocialLinks string `json:"social_links" gorm:"default:''"`

	// 资金信息（18位整数 + 8位小数）
	TargetAmount    decimal.Decimal `json:"target_amount" gorm:"type:decimal(26,8);not null"`
	AmountCollected decimal.Decimal `json:"amount_collected" gorm:"type:decimal(26,8);not null;default:0"`
	FundsWithdrawn  decimal.Decimal `json:"funds_withdrawn" gorm:"type:decimal(26,8);not null;default:0"`

	// 截止时间（epoch 秒）
	Deadline int64 `json:"deadline" gorm:"not null"`

	// 状态
	IsActive   bool `json:"is_active" gorm:"not null;default:true"`
	IsVerified bool `json:"is_verified" gorm:"not null;default:false"`

	// 分类（可选外键）
	CategoryID *uint     `json:"category_id" gorm:"index"`
	Category   *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}
