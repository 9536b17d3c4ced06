package handler

import (
	"github.com/shopspring/decimal"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// CampaignSyncRequest 活动元数据同步请求。指针字段缺省表示保持缓存现值
type CampaignSyncRequest struct {
	BlockchainID    uint64           `json:"blockchain_id"`
	OwnerAddress    string           `json:"owner_address"`
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	ImageURL        *string          `json:"image_url"`
	SocialLinks     *string          `json:"social_links"`
	TargetAmount    *decimal.Decimal `json:"target_amount"`
	Deadline        *int64           `json:"deadline"`
	AmountCollected *decimal.Decimal `json:"amount_collected"`
	FundsWithdrawn  *decimal.Decimal `json:"funds_withdrawn"`
	IsActive        *bool            `json:"is_active"`
	IsVerified      *bool            `json:"is_verified"`
	CategoryID      *uint            `json:"category_id"`
}

// EntryRequest 捐款/提款记录同步请求
type EntryRequest struct {
	CampaignID      uint64          `json:"campaign_id"`
	Address         string          `json:"address"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transaction_hash"`
	BlockNumber     uint64          `json:"block_number"`
}

// EligibilityResponse 资格查询响应
type EligibilityResponse struct {
	Eligible       bool   `json:"eligible"`
	Code           string `json:"code"`
	Reason         string `json:"reason"`
	Available      string `json:"available"`
	LocallyDerived bool   `json:"locally_derived"`
}

// CampaignResponse 活动详情响应
type CampaignResponse struct {
	BlockchainID    uint64 `json:"blockchain_id"`
	OwnerAddress    string `json:"owner_address"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ImageURL        string `json:"image_url"`
	TargetAmount    string `json:"target_amount"`
	AmountCollected string `json:"amount_collected"`
	FundsWithdrawn  string `json:"funds_withdrawn"`
	Deadline        int64  `json:"deadline"`
	IsActive        bool   `json:"is_active"`
	IsVerified      bool   `json:"is_verified"`
	Status          string `json:"status"`
}
