package model

import "time"

// 双写重试种类
const (
	RetryKindCampaign   = "campaign"
	RetryKindDonation   = "donation"
	RetryKindWithdrawal = "withdrawal"
)

// SyncRetry 双写重试记录
//
// 链上写入已成功而缓存写入失败时入队，由对账协调器定期重放。
type SyncRetry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Kind       string `json:"kind" gorm:"type:varchar(16);not null;index"`
	CampaignID uint64 `json:"campaign_id" gorm:"not null;index"`
	Payload    string `json:"payload" gorm:"type:text;not null"` // 原始事件JSON
	Attempts   int    `json:"attempts" gorm:"not null;default:0"`
	LastError  string `json:"last_error" gorm:"type:text"`
}
