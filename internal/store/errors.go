package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrCampaignNotFound 缓存中不存在该活动
var ErrCampaignNotFound = errors.New("campaign not found")

// ErrDuplicateTransaction 交易哈希已存在。重复投递的事件在此被吸收，
// 不是错误：同步路径当作成功空操作，HTTP路径映射为409。
var ErrDuplicateTransaction = errors.New("transaction already recorded")

// DriftError 缓存派生金额与账本规则冲突（超过1e-8容差的不一致状态）
type DriftError struct {
	CampaignID uint64
	Detail     string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("inconsistent state for campaign %d: %s", e.CampaignID, e.Detail)
}

// IsDrift 判断是否为状态漂移错误
func IsDrift(err error) bool {
	var de *DriftError
	return errors.As(err, &de)
}

// isDuplicateKey 唯一约束冲突判定，兼容postgres与sqlite的错误文案
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
