package store

import (
	"encoding/json"

	"github.com/FarahBaraket-03/FundChain/internal/model"
	"gorm.io/gorm"
)

// EnqueueRetry 把一次失败的投影写入重试队列，payload为原事件的JSON快照
func (s *Store) EnqueueRetry(kind string, campaignID uint64, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	entry := &model.SyncRetry{
		Kind:       kind,
		CampaignID: campaignID,
		Payload:    string(data),
	}
	return s.db.Create(entry).Error
}

// DueRetries 按入队顺序取出待重放的条目
func (s *Store) DueRetries(limit int) ([]model.SyncRetry, error) {
	var entries []model.SyncRetry
	err := s.db.Order("id ASC").Limit(limit).Find(&entries).Error
	return entries, err
}

// ResolveRetry 重放成功后删除条目
func (s *Store) ResolveRetry(id uint) error {
	return s.db.Delete(&model.SyncRetry{}, id).Error
}

// BumpRetry 重放失败时累加次数并记录最近错误
func (s *Store) BumpRetry(id uint, errMsg string) error {
	return s.db.Model(&model.SyncRetry{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": errMsg,
		}).Error
}
