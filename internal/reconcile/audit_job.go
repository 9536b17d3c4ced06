package reconcile

import (
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/config"
	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	"github.com/go-co-op/gocron/v2"
	"github.com/shopspring/decimal"
)

// 审计用的金额比对容差
var auditTolerance = decimal.New(1, -8)

// AuditJob 漂移审计任务：校验每个活动的聚合列与捐款明细之和一致，
// 以及已提款金额不超过已筹金额。只告警不修复，修复交给重同步。
type AuditJob struct {
	store  *store.Store
	config *config.Config
}

// NewAuditJob 创建漂移审计任务
func NewAuditJob(st *store.Store, cfg *config.Config) *AuditJob {
	return &AuditJob{store: st, config: cfg}
}

// GetName 获取任务名称
func (j *AuditJob) GetName() string {
	return "drift_auditor"
}

// GetSchedule 获取调度配置
func (j *AuditJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Reconcile.AuditInterval) * time.Second)
}

// Execute 执行任务
func (j *AuditJob) Execute() {
	ids, err := j.store.CampaignIDs()
	if err != nil {
		logger.Error("Failed to list campaigns for audit: %v", err)
		return
	}

	drifted := 0
	for _, id := range ids {
		if j.auditOne(id) {
			drifted++
		}
	}
	if drifted > 0 {
		logger.Warn("Drift audit completed: %d/%d campaigns drifted", drifted, len(ids))
	} else {
		logger.Debug("Drift audit completed: %d campaigns clean", len(ids))
	}
}

// auditOne 审计单个活动，存在漂移返回true
func (j *AuditJob) auditOne(id uint64) bool {
	campaign, err := j.store.CampaignByChainID(id)
	if err != nil {
		logger.Error("Failed to load campaign %d for audit: %v", id, err)
		return false
	}

	drifted := false

	sum, err := j.store.SumDonations(id)
	if err != nil {
		logger.Error("Failed to sum donations for campaign %d: %v", id, err)
	} else if campaign.AmountCollected.Sub(sum).Abs().GreaterThan(auditTolerance) {
		logger.Error("Campaign %d drift: amount_collected %s does not match donation sum %s",
			id, campaign.AmountCollected, sum)
		drifted = true
	}

	if campaign.FundsWithdrawn.GreaterThan(campaign.AmountCollected.Add(auditTolerance)) {
		logger.Error("Campaign %d drift: funds_withdrawn %s exceeds amount_collected %s",
			id, campaign.FundsWithdrawn, campaign.AmountCollected)
		drifted = true
	}

	return drifted
}
