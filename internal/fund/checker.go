package fund

import (
	"context"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/logger"
	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/shopspring/decimal"
)

// Store 资格判定所需的缓存读取
type Store interface {
	CampaignByChainID(id uint64) (*model.Campaign, error)
	DonorContribution(campaignID uint64, donor string) (decimal.Decimal, error)
}

// Chain 资格判定所需的链上查询
type Chain interface {
	CheckWithdrawEligibility(ctx context.Context, id uint64) (bool, string, error)
	GetAvailableFunds(ctx context.Context, id uint64) (decimal.Decimal, error)
	HasClaimedRefund(ctx context.Context, id uint64, donor string) (bool, error)
}

// Checker 资格判定服务：优先采用链上权威答案，链不可用时回退到
// 本地规则并标记为本地推导。
type Checker struct {
	store   Store
	chain   Chain
	timeout time.Duration
	now     func() time.Time
}

// NewChecker 创建资格判定服务
func NewChecker(store Store, chain Chain, timeout time.Duration) *Checker {
	return &Checker{
		store:   store,
		chain:   chain,
		timeout: timeout,
		now:     time.Now,
	}
}

// Withdraw 提款资格。链上 canWithdraw 为权威判断，带有界超时，
// 超时或失败时回退到本地计算。
func (c *Checker) Withdraw(ctx context.Context, campaignID uint64, caller string) (Decision, error) {
	campaign, err := c.store.CampaignByChainID(campaignID)
	if err != nil {
		return Decision{}, err
	}

	state := StateOf(campaign)
	now := c.now()

	// 归属校验始终在本地做，链上查询不区分调用者
	if !sameAddress(caller, campaign.OwnerAddress) {
		return Decision{Code: CodeNotOwner, Reason: "only the campaign owner can withdraw"}, nil
	}

	chainCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	eligible, reason, chainErr := c.chain.CheckWithdrawEligibility(chainCtx, campaignID)
	if chainErr != nil {
		logger.Warn("Chain withdraw eligibility for campaign %d unavailable, falling back to local rules: %v", campaignID, chainErr)
		d := CheckWithdrawLocal(state, caller, campaign.OwnerAddress, now)
		d.LocallyDerived = true
		return d, nil
	}

	// 链上只给布尔加原因串，拒绝时不猜测具体规则，统一用中性原因码
	d := Decision{Eligible: eligible, Reason: reason}
	if eligible {
		d.Code = CodeOK
	} else {
		d.Code = CodeChainDenied
	}

	available, fundsErr := c.chain.GetAvailableFunds(chainCtx, campaignID)
	if fundsErr != nil {
		available = state.AmountCollected.Sub(state.FundsWithdrawn)
	}
	d.Available = available
	return d, nil
}

// Refund 某捐款人的退款资格。已领取标记以链上为准；
// 链不可用时按未领取继续本地判定并标记。
func (c *Checker) Refund(ctx context.Context, campaignID uint64, donor string) (Decision, error) {
	campaign, err := c.store.CampaignByChainID(campaignID)
	if err != nil {
		return Decision{}, err
	}

	contribution, err := c.store.DonorContribution(campaignID, donor)
	if err != nil {
		return Decision{}, err
	}

	chainCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	locallyDerived := false
	claimed, chainErr := c.chain.HasClaimedRefund(chainCtx, campaignID, donor)
	if chainErr != nil {
		logger.Warn("Chain refund-claim lookup for campaign %d donor %s unavailable: %v", campaignID, donor, chainErr)
		claimed = false
		locallyDerived = true
	}

	d := CheckRefund(StateOf(campaign), contribution, claimed, c.now())
	d.LocallyDerived = locallyDerived
	return d, nil
}

// Cancel 取消资格，纯本地规则（链上没有对应的只读接口）
func (c *Checker) Cancel(ctx context.Context, campaignID uint64, caller string) (Decision, error) {
	campaign, err := c.store.CampaignByChainID(campaignID)
	if err != nil {
		return Decision{}, err
	}
	return CheckCancel(StateOf(campaign), caller, campaign.OwnerAddress, c.now()), nil
}

// Status 当前生命周期状态
func (c *Checker) Status(campaignID uint64) (Status, error) {
	campaign, err := c.store.CampaignByChainID(campaignID)
	if err != nil {
		return "", err
	}
	return DeriveStatus(StateOf(campaign), c.now()), nil
}
