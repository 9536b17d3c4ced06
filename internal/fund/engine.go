package fund

import (
	"strings"
	"time"

	"github.com/FarahBaraket-03/FundChain/internal/model"
	"github.com/shopspring/decimal"
)

// Status 活动生命周期状态，由原始数值和时间戳派生
type Status string

const (
	StatusActive    Status = "active"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"    // 自然到期未达标
	StatusCancelled Status = "cancelled" // 发起人显式取消
)

// ReasonCode 资格判定原因码
type ReasonCode string

const (
	CodeOK                      ReasonCode = "ok"
	CodeNotOwner                ReasonCode = "not_owner"
	CodeAlreadyInactive         ReasonCode = "already_inactive"
	CodeGoalReached             ReasonCode = "goal_reached"
	CodeDeadlinePassed          ReasonCode = "deadline_passed"
	CodeFundsWithdrawn          ReasonCode = "funds_withdrawn"
	CodeNothingAvailable        ReasonCode = "nothing_available"
	CodeStillRunning            ReasonCode = "still_running"
	CodeAlreadyRefunded         ReasonCode = "already_refunded"
	CodeNoContribution          ReasonCode = "no_contribution"
	CodeRefundAfterCancellation ReasonCode = "after_cancellation"
	CodeRefundGoalNotMet        ReasonCode = "goal_not_met"
	CodeRefundEarly             ReasonCode = "early_refund"
	CodeNotRefundable           ReasonCode = "not_refundable"
	CodeChainDenied             ReasonCode = "chain_denied" // 链上拒绝，具体原因见 Reason
)

// Decision 资格判定结果，Reason 原样透给调用方
type Decision struct {
	Eligible       bool            `json:"eligible"`
	Code           ReasonCode      `json:"code"`
	Reason         string          `json:"reason"`
	Available      decimal.Decimal `json:"available"`
	LocallyDerived bool            `json:"locally_derived"` // 本地推导，未经链上确认
}

// State 资格判定所需的活动快照
type State struct {
	TargetAmount    decimal.Decimal
	AmountCollected decimal.Decimal
	FundsWithdrawn  decimal.Decimal
	Deadline        int64 // epoch 秒
	IsActive        bool
}

// StateOf 从缓存模型提取判定快照
func StateOf(c *model.Campaign) State {
	return State{
		TargetAmount:    c.TargetAmount,
		AmountCollected: c.AmountCollected,
		FundsWithdrawn:  c.FundsWithdrawn,
		Deadline:        c.Deadline,
		IsActive:        c.IsActive,
	}
}

// DeriveStatus 派生生命周期状态，按顺序求值，首个命中生效。
//
// 取消与到期失败是两个不同终态：isActive=false 且未达标的活动是被
// 显式取消的（取消只在未达标时允许），自然到期未达标的活动为 failed。
func DeriveStatus(s State, now time.Time) Status {
	goalReached := s.AmountCollected.GreaterThanOrEqual(s.TargetAmount)
	expired := now.Unix() > s.Deadline

	switch {
	case !s.IsActive && goalReached:
		return StatusSuccess
	case !s.IsActive:
		return StatusCancelled
	case expired && goalReached:
		return StatusSuccess
	case expired:
		return StatusFailed
	default:
		return StatusActive
	}
}

// CheckCancel 取消资格：发起人本人、活动进行中、无任何提款、
// 未过期且未达标时才允许取消。
func CheckCancel(s State, caller, owner string, now time.Time) Decision {
	if !sameAddress(caller, owner) {
		return Decision{Code: CodeNotOwner, Reason: "only the campaign owner can cancel"}
	}
	if !s.IsActive {
		return Decision{Code: CodeAlreadyInactive, Reason: "campaign already inactive"}
	}
	if s.FundsWithdrawn.IsPositive() {
		return Decision{Code: CodeFundsWithdrawn, Reason: "funds already withdrawn"}
	}
	if now.Unix() > s.Deadline {
		return Decision{Code: CodeDeadlinePassed, Reason: "campaign deadline has passed"}
	}
	if s.AmountCollected.GreaterThanOrEqual(s.TargetAmount) {
		return Decision{Code: CodeGoalReached, Reason: "campaign goal already reached"}
	}
	return Decision{Eligible: true, Code: CodeOK, Reason: "campaign can be cancelled"}
}

// CheckWithdrawLocal 提款资格的本地回退判定。
// 链上 canWithdraw 为权威，此函数仅在链不可用或批量列表时使用。
func CheckWithdrawLocal(s State, caller, owner string, now time.Time) Decision {
	if !sameAddress(caller, owner) {
		return Decision{Code: CodeNotOwner, Reason: "only the campaign owner can withdraw"}
	}

	available := s.AmountCollected.Sub(s.FundsWithdrawn)
	if !available.IsPositive() {
		return Decision{Code: CodeNothingAvailable, Reason: "no funds available to withdraw"}
	}

	goalReached := s.AmountCollected.GreaterThanOrEqual(s.TargetAmount)
	expired := now.Unix() > s.Deadline
	if !goalReached && !expired {
		return Decision{Code: CodeStillRunning, Reason: "campaign is still running and goal not reached", Available: available}
	}

	return Decision{Eligible: true, Code: CodeOK, Reason: "funds available for withdrawal", Available: available}
}

// CheckRefund 退款资格，按顺序求值。
//
// 已取消但发起人曾提款的活动明确拒绝退款（而非不提供入口），
// 原因对外可见。
func CheckRefund(s State, contribution decimal.Decimal, refundClaimed bool, now time.Time) Decision {
	if refundClaimed {
		return Decision{Code: CodeAlreadyRefunded, Reason: "already refunded"}
	}
	if !contribution.IsPositive() {
		return Decision{Code: CodeNoContribution, Reason: "no contribution found"}
	}

	if !s.IsActive {
		if s.FundsWithdrawn.IsPositive() {
			return Decision{Code: CodeFundsWithdrawn, Reason: "funds already withdrawn from campaign"}
		}
		return Decision{Eligible: true, Code: CodeRefundAfterCancellation, Reason: "refund available after cancellation", Available: contribution}
	}

	goalReached := s.AmountCollected.GreaterThanOrEqual(s.TargetAmount)
	expired := now.Unix() > s.Deadline

	if expired && !goalReached {
		return Decision{Eligible: true, Code: CodeRefundGoalNotMet, Reason: "goal not met", Available: contribution}
	}
	if !expired {
		return Decision{Eligible: true, Code: CodeRefundEarly, Reason: "early withdrawal of own donation", Available: contribution}
	}

	return Decision{Code: CodeNotRefundable, Reason: "campaign reached its goal"}
}

// RefundKindFor 将可退款的原因码映射到对应的链上退款方法
func RefundKindFor(code ReasonCode) (string, bool) {
	switch code {
	case CodeRefundEarly:
		return "standard", true
	case CodeRefundGoalNotMet:
		return "goal_not_met", true
	case CodeRefundAfterCancellation:
		return "after_cancellation", true
	default:
		return "", false
	}
}

// sameAddress 地址比较不区分大小写
func sameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
