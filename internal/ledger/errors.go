package ledger

import (
	"errors"
	"strings"
)

// ErrChainUnavailable RPC节点暂时不可用（重试耗尽后返回）
var ErrChainUnavailable = errors.New("chain unavailable")

// RevertError 合约回滚错误，原样保留合约给出的原因（不可重试）
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "chain revert"
	}
	return "chain revert: " + e.Reason
}

// IsRevert 判断是否为合约回滚
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}

// classify 将底层RPC错误归类：回滚原样透出，其余视为暂时性错误
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		reason := strings.TrimPrefix(msg[idx:], "execution reverted")
		reason = strings.TrimLeft(reason, ": ")
		return &RevertError{Reason: reason}
	}
	return err
}
