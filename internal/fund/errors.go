package fund

import "errors"

// PreconditionError 资格前置条件不满足，携带具体原因
type PreconditionError struct {
	Code   ReasonCode
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// IsPrecondition 判断是否为前置条件错误
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
