package errorx

import "errors"

// 同步业务错误定义
var (
	ErrMissingLocalID  = errors.New("local id is required")
	ErrMissingDeviceID = errors.New("device id is required")
	ErrMissingEntity   = errors.New("entity payload is required")
)
