package ping

import "errors"

var (
	// ErrPingTimeout 探测超时
	ErrPingTimeout = errors.New("ping timeout")

	// ErrDataMismatch 回显数据不匹配
	ErrDataMismatch = errors.New("ping: echo data mismatch")
)
