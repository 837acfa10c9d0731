package upgrader

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSecurityTransport 未配置或不支持的安全协议
	ErrNoSecurityTransport = errors.New("upgrader: no usable security transport configured")

	// ErrNoStreamMuxer 未配置或不支持的多路复用器
	ErrNoStreamMuxer = errors.New("upgrader: no usable stream muxer configured")
)

// TransportError 传输子系统初始化失败
type TransportError struct {
	// Component 失败的组件（security / muxer）
	Component string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not initialize the transport (%s): %v", e.Component, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpgradeError 单条连接升级失败
type UpgradeError struct {
	// Stage 失败阶段：security-negotiation / handshake / muxer-negotiation / muxer
	Stage string
	Err   error
}

func (e *UpgradeError) Error() string {
	return fmt.Sprintf("upgrade failed at %s: %v", e.Stage, e.Err)
}

func (e *UpgradeError) Unwrap() error {
	return e.Err
}
