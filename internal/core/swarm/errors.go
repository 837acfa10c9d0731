package swarm

import (
	"errors"
	"fmt"
)

var (
	// ErrSwarmClosed Swarm 已关闭
	ErrSwarmClosed = errors.New("swarm closed")

	// ErrNotConnected 与节点没有连接
	ErrNotConnected = errors.New("no connection to peer")

	// ErrDialToSelf 尝试拨号自己
	ErrDialToSelf = errors.New("dial to self attempted")

	// ErrDuplicateProtocol 多个能力注册了同一协议
	ErrDuplicateProtocol = errors.New("protocol registered by more than one capability")

	// ErrEmptyListenAddr 监听地址为空
	ErrEmptyListenAddr = errors.New("empty listen address")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid swarm config")
)

// ListenError 无法在给定地址上开始监听
type ListenError struct {
	Addr string
	Err  error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("could not start listening on %s: %v", e.Addr, e.Err)
}

func (e *ListenError) Unwrap() error {
	return e.Err
}

// ListenerFault 已绑定的监听器失效
//
// 属于致命错误，由事件循环向上传播。
type ListenerFault struct {
	Addr string
	Err  error
}

func (e *ListenerFault) Error() string {
	return fmt.Sprintf("listener on %s failed: %v", e.Addr, e.Err)
}

func (e *ListenerFault) Unwrap() error {
	return e.Err
}

// DialError 拨号失败（随 DialFailed 事件携带，不返回给调用方）
type DialError struct {
	Addr string
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("failed to dial %s: %v", e.Addr, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}
