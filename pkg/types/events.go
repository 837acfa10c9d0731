package types

import (
	"time"

	ma "github.com/multiformats/go-multiaddr"
)

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 统一事件流中的事件
//
// 事件集合是封闭的：只有本包定义的类型实现 Event。
type Event interface {
	// Type 返回事件类型名称（日志与指标标签用）
	Type() string

	isEvent()
}

// 事件类型常量
const (
	EventTypeNewListenAddr         = "new_listen_addr"
	EventTypeExpiredListenAddr     = "expired_listen_addr"
	EventTypeConnectionEstablished = "connection_established"
	EventTypeConnectionClosed      = "connection_closed"
	EventTypeDialFailed            = "dial_failed"
	EventTypeIdentityReceived      = "identity_received"
	EventTypePeerDiscovered        = "peer_discovered"
	EventTypePeerExpired           = "peer_expired"
	EventTypeLivenessResult        = "liveness_result"
)

// ============================================================================
//                              协调器事件
// ============================================================================

// NewListenAddr 监听器绑定到新地址
//
// Addr 不含 /p2p 后缀，端口已解析为实际绑定端口。
type NewListenAddr struct {
	Addr ma.Multiaddr
}

// Type 实现 Event
func (NewListenAddr) Type() string { return EventTypeNewListenAddr }
func (NewListenAddr) isEvent()     {}

// ExpiredListenAddr 监听地址不再可用
type ExpiredListenAddr struct {
	Addr ma.Multiaddr
}

// Type 实现 Event
func (ExpiredListenAddr) Type() string { return EventTypeExpiredListenAddr }
func (ExpiredListenAddr) isEvent()     {}

// ConnectionEstablished 与某节点的连接建立
//
// 每个节点从未连接变为已连接时发出一次。
type ConnectionEstablished struct {
	Peer      PeerID
	Addr      ma.Multiaddr
	Direction Direction
}

// Type 实现 Event
func (ConnectionEstablished) Type() string { return EventTypeConnectionEstablished }
func (ConnectionEstablished) isEvent()     {}

// ConnectionClosed 与某节点的连接关闭
//
// 每个 ConnectionEstablished 恰好对应一个 ConnectionClosed。
// Cause 总是非空；Err 在 Cause 为 CauseError 时携带底层错误。
type ConnectionClosed struct {
	Peer  PeerID
	Addr  ma.Multiaddr
	Cause CloseCause
	Err   error
}

// Type 实现 Event
func (ConnectionClosed) Type() string { return EventTypeConnectionClosed }
func (ConnectionClosed) isEvent()     {}

// CauseString 返回可读的断开原因
func (e ConnectionClosed) CauseString() string {
	if e.Cause == CauseError && e.Err != nil {
		return "error: " + e.Err.Error()
	}
	return e.Cause.String()
}

// DialFailed 拨号失败（仅供观察）
//
// 拨号失败从不作为错误返回给调用方，只作为事件出现。
// Peer 在地址不含 /p2p 组件时为空。
type DialFailed struct {
	Peer PeerID
	Addr ma.Multiaddr
	Err  error
}

// Type 实现 Event
func (DialFailed) Type() string { return EventTypeDialFailed }
func (DialFailed) isEvent()     {}

// ============================================================================
//                              能力事件
// ============================================================================

// IdentityReceived 收到远端节点的身份信息
type IdentityReceived struct {
	Peer            PeerID
	ProtocolVersion string
	AgentVersion    string
	ListenAddrs     []ma.Multiaddr
	Protocols       []string
	// ObservedAddr 远端看到的本节点地址，可能为 nil
	ObservedAddr ma.Multiaddr
}

// Type 实现 Event
func (IdentityReceived) Type() string { return EventTypeIdentityReceived }
func (IdentityReceived) isEvent()     {}

// PeerDiscovered 局域网发现新节点地址
//
// 同一 (Peer, Addr) 在过期前只发出一次。
type PeerDiscovered struct {
	Peer PeerID
	Addr ma.Multiaddr
}

// Type 实现 Event
func (PeerDiscovered) Type() string { return EventTypePeerDiscovered }
func (PeerDiscovered) isEvent()     {}

// PeerExpired 已发现的节点地址过期
type PeerExpired struct {
	Peer PeerID
	Addr ma.Multiaddr
}

// Type 实现 Event
func (PeerExpired) Type() string { return EventTypePeerExpired }
func (PeerExpired) isEvent()     {}

// LivenessResult 一次存活探测的结果
//
// Err 为 nil 时 RTT 有效。
type LivenessResult struct {
	Peer PeerID
	RTT  time.Duration
	Err  error
}

// Type 实现 Event
func (LivenessResult) Type() string { return EventTypeLivenessResult }
func (LivenessResult) isEvent()     {}

// OK 探测是否成功
func (e LivenessResult) OK() bool {
	return e.Err == nil
}
