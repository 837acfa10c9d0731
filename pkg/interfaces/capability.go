package interfaces

import (
	"context"

	ma "github.com/multiformats/go-multiaddr"
)

// ============================================================================
//                              Capability
// ============================================================================

// Capability 可插拔的节点子协议
//
// 生命周期：Swarm 组装时注册协议处理器 → Start → (HandleStream / 通知)* → Close。
type Capability interface {
	// Name 返回能力名称（日志用）
	Name() string

	// Protocols 返回需要注册的入站流协议，可为空
	Protocols() []string

	// Start 启动能力
	//
	// ctx 在 Swarm 关闭时取消；emit 用于投递能力事件。
	Start(ctx context.Context, host Host, emit Emitter) error

	// HandleStream 处理入站流，调用方在返回后不再使用 s
	HandleStream(s Stream)

	// Close 停止能力并释放资源
	Close() error
}

// ConnNotifee 连接表变化通知（可选）
//
// 回调在 Swarm 的连接 goroutine 中同步调用，实现不得阻塞。
// 同一连接的 Connected 总在 Disconnected 之前。
type ConnNotifee interface {
	Connected(c ConnInfo)
	Disconnected(c ConnInfo)
}

// ListenNotifee 监听地址变化通知（可选）
type ListenNotifee interface {
	ListenAddrsChanged(addrs []ma.Multiaddr)
}
