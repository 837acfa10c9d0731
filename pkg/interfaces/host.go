package interfaces

import (
	"context"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/pkg/types"
)

// Host Swarm 暴露给能力模块的视图
type Host interface {
	// LocalPeer 返回本地节点 ID
	LocalPeer() types.PeerID

	// ListenAddrs 返回当前监听地址（端口已解析，不含 /p2p）
	ListenAddrs() []ma.Multiaddr

	// Peers 返回当前已连接的节点
	Peers() []types.PeerID

	// Protocols 返回已注册的入站流协议（已排序）
	Protocols() []string

	// ConnToPeer 返回与节点的连接信息
	ConnToPeer(peer types.PeerID) (ConnInfo, bool)

	// NewStream 在与 peer 的已有连接上打开协议流
	//
	// 不会主动拨号；未连接时返回错误。
	NewStream(ctx context.Context, peer types.PeerID, protocol string) (Stream, error)
}

// Emitter 向统一事件流投递事件
//
// Emit 永不阻塞。
type Emitter interface {
	Emit(ev types.Event)
}

// EmitterFunc 函数适配 Emitter
type EmitterFunc func(ev types.Event)

// Emit 实现 Emitter
func (f EmitterFunc) Emit(ev types.Event) { f(ev) }
