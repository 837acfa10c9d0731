// Package prototest 提供能力模块测试用的内存 Host
//
// 流由 net.Pipe 承载，对端能力的 HandleStream 在独立 goroutine 中运行。
package prototest

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/types"
)

var (
	// ErrNotConnected 未与节点建立连接
	ErrNotConnected = errors.New("prototest: not connected")

	// ErrProtocolNotSupported 对端不支持协议
	ErrProtocolNotSupported = errors.New("prototest: protocol not supported")
)

// Host 内存 Host
type Host struct {
	local types.PeerID

	mu     sync.Mutex
	addrs  []ma.Multiaddr
	protos []string
	peers  map[types.PeerID]*remote
}

type remote struct {
	info interfaces.ConnInfo
	// local 对端视角看到的本端
	local types.PeerID
	cap   interfaces.Capability
}

var _ interfaces.Host = (*Host)(nil)

// NewHost 创建内存 Host
func NewHost(local types.PeerID, addrs ...ma.Multiaddr) *Host {
	return &Host{
		local: local,
		addrs: addrs,
		peers: make(map[types.PeerID]*remote),
	}
}

// SetProtocols 设置 Protocols 的返回值
func (h *Host) SetProtocols(protos ...string) {
	h.mu.Lock()
	h.protos = protos
	h.mu.Unlock()
}

// Connect 登记与 peer 的连接，对 peer 打开的流交给 c 处理
func (h *Host) Connect(peer types.PeerID, c interfaces.Capability) interfaces.ConnInfo {
	info := interfaces.ConnInfo{
		Peer:       peer,
		LocalAddr:  ma.StringCast("/ip4/127.0.0.1/tcp/4001"),
		RemoteAddr: ma.StringCast("/ip4/127.0.0.1/tcp/4002"),
		Direction:  types.DirOutbound,
		Opened:     time.Now(),
	}
	h.mu.Lock()
	h.peers[peer] = &remote{info: info, local: h.local, cap: c}
	h.mu.Unlock()
	return info
}

// Disconnect 移除连接
func (h *Host) Disconnect(peer types.PeerID) {
	h.mu.Lock()
	delete(h.peers, peer)
	h.mu.Unlock()
}

// LocalPeer 实现 Host
func (h *Host) LocalPeer() types.PeerID { return h.local }

// ListenAddrs 实现 Host
func (h *Host) ListenAddrs() []ma.Multiaddr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ma.Multiaddr(nil), h.addrs...)
}

// Protocols 实现 Host
func (h *Host) Protocols() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := append([]string(nil), h.protos...)
	sort.Strings(out)
	return out
}

// Peers 实现 Host
func (h *Host) Peers() []types.PeerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.PeerID, 0, len(h.peers))
	for p := range h.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ConnToPeer 实现 Host
func (h *Host) ConnToPeer(peer types.PeerID) (interfaces.ConnInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.peers[peer]
	if !ok {
		return interfaces.ConnInfo{}, false
	}
	return r.info, true
}

// NewStream 实现 Host
func (h *Host) NewStream(ctx context.Context, peer types.PeerID, protocol string) (interfaces.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	r, ok := h.peers[peer]
	h.mu.Unlock()
	if !ok {
		return nil, ErrNotConnected
	}
	supported := false
	for _, p := range r.cap.Protocols() {
		if p == protocol {
			supported = true
			break
		}
	}
	if !supported {
		return nil, ErrProtocolNotSupported
	}

	local, far := net.Pipe()
	farInfo := interfaces.ConnInfo{
		Peer:       r.local,
		LocalAddr:  r.info.RemoteAddr,
		RemoteAddr: r.info.LocalAddr,
		Direction:  types.DirInbound,
		Opened:     r.info.Opened,
	}
	go r.cap.HandleStream(&Stream{rawConn: far, Proto: protocol, Info: farInfo})
	return &Stream{rawConn: local, Proto: protocol, Info: r.info}, nil
}

// rawConn 避免嵌入字段与 Conn 方法重名
type rawConn = net.Conn

// Stream net.Conn 承载的流
type Stream struct {
	rawConn
	Proto string
	Info  interfaces.ConnInfo
}

var _ interfaces.Stream = (*Stream)(nil)

// Protocol 实现 Stream
func (s *Stream) Protocol() string { return s.Proto }

// Conn 实现 Stream
func (s *Stream) Conn() interfaces.ConnInfo { return s.Info }

// ============================================================================
//                              事件记录
// ============================================================================

// Recorder 记录能力投递的事件
type Recorder struct {
	ch chan types.Event
}

var _ interfaces.Emitter = (*Recorder)(nil)

// NewRecorder 创建事件记录器
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan types.Event, 256)}
}

// Emit 实现 Emitter
func (r *Recorder) Emit(ev types.Event) {
	r.ch <- ev
}

// Next 等待下一个事件，超时返回 nil
func (r *Recorder) Next(timeout time.Duration) types.Event {
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(timeout):
		return nil
	}
}

// Len 返回未取出的事件数
func (r *Recorder) Len() int {
	return len(r.ch)
}
