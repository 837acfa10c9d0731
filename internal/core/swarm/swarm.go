package swarm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	ma "github.com/multiformats/go-multiaddr"
	mss "github.com/multiformats/go-multistream"
	"go.uber.org/multierr"

	"github.com/dep2p/go-margo/internal/core/transport/tcp"
	"github.com/dep2p/go-margo/internal/core/upgrader"
	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("core/swarm")

// Swarm 会话协调器
type Swarm struct {
	local     types.PeerID
	cfg       Config
	transport *tcp.Transport
	upgrader  *upgrader.Upgrader

	caps      []interfaces.Capability
	handlers  map[string]interfaces.Capability
	protocols *mss.MultistreamMuxer[string]

	queue *eventQueue

	// ctx 在 Close 时取消，能力与后台 goroutine 以此为生命周期
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	conns     map[types.PeerID]*Conn
	dialing   map[types.PeerID]struct{}
	listeners []*listener
	started   bool
	closed    bool
}

var _ interfaces.Host = (*Swarm)(nil)

// New 组装 Swarm
//
// 能力按给定顺序注册协议处理器；同一协议被多个能力注册时返回 ErrDuplicateProtocol。
func New(local types.PeerID, tr *tcp.Transport, up *upgrader.Upgrader, caps []interfaces.Capability, cfg Config) (*Swarm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if local.IsEmpty() {
		return nil, fmt.Errorf("%w: empty local peer", ErrInvalidConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Swarm{
		local:     local,
		cfg:       cfg,
		transport: tr,
		upgrader:  up,
		caps:      caps,
		handlers:  make(map[string]interfaces.Capability),
		protocols: mss.NewMultistreamMuxer[string](),
		queue:     newEventQueue(),
		ctx:       ctx,
		cancel:    cancel,
		conns:     make(map[types.PeerID]*Conn),
		dialing:   make(map[types.PeerID]struct{}),
	}

	for _, c := range caps {
		for _, p := range c.Protocols() {
			if prev, ok := s.handlers[p]; ok {
				cancel()
				return nil, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateProtocol, p, prev.Name(), c.Name())
			}
			s.handlers[p] = c
			s.protocols.AddHandler(p, nil)
		}
	}
	return s, nil
}

// ============================================================================
//                              Host 实现
// ============================================================================

// LocalPeer 返回本地节点 ID
func (s *Swarm) LocalPeer() types.PeerID {
	return s.local
}

// ListenAddrs 返回当前监听地址
func (s *Swarm) ListenAddrs() []ma.Multiaddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddrsLocked()
}

func (s *Swarm) listenAddrsLocked() []ma.Multiaddr {
	out := make([]ma.Multiaddr, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l.addr)
	}
	return out
}

// Peers 返回已连接节点（按 PeerID 排序）
func (s *Swarm) Peers() []types.PeerID {
	s.mu.Lock()
	out := make([]types.PeerID, 0, len(s.conns))
	for p := range s.conns {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Protocols 返回已注册的入站流协议
func (s *Swarm) Protocols() []string {
	out := make([]string, 0, len(s.handlers))
	for p := range s.handlers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ConnToPeer 返回与节点的连接信息
func (s *Swarm) ConnToPeer(peer types.PeerID) (interfaces.ConnInfo, bool) {
	s.mu.Lock()
	c, ok := s.conns[peer]
	s.mu.Unlock()
	if !ok {
		return interfaces.ConnInfo{}, false
	}
	return c.Info(), true
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动所有能力
//
// ctx 只约束启动过程；能力以 Swarm 的生命周期运行，直到 Close。
// 重复调用无效果。
func (s *Swarm) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSwarmClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	addrs := s.listenAddrsLocked()
	s.mu.Unlock()

	emit := interfaces.EmitterFunc(s.emit)
	for _, c := range s.caps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Start(s.ctx, s, emit); err != nil {
			return fmt.Errorf("start capability %s: %w", c.Name(), err)
		}
		logger.Debug("能力已启动", "capability", c.Name())
	}

	// 启动前已有的监听地址
	if len(addrs) > 0 {
		s.notifyListenAddrs(addrs)
	}
	return nil
}

// NextEvent 返回事件流中的下一个事件
//
// 返回 ErrSwarmClosed 表示 Swarm 已关闭且事件已取完；
// 返回 *ListenerFault 表示监听器失效（致命）；ctx 取消时返回 ctx.Err()。
func (s *Swarm) NextEvent(ctx context.Context) (types.Event, error) {
	return s.queue.next(ctx)
}

// Close 关闭 Swarm
//
// 所有连接以 swarm-shutdown 原因关闭，每个已连接节点产生一次 ConnectionClosed；
// 每个监听地址产生一次 ExpiredListenAddr。
func (s *Swarm) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	conns := make([]*Conn, 0, len(s.conns))
	for peer, c := range s.conns {
		conns = append(conns, c)
		delete(s.conns, peer)
		s.queue.push(types.ConnectionClosed{
			Peer:  peer,
			Addr:  c.RemoteMultiaddr(),
			Cause: types.CauseSwarmShutdown,
		})
	}
	listeners := s.listeners
	s.listeners = nil
	for _, l := range listeners {
		l.closing.Store(true)
		s.queue.push(types.ExpiredListenAddr{Addr: l.addr})
	}
	s.queue.close()
	s.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.Close())
	}
	for _, c := range conns {
		_ = c.closeWithCause(types.CauseSwarmShutdown)
	}
	s.cancel()
	for _, c := range s.caps {
		err = multierr.Append(err, c.Close())
	}
	err = multierr.Append(err, s.transport.Close())

	s.wg.Wait()
	logger.Debug("Swarm 已关闭")
	return err
}

// ClosePeer 关闭与节点的连接（原因 local-close）
func (s *Swarm) ClosePeer(peer types.PeerID) error {
	s.mu.Lock()
	c, ok := s.conns[peer]
	s.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}
	return c.closeWithCause(types.CauseLocalClose)
}

// emit 投递能力事件
func (s *Swarm) emit(ev types.Event) {
	if ev == nil {
		return
	}
	s.queue.push(ev)
}

// ============================================================================
//                              连接表
// ============================================================================

// addConn 将升级完成的连接加入连接表
//
// 同一节点已有存活连接时按拨号方 PeerID 裁决；被淘汰的连接静默关闭。
func (s *Swarm) addConn(uc *upgrader.UpgradedConn) {
	c := newConn(uc)
	peer := c.RemotePeer()

	if peer == s.local {
		logger.Debug("拒绝与自身的连接", "addr", c.RemoteMultiaddr().String())
		c.markReplaced()
		_ = c.closeWithCause(types.CauseLocalClose)
		if c.Direction() == types.DirOutbound {
			s.emit(types.DialFailed{Peer: peer, Addr: c.RemoteMultiaddr(), Err: ErrDialToSelf})
		}
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.markReplaced()
		_ = c.closeWithCause(types.CauseSwarmShutdown)
		return
	}

	existing, had := s.conns[peer]
	if had && !existing.IsClosed() && !s.preferNew(existing, c) {
		s.mu.Unlock()
		logger.Debug("保留已有连接，关闭重复连接", "peer", peer.ShortString())
		c.markReplaced()
		_ = c.closeWithCause(types.CauseLocalClose)
		return
	}

	s.conns[peer] = c
	if had {
		existing.markReplaced()
	} else {
		s.queue.push(types.ConnectionEstablished{
			Peer:      peer,
			Addr:      c.RemoteMultiaddr(),
			Direction: c.Direction(),
		})
	}
	s.wg.Add(2)
	s.mu.Unlock()

	if had {
		logger.Debug("替换已有连接", "peer", peer.ShortString())
		_ = existing.closeWithCause(types.CauseLocalClose)
	} else {
		logger.Debug("连接已建立", "peer", peer.ShortString(), "direction", c.Direction().String())
	}

	info := c.Info()
	for _, cp := range s.caps {
		if n, ok := cp.(interfaces.ConnNotifee); ok {
			n.Connected(info)
		}
	}

	go s.watch(c)
	go s.acceptStreams(c)
}

// preferNew 判断新连接是否应取代已有存活连接
//
// 两条连接由不同方拨出时，保留较小 PeerID 拨出的那条；同一方拨出时新连接优先。
func (s *Swarm) preferNew(existing, fresh *Conn) bool {
	de, df := existing.dialer(), fresh.dialer()
	if de == df {
		return true
	}
	return df.Less(de)
}

// watch 等待连接关闭并更新连接表
func (s *Swarm) watch(c *Conn) {
	defer s.wg.Done()
	<-c.CloseChan()

	peer := c.RemotePeer()
	s.mu.Lock()
	current := s.conns[peer] == c && !c.isReplaced()
	if current {
		delete(s.conns, peer)
		cause, err := c.closeCause()
		s.queue.push(types.ConnectionClosed{
			Peer:  peer,
			Addr:  c.RemoteMultiaddr(),
			Cause: cause,
			Err:   err,
		})
	}
	s.mu.Unlock()

	if !current {
		return
	}
	logger.Debug("连接已断开", "peer", peer.ShortString())
	info := c.Info()
	for _, cp := range s.caps {
		if n, ok := cp.(interfaces.ConnNotifee); ok {
			n.Disconnected(info)
		}
	}
}

// notifyListenAddrs 通知能力监听地址变化
func (s *Swarm) notifyListenAddrs(addrs []ma.Multiaddr) {
	for _, cp := range s.caps {
		if n, ok := cp.(interfaces.ListenNotifee); ok {
			n.ListenAddrsChanged(addrs)
		}
	}
}
