package identify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/transport/tcp"
	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/protocolids"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("protocol/identify")

// Config 身份交换配置
type Config struct {
	ProtocolVersion string
	AgentVersion    string
	CacheSize       int
	Timeout         time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ProtocolVersion: protocolids.ProtocolVersion("0.1.0"),
		AgentVersion:    protocolids.AgentVersion("0.1.0"),
		CacheSize:       256,
		Timeout:         30 * time.Second,
	}
}

// Info 从对方收到的身份信息
type Info struct {
	Peer            types.PeerID
	PublicKey       crypto.PublicKey
	ProtocolVersion string
	AgentVersion    string
	ListenAddrs     []ma.Multiaddr
	Protocols       []string
	// ObservedAddr 对方看到的本端地址，可能为 nil
	ObservedAddr ma.Multiaddr
	Received     time.Time
}

// Service 身份交换能力
type Service struct {
	id    *identity.Identity
	cfg   Config
	cache *lru.Cache[types.PeerID, *Info]

	mu     sync.Mutex
	host   interfaces.Host
	emit   interfaces.Emitter
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

var (
	_ interfaces.Capability  = (*Service)(nil)
	_ interfaces.ConnNotifee = (*Service)(nil)
)

// New 创建身份交换服务
func New(id *identity.Identity, cfg Config) (*Service, error) {
	if id == nil {
		return nil, identity.ErrNilIdentity
	}
	def := DefaultConfig()
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = def.ProtocolVersion
	}
	if cfg.AgentVersion == "" {
		cfg.AgentVersion = def.AgentVersion
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	cache, err := lru.New[types.PeerID, *Info](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("identify cache: %w", err)
	}
	return &Service{id: id, cfg: cfg, cache: cache}, nil
}

// Name 实现 Capability
func (s *Service) Name() string { return "identify" }

// Protocols 实现 Capability
func (s *Service) Protocols() []string { return []string{protocolids.Identify} }

// Start 实现 Capability
func (s *Service) Start(ctx context.Context, host interfaces.Host, emit interfaces.Emitter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("identify service closed")
	}
	s.host = host
	s.emit = emit
	s.ctx, s.cancel = context.WithCancel(ctx)
	return nil
}

// Close 实现 Capability，等待进行中的交换结束
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Info 返回缓存中节点最近一次的身份信息
func (s *Service) Info(peer types.PeerID) (*Info, bool) {
	return s.cache.Get(peer)
}

// ============================================================================
//                              请求方
// ============================================================================

// Connected 实现 ConnNotifee：每条加入连接表的连接触发一次交换
func (s *Service) Connected(c interfaces.ConnInfo) {
	s.mu.Lock()
	if s.closed || s.ctx == nil {
		s.mu.Unlock()
		return
	}
	ctx, emit := s.ctx, s.emit
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		info, err := s.Identify(ctx, c.Peer)
		if err != nil {
			logger.Debug("身份交换失败", "peer", c.Peer.ShortString(), "error", err)
			return
		}
		emit.Emit(types.IdentityReceived{
			Peer:            info.Peer,
			ProtocolVersion: info.ProtocolVersion,
			AgentVersion:    info.AgentVersion,
			ListenAddrs:     info.ListenAddrs,
			Protocols:       info.Protocols,
			ObservedAddr:    info.ObservedAddr,
		})
	}()
}

// Disconnected 实现 ConnNotifee；缓存保留到被淘汰
func (s *Service) Disconnected(interfaces.ConnInfo) {}

// Identify 向 peer 请求身份信息并写入缓存
//
// 要求已存在连接。公钥与 peer 不符时返回 ErrPeerMismatch。
func (s *Service) Identify(ctx context.Context, peer types.PeerID) (*Info, error) {
	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	if host == nil {
		return nil, ErrNotStarted
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	st, err := host.NewStream(ctx, peer, protocolids.Identify)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	deadline, _ := ctx.Deadline()
	_ = st.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = st.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	msg, err := readMessage(st)
	if err != nil {
		return nil, fmt.Errorf("read identify message: %w", err)
	}

	info, err := s.consume(peer, msg)
	if err != nil {
		return nil, err
	}
	s.cache.Add(peer, info)
	return info, nil
}

// consume 校验消息并转换为 Info
func (s *Service) consume(peer types.PeerID, msg *message) (*Info, error) {
	remote, pub, err := identity.PeerIDFromMarshalledKey(msg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeerMismatch, err)
	}
	if remote != peer {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrPeerMismatch, remote.ShortString(), peer.ShortString())
	}

	info := &Info{
		Peer:            peer,
		PublicKey:       pub,
		ProtocolVersion: msg.ProtocolVersion,
		AgentVersion:    msg.AgentVersion,
		Protocols:       msg.Protocols,
		Received:        time.Now(),
	}
	for _, raw := range msg.ListenAddrs {
		a, err := ma.NewMultiaddrBytes(raw)
		if err != nil {
			logger.Debug("忽略无效监听地址", "peer", peer.ShortString(), "error", err)
			continue
		}
		info.ListenAddrs = append(info.ListenAddrs, a)
	}
	if len(msg.ObservedAddr) > 0 {
		if a, err := ma.NewMultiaddrBytes(msg.ObservedAddr); err == nil {
			info.ObservedAddr = a
		}
	}
	return info, nil
}

// ============================================================================
//                              响应方
// ============================================================================

// HandleStream 实现 Capability：写出本端身份信息
func (s *Service) HandleStream(st interfaces.Stream) {
	defer st.Close()

	msg, err := s.localMessage(st.Conn())
	if err != nil {
		logger.Warn("构造身份消息失败", "error", err)
		return
	}
	_ = st.SetDeadline(time.Now().Add(s.cfg.Timeout))
	if err := writeMessage(st, msg); err != nil {
		logger.Debug("发送身份消息失败", "peer", st.Conn().Peer.ShortString(), "error", err)
	}
}

func (s *Service) localMessage(c interfaces.ConnInfo) (*message, error) {
	pub, err := s.id.MarshalPublicKey()
	if err != nil {
		return nil, err
	}
	msg := &message{
		PublicKey:       pub,
		ProtocolVersion: s.cfg.ProtocolVersion,
		AgentVersion:    s.cfg.AgentVersion,
	}
	if c.RemoteAddr != nil {
		msg.ObservedAddr = c.RemoteAddr.Bytes()
	}

	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	if host == nil {
		return msg, nil
	}

	msg.Protocols = host.Protocols()
	addrs := host.ListenAddrs()
	if resolved, err := tcp.ResolveWildcard(addrs); err == nil {
		addrs = resolved
	}
	for _, a := range addrs {
		msg.ListenAddrs = append(msg.ListenAddrs, a.Bytes())
	}
	return msg, nil
}
