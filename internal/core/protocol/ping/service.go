package ping

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/protocolids"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("protocol/ping")

const (
	// PingSize 单次探测数据长度
	PingSize = 32

	// handlerIdleTimeout 响应方等待下一次探测的上限
	handlerIdleTimeout = 60 * time.Second
)

// Config 存活探测配置
type Config struct {
	// Interval 探测间隔
	Interval time.Duration

	// Timeout 单次探测超时
	Timeout time.Duration

	// Clock 调度用时钟，测试可替换为 mock
	Clock clock.Clock
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Second,
		Timeout:  20 * time.Second,
		Clock:    clock.New(),
	}
}

// Service 存活探测能力
type Service struct {
	cfg Config

	mu      sync.Mutex
	host    interfaces.Host
	emit    interfaces.Emitter
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	probers map[types.PeerID]*prober
	wg      sync.WaitGroup
}

// prober 某条连接上的探测循环
type prober struct {
	conn   interfaces.ConnInfo
	cancel context.CancelFunc
}

// sameConn 判断两个快照是否描述同一条连接
func sameConn(a, b interfaces.ConnInfo) bool {
	if a.Peer != b.Peer || a.Direction != b.Direction || !a.Opened.Equal(b.Opened) {
		return false
	}
	if a.RemoteAddr == nil || b.RemoteAddr == nil {
		return a.RemoteAddr == nil && b.RemoteAddr == nil
	}
	return a.RemoteAddr.Equal(b.RemoteAddr)
}

var (
	_ interfaces.Capability  = (*Service)(nil)
	_ interfaces.ConnNotifee = (*Service)(nil)
)

// New 创建存活探测服务，零值字段取默认值
func New(cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	return &Service{cfg: cfg, probers: make(map[types.PeerID]*prober)}
}

// Name 实现 Capability
func (s *Service) Name() string { return "ping" }

// Protocols 实现 Capability
func (s *Service) Protocols() []string { return []string{protocolids.Ping} }

// Start 实现 Capability
func (s *Service) Start(ctx context.Context, host interfaces.Host, emit interfaces.Emitter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("ping service closed")
	}
	s.host = host
	s.emit = emit
	s.ctx, s.cancel = context.WithCancel(ctx)
	return nil
}

// Close 实现 Capability
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
	s.probers = make(map[types.PeerID]*prober)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// ============================================================================
//                              探测调度
// ============================================================================

// Connected 实现 ConnNotifee：为节点启动探测循环
//
// 同一连接重复通知时忽略；新连接替换旧连接的循环。
func (s *Service) Connected(c interfaces.ConnInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx == nil {
		return
	}
	if p, ok := s.probers[c.Peer]; ok {
		if sameConn(p.conn, c) {
			return
		}
		p.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.probers[c.Peer] = &prober{conn: c, cancel: cancel}
	s.wg.Add(1)
	go s.probeLoop(ctx, c.Peer, s.host, s.emit)
}

// Disconnected 实现 ConnNotifee：停止该连接的探测循环
//
// 重连时旧连接的断开通知可能晚于新连接的建立通知，此时保留新循环。
func (s *Service) Disconnected(c interfaces.ConnInfo) {
	s.mu.Lock()
	p, ok := s.probers[c.Peer]
	if ok && sameConn(p.conn, c) {
		delete(s.probers, c.Peer)
	} else {
		ok = false
	}
	s.mu.Unlock()
	if ok {
		p.cancel()
	}
}

// probeLoop 立即探测一次，之后按间隔探测
func (s *Service) probeLoop(ctx context.Context, peer types.PeerID, host interfaces.Host, emit interfaces.Emitter) {
	defer s.wg.Done()

	ticker := s.cfg.Clock.Ticker(s.cfg.Interval)
	defer ticker.Stop()

	var st interfaces.Stream
	defer func() {
		if st != nil {
			_ = st.Close()
		}
	}()

	for {
		if st == nil {
			var err error
			st, err = s.openStream(ctx, host, peer)
			if err != nil {
				st = nil
				if ctx.Err() != nil {
					return
				}
				emit.Emit(types.LivenessResult{Peer: peer, Err: err})
			}
		}
		if st != nil {
			rtt, err := Ping(ctx, st, s.cfg.Timeout)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				// 流出错后下次重新打开
				_ = st.Close()
				st = nil
				logger.Debug("探测失败", "peer", peer.ShortString(), "error", err)
			}
			emit.Emit(types.LivenessResult{Peer: peer, RTT: rtt, Err: err})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) openStream(ctx context.Context, host interfaces.Host, peer types.PeerID) (interfaces.Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	st, err := host.NewStream(ctx, peer, protocolids.Ping)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrPingTimeout, err)
		}
		return nil, err
	}
	return st, nil
}

// Ping 在已协商的流上执行一次探测，返回往返时间
func Ping(ctx context.Context, st io.ReadWriter, timeout time.Duration) (time.Duration, error) {
	if d, ok := st.(interface{ SetDeadline(time.Time) error }); ok {
		_ = d.SetDeadline(time.Now().Add(timeout))
		stop := context.AfterFunc(ctx, func() { _ = d.SetDeadline(time.Unix(1, 0)) })
		defer stop()
	}

	buf := make([]byte, PingSize)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := st.Write(buf); err != nil {
		return 0, classify(err)
	}
	echo := make([]byte, PingSize)
	if _, err := io.ReadFull(st, echo); err != nil {
		return 0, classify(err)
	}
	rtt := time.Since(start)

	if !bytes.Equal(buf, echo) {
		return 0, ErrDataMismatch
	}
	return rtt, nil
}

// classify 将超时错误归一为 ErrPingTimeout
func classify(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrPingTimeout, err)
	}
	return err
}

// ============================================================================
//                              响应方
// ============================================================================

// HandleStream 实现 Capability：回显每次收到的 32 字节
func (s *Service) HandleStream(st interfaces.Stream) {
	defer st.Close()

	buf := make([]byte, PingSize)
	for {
		_ = st.SetDeadline(time.Now().Add(handlerIdleTimeout))
		if _, err := io.ReadFull(st, buf); err != nil {
			return
		}
		if _, err := st.Write(buf); err != nil {
			return
		}
	}
}
