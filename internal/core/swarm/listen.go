package swarm

import (
	"context"
	"strings"
	"sync/atomic"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/dep2p/go-margo/pkg/types"
)

// listener 已绑定的监听器
type listener struct {
	manet.Listener
	addr ma.Multiaddr
	// closing 由 Close 设置，区分主动关闭与故障
	closing atomic.Bool
}

// ParseListenAddr 解析监听地址文本
//
// 解析失败返回 *ListenError。
func ParseListenAddr(s string) (ma.Multiaddr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, &ListenError{Addr: s, Err: ErrEmptyListenAddr}
	}
	addr, err := ma.NewMultiaddr(s)
	if err != nil {
		return nil, &ListenError{Addr: s, Err: err}
	}
	return addr, nil
}

// Listen 在 addr 上监听
//
// 地址不受支持、端口被占用或传输拒绝时返回 *ListenError，不做重试。
// 成功后发出 NewListenAddr（端口已解析）。
func (s *Swarm) Listen(addr ma.Multiaddr) error {
	if addr == nil {
		return &ListenError{Addr: "<nil>", Err: ErrInvalidConfig}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &ListenError{Addr: addr.String(), Err: ErrSwarmClosed}
	}
	s.mu.Unlock()

	ml, err := s.transport.Listen(addr)
	if err != nil {
		return &ListenError{Addr: addr.String(), Err: err}
	}
	l := &listener{Listener: ml, addr: ml.Multiaddr()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ml.Close()
		return &ListenError{Addr: addr.String(), Err: ErrSwarmClosed}
	}
	s.listeners = append(s.listeners, l)
	s.queue.push(types.NewListenAddr{Addr: l.addr})
	addrs := s.listenAddrsLocked()
	started := s.started
	s.wg.Add(1)
	s.mu.Unlock()

	logger.Info("开始监听", "addr", l.addr.String())
	go s.acceptLoop(l)

	if started {
		s.notifyListenAddrs(addrs)
	}
	return nil
}

// acceptLoop 接受入站连接
//
// 非主动关闭导致的 Accept 失败上报为 *ListenerFault。
func (s *Swarm) acceptLoop(l *listener) {
	defer s.wg.Done()
	for {
		raw, err := l.Accept()
		if err != nil {
			if l.closing.Load() {
				return
			}
			logger.Error("监听器失效", "addr", l.addr.String(), "error", err)
			s.removeListener(l)
			s.queue.fail(&ListenerFault{Addr: l.addr.String(), Err: err})
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = raw.Close()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.handleInbound(raw)
	}
}

// removeListener 从监听表移除并发出 ExpiredListenAddr
func (s *Swarm) removeListener(l *listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.listeners {
		if x == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			s.queue.push(types.ExpiredListenAddr{Addr: l.addr})
			break
		}
	}
	_ = l.Close()
}

// handleInbound 升级入站连接并加入连接表
//
// 升级失败只记录日志。
func (s *Swarm) handleInbound(raw manet.Conn) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.NegotiateTimeout)
	defer cancel()

	uc, err := s.upgrader.Upgrade(ctx, raw, types.DirInbound, types.EmptyPeerID)
	if err != nil {
		logger.Debug("入站连接升级失败", "remote", raw.RemoteMultiaddr().String(), "error", err)
		return
	}
	s.addConn(uc)
}
