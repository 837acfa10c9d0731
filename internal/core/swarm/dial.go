package swarm

import (
	"context"
	"errors"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/internal/core/transport/tcp"
	"github.com/dep2p/go-margo/pkg/types"
)

// Dial 尽力异步拨号
//
// 从不返回错误：失败只记录日志并以 DialFailed 事件出现。
// 拨号自身、已连接或正在拨号的节点会被跳过。
func (s *Swarm) Dial(addr ma.Multiaddr) {
	if addr == nil {
		return
	}
	base, peer, err := types.SplitPeerAddr(addr)
	if err != nil && !errors.Is(err, types.ErrNoPeerComponent) {
		s.dialFailed(peer, addr, err)
		return
	}

	if peer == s.local {
		logger.Debug("跳过拨号自身", "addr", addr.String())
		return
	}
	if !s.transport.CanDial(base) {
		s.dialFailed(peer, addr, tcp.ErrUnsupportedAddr)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !peer.IsEmpty() {
		if _, ok := s.conns[peer]; ok {
			s.mu.Unlock()
			logger.Debug("已连接，跳过拨号", "peer", peer.ShortString())
			return
		}
		if _, ok := s.dialing[peer]; ok {
			s.mu.Unlock()
			return
		}
		s.dialing[peer] = struct{}{}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.dial(base, peer)
}

func (s *Swarm) dial(addr ma.Multiaddr, peer types.PeerID) {
	defer s.wg.Done()
	defer func() {
		if peer.IsEmpty() {
			return
		}
		s.mu.Lock()
		delete(s.dialing, peer)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.DialTimeout)
	defer cancel()

	logger.Debug("拨号", "addr", addr.String(), "peer", peer.ShortString())
	raw, err := s.transport.Dial(ctx, addr)
	if err != nil {
		s.dialFailed(peer, addr, err)
		return
	}
	uc, err := s.upgrader.Upgrade(ctx, raw, types.DirOutbound, peer)
	if err != nil {
		s.dialFailed(peer, addr, err)
		return
	}
	s.addConn(uc)
}

// dialFailed 记录并发出 DialFailed
func (s *Swarm) dialFailed(peer types.PeerID, addr ma.Multiaddr, err error) {
	if s.ctx.Err() != nil {
		// 关闭过程中的失败不再上报
		return
	}
	logger.Debug("拨号失败", "addr", addr.String(), "error", err)
	s.emit(types.DialFailed{
		Peer: peer,
		Addr: addr,
		Err:  &DialError{Addr: addr.String(), Err: err},
	})
}
