package swarm

import (
	"context"
	"fmt"
	"time"

	hyamux "github.com/hashicorp/yamux"
	mss "github.com/multiformats/go-multistream"

	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/types"
)

// stream 已协商协议的流
type stream struct {
	*hyamux.Stream
	protocol string
	conn     interfaces.ConnInfo
}

var _ interfaces.Stream = (*stream)(nil)

// Protocol 返回协议 ID
func (s *stream) Protocol() string {
	return s.protocol
}

// Conn 返回所属连接信息
func (s *stream) Conn() interfaces.ConnInfo {
	return s.conn
}

// ============================================================================
//                              出站流
// ============================================================================

// NewStream 在与 peer 的已有连接上打开 protocol 流
func (s *Swarm) NewStream(ctx context.Context, peer types.PeerID, protocol string) (interfaces.Stream, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSwarmClosed
	}
	c, ok := s.conns[peer]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, peer.ShortString())
	}

	st, err := c.OpenStream()
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	deadline := time.Now().Add(s.cfg.NegotiateTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = st.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = st.SetDeadline(time.Unix(1, 0))
	})

	err = mss.SelectProtoOrFail(protocol, st)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("select %s: %w", protocol, err)
	}
	_ = st.SetDeadline(time.Time{})

	return &stream{Stream: st, protocol: protocol, conn: c.Info()}, nil
}

// ============================================================================
//                              入站流
// ============================================================================

// acceptStreams 接受连接上的入站流直到会话关闭
func (s *Swarm) acceptStreams(c *Conn) {
	defer s.wg.Done()
	for {
		st, err := c.AcceptStream()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleStream(c, st)
	}
}

// handleStream 协商协议并交给对应能力
func (s *Swarm) handleStream(c *Conn, st *hyamux.Stream) {
	defer s.wg.Done()

	_ = st.SetDeadline(time.Now().Add(s.cfg.NegotiateTimeout))
	proto, _, err := s.protocols.Negotiate(st)
	if err != nil {
		logger.Debug("入站流协议协商失败", "peer", c.RemotePeer().ShortString(), "error", err)
		_ = st.Close()
		return
	}
	_ = st.SetDeadline(time.Time{})

	capability, ok := s.handlers[proto]
	if !ok {
		_ = st.Close()
		return
	}
	capability.HandleStream(&stream{Stream: st, protocol: proto, conn: c.Info()})
}
