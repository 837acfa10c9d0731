package swarm

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dep2p/go-margo/internal/core/upgrader"
	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/types"
)

// Conn 连接表中的一条连接
type Conn struct {
	*upgrader.UpgradedConn

	opened time.Time

	mu       sync.Mutex
	cause    types.CloseCause
	replaced bool
}

func newConn(uc *upgrader.UpgradedConn) *Conn {
	return &Conn{UpgradedConn: uc, opened: time.Now()}
}

// Opened 返回连接建立时间
func (c *Conn) Opened() time.Time {
	return c.opened
}

// Info 返回连接快照
func (c *Conn) Info() interfaces.ConnInfo {
	return interfaces.ConnInfo{
		Peer:       c.RemotePeer(),
		LocalAddr:  c.LocalMultiaddr(),
		RemoteAddr: c.RemoteMultiaddr(),
		Direction:  c.Direction(),
		Opened:     c.opened,
	}
}

// dialer 返回拨出这条连接的一方
func (c *Conn) dialer() types.PeerID {
	if c.Direction() == types.DirOutbound {
		return c.LocalPeer()
	}
	return c.RemotePeer()
}

// closeWithCause 本端主动关闭，记录原因（只记录第一次）
func (c *Conn) closeWithCause(cause types.CloseCause) error {
	c.mu.Lock()
	if c.cause == "" {
		c.cause = cause
	}
	c.mu.Unlock()
	return c.UpgradedConn.Close()
}

// Close 以 local-close 原因关闭连接
func (c *Conn) Close() error {
	return c.closeWithCause(types.CauseLocalClose)
}

// markReplaced 标记连接已被同一节点的另一条连接取代，关闭时不产生事件
func (c *Conn) markReplaced() {
	c.mu.Lock()
	c.replaced = true
	c.mu.Unlock()
}

func (c *Conn) isReplaced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaced
}

// closeCause 返回关闭原因与底层错误
//
// 未被本端关闭时，根据会话底层的首个 I/O 错误区分远端关闭与错误。
func (c *Conn) closeCause() (types.CloseCause, error) {
	c.mu.Lock()
	cause := c.cause
	c.mu.Unlock()
	if cause != "" {
		return cause, nil
	}

	err := c.Err()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return types.CauseRemoteClose, nil
	}
	return types.CauseError, err
}
