package interfaces

import (
	"io"
	"time"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/pkg/types"
)

// ============================================================================
//                              Stream / ConnInfo
// ============================================================================

// Stream 已完成协议协商的多路复用流
type Stream interface {
	io.ReadWriteCloser

	// Protocol 返回协商得到的协议 ID
	Protocol() string

	// Conn 返回所属连接的信息
	Conn() ConnInfo

	// SetDeadline 设置读写截止时间
	SetDeadline(t time.Time) error
}

// ConnInfo 连接的只读快照
type ConnInfo struct {
	// Peer 远端节点 ID
	Peer types.PeerID

	// LocalAddr 本端地址
	LocalAddr ma.Multiaddr

	// RemoteAddr 远端地址（不含 /p2p）
	RemoteAddr ma.Multiaddr

	// Direction 连接方向
	Direction types.Direction

	// Opened 建立时间
	Opened time.Time
}
