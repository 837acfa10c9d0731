package upgrader

import (
	"sync"

	hyamux "github.com/hashicorp/yamux"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/internal/core/security/noise"
	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/types"
)

// UpgradedConn 升级完成的连接
type UpgradedConn struct {
	*hyamux.Session

	secure     *noise.SecureConn
	rec        *errRecorder
	dir        types.Direction
	localAddr  ma.Multiaddr
	remoteAddr ma.Multiaddr
}

// LocalPeer 返回本地节点 ID
func (c *UpgradedConn) LocalPeer() types.PeerID {
	return c.secure.LocalPeer()
}

// RemotePeer 返回握手认证后的远端节点 ID
func (c *UpgradedConn) RemotePeer() types.PeerID {
	return c.secure.RemotePeer()
}

// RemotePublicKey 返回远端身份公钥
func (c *UpgradedConn) RemotePublicKey() crypto.PublicKey {
	return c.secure.RemotePublicKey()
}

// Direction 返回连接方向
func (c *UpgradedConn) Direction() types.Direction {
	return c.dir
}

// LocalMultiaddr 返回本端地址
func (c *UpgradedConn) LocalMultiaddr() ma.Multiaddr {
	return c.localAddr
}

// RemoteMultiaddr 返回远端地址
func (c *UpgradedConn) RemoteMultiaddr() ma.Multiaddr {
	return c.remoteAddr
}

// Err 返回会话底层首个读写错误，未出错时为 nil
func (c *UpgradedConn) Err() error {
	return c.rec.get()
}

// errRecorder 记录加密连接上首个读写错误，用于区分断开原因
type errRecorder struct {
	*noise.SecureConn

	mu  sync.Mutex
	err error
}

func (r *errRecorder) record(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

func (r *errRecorder) get() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *errRecorder) Read(p []byte) (int, error) {
	n, err := r.SecureConn.Read(p)
	r.record(err)
	return n, err
}

func (r *errRecorder) Write(p []byte) (int, error) {
	n, err := r.SecureConn.Write(p)
	r.record(err)
	return n, err
}
