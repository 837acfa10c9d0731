package noise

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"

	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/types"
)

const (
	// maxFrameSize Noise 单条消息上限
	maxFrameSize = 65535
	// maxPlaintextSize 单帧可承载的明文（扣除 16 字节 AEAD tag）
	maxPlaintextSize = maxFrameSize - 16
)

// ============================================================================
//                              SecureConn
// ============================================================================

// SecureConn Noise 加密连接
type SecureConn struct {
	net.Conn

	send *noise.CipherState
	recv *noise.CipherState

	localPeer  types.PeerID
	remotePeer types.PeerID
	remoteKey  crypto.PublicKey

	readMu  sync.Mutex
	readBuf []byte

	writeMu  sync.Mutex
	writeBuf []byte
}

// Read 读取并解密
func (c *SecureConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.readBuf) == 0 {
		frame, err := readFrame(c.Conn)
		if err != nil {
			return 0, err
		}
		plain, err := c.recv.Decrypt(frame[:0], nil, frame)
		if err != nil {
			return 0, fmt.Errorf("decrypt: %w", err)
		}
		// 空帧合法，继续读下一帧
		c.readBuf = plain
	}

	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

// Write 加密并写入，超过单帧上限的数据按帧切分
func (c *SecureConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(p) {
		end := written + maxPlaintextSize
		if end > len(p) {
			end = len(p)
		}
		chunk := p[written:end]

		if cap(c.writeBuf) < 2+len(chunk)+16 {
			c.writeBuf = make([]byte, 0, 2+maxFrameSize)
		}
		buf := c.writeBuf[:2]
		buf, err := c.send.Encrypt(buf, nil, chunk)
		if err != nil {
			return written, fmt.Errorf("encrypt: %w", err)
		}
		binary.BigEndian.PutUint16(buf, uint16(len(buf)-2))
		if _, err := c.Conn.Write(buf); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// LocalPeer 返回本地节点 ID
func (c *SecureConn) LocalPeer() types.PeerID {
	return c.localPeer
}

// RemotePeer 返回握手认证后的远端节点 ID
func (c *SecureConn) RemotePeer() types.PeerID {
	return c.remotePeer
}

// RemotePublicKey 返回远端身份公钥
func (c *SecureConn) RemotePublicKey() crypto.PublicKey {
	return c.remoteKey
}

var _ io.ReadWriteCloser = (*SecureConn)(nil)
