package noise

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/protocolids"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("core/security/noise")

// Transport Noise 安全传输
//
// 只持有本地身份，不保存任何每连接状态。
type Transport struct {
	id *identity.Identity
}

// New 创建 Noise 传输
func New(id *identity.Identity) (*Transport, error) {
	if id == nil {
		return nil, identity.ErrNilIdentity
	}
	return &Transport{id: id}, nil
}

// ID 返回协商用的协议 ID
func (t *Transport) ID() string {
	return protocolids.Noise
}

// SecureInbound 以响应者身份握手
func (t *Transport) SecureInbound(ctx context.Context, conn net.Conn) (*SecureConn, error) {
	return t.secure(ctx, conn, types.EmptyPeerID, false)
}

// SecureOutbound 以发起者身份握手
//
// expected 非空时校验远端 PeerID。
func (t *Transport) SecureOutbound(ctx context.Context, conn net.Conn, expected types.PeerID) (*SecureConn, error) {
	return t.secure(ctx, conn, expected, true)
}

func (t *Transport) secure(ctx context.Context, conn net.Conn, expected types.PeerID, initiator bool) (*SecureConn, error) {
	if conn == nil {
		return nil, fmt.Errorf("noise: nil conn")
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err == nil {
			defer conn.SetDeadline(time.Time{})
		}
	}

	// ctx 取消时中断阻塞的握手读写
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	res, err := performHandshake(conn, t.id.PrivateKey(), expected, initiator)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && err != ctxErr {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		logger.Debug("Noise 握手失败",
			"initiator", initiator,
			"remote", conn.RemoteAddr().String(),
			"error", err)
		return nil, fmt.Errorf("noise handshake: %w", err)
	}

	logger.Debug("Noise 握手成功", "initiator", initiator, "remotePeer", res.remotePeer.ShortString())
	return &SecureConn{
		Conn:       conn,
		send:       res.send,
		recv:       res.recv,
		localPeer:  t.id.PeerID(),
		remotePeer: res.remotePeer,
		remoteKey:  res.remoteKey,
	}, nil
}
