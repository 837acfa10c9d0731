package upgrader

import (
	"context"
	"fmt"
	"time"

	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/muxer/yamux"
	"github.com/dep2p/go-margo/internal/core/security/noise"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/protocolids"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("core/upgrader")

// Upgrader 连接升级器
type Upgrader struct {
	security *noise.Transport
	muxer    *yamux.Factory
	timeout  time.Duration
}

// Build 根据身份与配置构造升级器
//
// 任何失败都以 *TransportError 返回，调用方不应重试。
func Build(id *identity.Identity, cfg Config) (*Upgrader, error) {
	if cfg.Security != protocolids.Noise {
		return nil, &TransportError{Component: "security", Err: fmt.Errorf("%w: %q", ErrNoSecurityTransport, cfg.Security)}
	}
	sec, err := noise.New(id)
	if err != nil {
		return nil, &TransportError{Component: "security", Err: err}
	}

	if cfg.Muxer != protocolids.Yamux {
		return nil, &TransportError{Component: "muxer", Err: fmt.Errorf("%w: %q", ErrNoStreamMuxer, cfg.Muxer)}
	}
	mux, err := yamux.NewFactory(cfg.Yamux)
	if err != nil {
		return nil, &TransportError{Component: "muxer", Err: err}
	}

	timeout := cfg.NegotiateTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().NegotiateTimeout
	}
	return &Upgrader{security: sec, muxer: mux, timeout: timeout}, nil
}

// Upgrade 升级原始连接
//
// dir 为 DirInbound 时本端为响应者与 yamux server。expected 非空时
// 校验远端 PeerID（仅出站有意义）。失败时 raw 被关闭。
func (u *Upgrader) Upgrade(ctx context.Context, raw manet.Conn, dir types.Direction, expected types.PeerID) (*UpgradedConn, error) {
	conn, err := u.upgrade(ctx, raw, dir, expected)
	if err != nil {
		_ = raw.Close()
		logger.Debug("连接升级失败",
			"direction", dir.String(),
			"remote", raw.RemoteMultiaddr().String(),
			"error", err)
		return nil, err
	}
	logger.Debug("连接升级成功",
		"direction", dir.String(),
		"remotePeer", conn.RemotePeer().ShortString())
	return conn, nil
}

func (u *Upgrader) upgrade(ctx context.Context, raw manet.Conn, dir types.Direction, expected types.PeerID) (*UpgradedConn, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	isServer := dir == types.DirInbound

	if err := negotiate(ctx, raw, u.security.ID(), isServer); err != nil {
		return nil, &UpgradeError{Stage: "security-negotiation", Err: err}
	}

	var (
		sc  *noise.SecureConn
		err error
	)
	if isServer {
		sc, err = u.security.SecureInbound(ctx, raw)
	} else {
		sc, err = u.security.SecureOutbound(ctx, raw, expected)
	}
	if err != nil {
		return nil, &UpgradeError{Stage: "handshake", Err: err}
	}

	if err := negotiate(ctx, sc, u.muxer.ID(), isServer); err != nil {
		return nil, &UpgradeError{Stage: "muxer-negotiation", Err: err}
	}

	rec := &errRecorder{SecureConn: sc}
	sess, err := u.muxer.NewSession(rec, isServer)
	if err != nil {
		return nil, &UpgradeError{Stage: "muxer", Err: err}
	}

	return &UpgradedConn{
		Session:    sess,
		secure:     sc,
		rec:        rec,
		dir:        dir,
		localAddr:  raw.LocalMultiaddr(),
		remoteAddr: raw.RemoteMultiaddr(),
	}, nil
}
