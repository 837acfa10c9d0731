package noise

import "errors"

var (
	// ErrInvalidHandshake 握手消息无效
	ErrInvalidHandshake = errors.New("noise: invalid handshake")

	// ErrInvalidSignature 远端静态密钥未被其身份密钥签名
	ErrInvalidSignature = errors.New("noise: static key not bound to identity key")

	// ErrPeerIDMismatch 远端 PeerID 与期望不符
	ErrPeerIDMismatch = errors.New("noise: peer id mismatch")
)
