package identify

import "errors"

var (
	// ErrMessageTooLarge 消息超过上限
	ErrMessageTooLarge = errors.New("identify message too large")

	// ErrMalformedMessage 消息格式错误
	ErrMalformedMessage = errors.New("malformed identify message")

	// ErrPeerMismatch 消息公钥与连接认证的 PeerID 不符
	ErrPeerMismatch = errors.New("identify public key does not match peer")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("identify service not started")
)
