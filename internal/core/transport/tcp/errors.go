package tcp

import "errors"

var (
	// ErrUnsupportedAddr 地址不是 TCP 地址
	ErrUnsupportedAddr = errors.New("tcp: unsupported multiaddr")

	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("tcp: transport closed")
)
