package mdns

import "errors"

var (
	// ErrClosed 服务已关闭
	ErrClosed = errors.New("mdns: service closed")

	// ErrNoPeerID dnsaddr 记录缺少 /p2p 组件
	ErrNoPeerID = errors.New("mdns: dnsaddr record without peer id")

	// ErrNotDNSAddr TXT 记录不是 dnsaddr 记录
	ErrNotDNSAddr = errors.New("mdns: not a dnsaddr record")
)
