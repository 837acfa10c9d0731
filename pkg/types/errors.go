package types

import "errors"

// 公共错误定义
var (
	// ErrInvalidPeerID 无效的节点 ID
	ErrInvalidPeerID = errors.New("invalid peer id")

	// ErrNoPeerComponent 多地址不含 /p2p 组件
	ErrNoPeerComponent = errors.New("multiaddr has no /p2p component")
)
