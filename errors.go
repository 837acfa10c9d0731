package margo

import "errors"

// 公共错误定义
var (
	// ErrTransport 节点组装或传输初始化失败
	ErrTransport = errors.New("could not initialize the TCP transport")

	// ErrListen 无法在给定地址上监听，或已绑定的监听器失效
	ErrListen = errors.New("could not start listening on the given address")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")
)
