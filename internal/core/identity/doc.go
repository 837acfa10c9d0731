// Package identity 提供节点身份
//
// 每个进程启动时生成一个新的 Ed25519 密钥对，PeerID 由公钥派生。
// 私钥只在内存中存在，不做任何持久化。
//
// 身份通过 fx 注入到传输层（Noise 握手）和 identify 能力，不使用全局变量。
package identity
