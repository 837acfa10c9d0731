// Package lib 包含与架构组件无关的基础设施工具库
//
//   - crypto: Ed25519 密钥、签名与 PeerID 派生
//   - log: 基于 slog 的组件日志
//
//	import (
//	    "github.com/dep2p/go-margo/pkg/lib/crypto"
//	    "github.com/dep2p/go-margo/pkg/lib/log"
//	)
package lib
