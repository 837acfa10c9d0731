// Package types 定义 margo P2P 节点的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 go-margo 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - ids.go     - PeerID（公钥派生的节点标识）
//   - enums.go   - Direction, CloseCause
//   - events.go  - 统一事件流中的所有事件类型
//   - errors.go  - 公共错误定义
//
// # 事件模型
//
// Swarm 输出一条有序事件流，事件类型是封闭集合：
//
//	Event
//	 ├── 协调器事件: NewListenAddr, ExpiredListenAddr,
//	 │             ConnectionEstablished, ConnectionClosed, DialFailed
//	 └── 能力事件:   IdentityReceived, PeerDiscovered, PeerExpired, LivenessResult
//
// 事件循环通过 type switch 分发，未知类型直接忽略。
package types
