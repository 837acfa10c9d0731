// Package interfaces 定义 margo 节点各层之间的公共接口
//
// # 分层
//
//	Host        - Swarm 暴露给能力模块的视图（本地身份、地址、开流）
//	Capability  - 可插拔的子协议（identify / mdns / ping）
//	Emitter     - 能力模块向统一事件流投递事件
//	ConnNotifee - 可选：接收连接加入/离开连接表的通知
//
// 能力模块之间互不引用，只通过 Host 与 Emitter 与外界交互。
package interfaces
