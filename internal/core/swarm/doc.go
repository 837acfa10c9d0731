// Package swarm 实现会话协调器
//
// Swarm 拥有传输、升级器、能力集合与连接表，负责监听、拨号、接受连接，
// 并把协调器事件与能力事件合并为一条有序事件流。
//
// # 连接表
//
// 每个远端节点最多一条连接。同时打开产生的重复连接按确定性规则裁决：
// 保留由较小 PeerID 一方拨出的连接。重连替换失效的旧连接时不产生事件。
//
//	未连接 ──(首条连接入表)──▶ 已连接   发出 ConnectionEstablished
//	已连接 ──(表项移除)──────▶ 未连接   发出 ConnectionClosed（恰好一次）
//
// 表的修改与对应事件入队在同一把锁下完成，因此同一节点的
// Established / Closed 顺序总是成立。
//
// # 事件流
//
// 事件队列无界，生产者从不阻塞，事件从不丢弃。NextEvent 依次返回事件；
// 监听器故障在之前的事件被取走后以 *ListenerFault 返回。
package swarm
