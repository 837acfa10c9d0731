// Package protocol 汇集节点的内置能力协议
//
// 子包：
//   - identify (/margo/id/1.0.0)：连接建立后交换公钥、版本、监听地址与协议列表
//   - ping (/margo/ping/1.0.0)：周期性 32 字节回显，测量 RTT
//   - prototest：能力测试用的内存 Host 与事件记录器
//
// 每个能力实现 interfaces.Capability，由 Swarm 按协议 ID 分发入站流。
// 协议协商使用 multistream-select，见 internal/core/upgrader。
package protocol
