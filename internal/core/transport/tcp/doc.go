// Package tcp 提供基于 TCP 的基础传输
//
// 地址使用 multiaddr 表示（/ip4/1.2.3.4/tcp/4001），与 net 地址之间的转换
// 由 go-multiaddr/net 完成。输出的连接是原始 TCP 连接，加密与多路复用
// 由 upgrader 负责。
package tcp
