// Package yamux 在加密连接上建立 yamux 多路复用会话
//
// 协议 ID 为 /yamux/1.0.0。会话内置 keepalive，用于感知底层连接失效；
// 会话本身不做空闲回收。
package yamux
