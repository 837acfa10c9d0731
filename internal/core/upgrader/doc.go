// Package upgrader 将原始 TCP 连接升级为认证、加密、多路复用的连接
//
// 升级流程：
//
//	raw conn
//	  │ multistream-select /noise
//	  ▼
//	Noise XX 握手（确定远端 PeerID）
//	  │ multistream-select /yamux/1.0.0
//	  ▼
//	yamux 会话
//
// Upgrader 是无状态工厂，由 Build 根据身份与配置一次性构造；
// 构造失败返回 *TransportError，属于启动期致命错误。
package upgrader
