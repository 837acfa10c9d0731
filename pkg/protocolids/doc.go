// Package protocolids 定义 margo 所有协议 ID 的注册表
//
// 所有模块、测试、CLI 在需要协议 ID 时引用本包常量，不在别处写字面量。
//
// # 协议命名规范
//
//   - 节点协议: /margo/{name}/{version}
//   - 连接升级协议沿用 libp2p 的 ID（/noise, /yamux/1.0.0），便于互通
package protocolids
