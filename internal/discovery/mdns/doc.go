// Package mdns 实现局域网多播 DNS 节点发现能力
//
// # 广播
//
// 监听地址变化时（重新）注册 mDNS 服务，服务名 "_p2p._udp"、域 "local."。
// 每个监听地址（通配地址展开为接口地址）写成一条 TXT 记录：
//
//	dnsaddr=/ip4/192.168.1.5/tcp/4001/p2p/12D3KooW...
//
// 实例名使用随机 UUID，不泄露节点 ID。
//
// # 查询
//
// 启动时立即查询一次，之后每 QueryInterval 查询一次（下限 1s）。
// 应答中的 dnsaddr 记录按 (PeerID, 地址) 记入记录表：
//
//   - 新记录发出 PeerDiscovered
//   - 已有记录只延长过期时间，不发事件
//   - 超过 TTL 未刷新的记录发出 PeerExpired，且只发一次
//
// 本节点自己的记录被忽略。局域网内没有其他节点是正常情况。
package mdns
