// Package metrics 将节点事件流汇总为 Prometheus 指标
//
// 指标注册在独立的 Registry 上，不污染全局 DefaultRegisterer。
// 事件循环对每个事件调用 Observe；启用时由 Server 在 /metrics 暴露。
//
//	m := metrics.New()
//	m.Observe(types.ConnectionEstablished{...})
//	http.Handle("/metrics", m.Handler())
//
// # 指标
//
//	margo_connected_peers                 当前连接的节点数
//	margo_connections_opened_total        按方向统计的连接建立次数
//	margo_connections_closed_total        按原因统计的连接关闭次数
//	margo_dial_failures_total             拨号失败次数
//	margo_listen_addrs                    当前监听地址数
//	margo_mdns_peers_discovered_total     mDNS 发现的节点地址数
//	margo_mdns_peers_expired_total        mDNS 过期的节点地址数
//	margo_identify_received_total         收到的身份信息数
//	margo_ping_rtt_seconds                存活探测往返时间
//	margo_ping_failures_total             存活探测失败次数
package metrics
