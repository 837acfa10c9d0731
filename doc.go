// Package margo 启动一个局域网 P2P 节点
//
// 节点使用 TCP + Noise + yamux 传输，挂载三种能力：
//
//   - 身份交换（/margo/id/1.0.0）
//   - mDNS 局域网发现（_p2p._udp）
//   - 存活探测（/margo/ping/1.0.0）
//
// # 快速开始
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	err := margo.StartNode(ctx, "/srv/registry", "/ip4/0.0.0.0/tcp/0")
//	if errors.Is(err, margo.ErrListen) {
//	    // 端口被占用或地址无效
//	}
//
// # 分步使用
//
//	node, err := margo.New(margo.WithRegistryPath("/srv/registry"))
//	if err != nil {
//	    return err
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//	    return err
//	}
//	if err := node.Listen("/ip4/0.0.0.0/tcp/4001"); err != nil {
//	    return err
//	}
//	return node.Run(ctx)
//
// # 错误
//
// 启动阶段只返回两类致命错误：ErrTransport（节点组装或传输初始化失败）
// 与 ErrListen（监听失败或已绑定的监听器失效）。拨号失败、身份交换未完成、
// 探测失败都只作为事件出现，不会中断运行。
//
// # 输出
//
// 状态行写到 WithOutput 指定的 io.Writer（默认 os.Stdout），
// 结构化日志由 pkg/lib/log 写到 stderr。
package margo
