// Package identify 实现身份交换能力
//
// 连接加入连接表后，本端向对方打开 /margo/id/1.0.0 流；响应方写出
// 一条 uvarint 长度前缀的 protobuf 消息后关闭流。
//
// # 消息字段
//
//	1: publicKey       bytes     序列化公钥
//	2: listenAddrs     bytes[]   监听地址（二进制 multiaddr）
//	3: protocols       string[]  支持的协议
//	4: observedAddr    bytes     响应方看到的请求方地址
//	5: protocolVersion string    /margo/<version>
//	6: agentVersion    string    go-margo/<version>
//
// 公钥与连接认证的 PeerID 不一致的消息被丢弃，不产生事件；
// 身份交换不重试。每个节点最近一次收到的信息保存在 LRU 缓存中。
package identify
