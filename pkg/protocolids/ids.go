package protocolids

import "strings"

// Prefix margo 节点协议前缀
const Prefix = "/margo/"

// ============================================================================
//                              节点协议
// ============================================================================

// Identify 身份交换协议
const Identify = "/margo/id/1.0.0"

// Ping 存活探测协议
const Ping = "/margo/ping/1.0.0"

// ============================================================================
//                              连接升级协议
// ============================================================================

// Noise Noise XX 安全握手
const Noise = "/noise"

// Yamux yamux 流多路复用
const Yamux = "/yamux/1.0.0"

// ============================================================================
//                              辅助函数
// ============================================================================

// ProtocolVersion 返回 identify 中公告的协议版本 /margo/<version>
func ProtocolVersion(version string) string {
	return Prefix + strings.TrimPrefix(version, "v")
}

// AgentVersion 返回 identify 中公告的代理版本 go-margo/<version>
func AgentVersion(version string) string {
	return "go-margo/" + strings.TrimPrefix(version, "v")
}

// IsNodeProtocol 判断协议是否属于 /margo/ 命名空间
func IsNodeProtocol(p string) bool {
	return strings.HasPrefix(p, Prefix)
}
