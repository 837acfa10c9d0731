package types

// ============================================================================
//                              Direction - 连接方向
// ============================================================================

// Direction 连接方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站连接（对方拨号）
	DirInbound
	// DirOutbound 出站连接（本端拨号）
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              CloseCause - 断开原因
// ============================================================================

// CloseCause 连接关闭原因分类
//
// ConnectionClosed 事件总是携带非空的原因分类。
type CloseCause string

const (
	// CauseLocalClose 本端主动关闭
	CauseLocalClose CloseCause = "local-close"
	// CauseRemoteClose 远端关闭（EOF / 对端 GoAway）
	CauseRemoteClose CloseCause = "remote-close"
	// CauseSwarmShutdown Swarm 关闭导致的断开
	CauseSwarmShutdown CloseCause = "swarm-shutdown"
	// CauseError 连接因错误终止
	CauseError CloseCause = "error"
)

// String 返回原因的字符串表示
func (c CloseCause) String() string {
	if c == "" {
		return string(CauseError)
	}
	return string(c)
}
