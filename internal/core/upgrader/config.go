package upgrader

import (
	"time"

	"github.com/dep2p/go-margo/internal/core/muxer/yamux"
	"github.com/dep2p/go-margo/pkg/protocolids"
)

// Config 升级器配置
type Config struct {
	// Security 安全协议 ID，目前只支持 /noise
	Security string

	// Muxer 多路复用协议 ID，目前只支持 /yamux/1.0.0
	Muxer string

	// Yamux yamux 会话参数
	Yamux yamux.Config

	// NegotiateTimeout 单次 multistream 协商与握手的超时
	NegotiateTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Security:         protocolids.Noise,
		Muxer:            protocolids.Yamux,
		Yamux:            yamux.DefaultConfig(),
		NegotiateTimeout: 30 * time.Second,
	}
}
