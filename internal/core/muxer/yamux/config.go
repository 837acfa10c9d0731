package yamux

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/yamux"
)

// Config yamux 会话配置
type Config struct {
	// AcceptBacklog 未 Accept 的入站流上限
	AcceptBacklog int

	// EnableKeepAlive 是否发送 keepalive ping
	EnableKeepAlive bool

	// KeepAliveInterval keepalive 间隔
	KeepAliveInterval time.Duration

	// ConnectionWriteTimeout 单次写超时
	ConnectionWriteTimeout time.Duration

	// MaxStreamWindowSize 单流接收窗口
	MaxStreamWindowSize uint32

	// StreamOpenTimeout 打开流等待 ACK 的超时
	StreamOpenTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		AcceptBacklog:          256,
		EnableKeepAlive:        true,
		KeepAliveInterval:      30 * time.Second,
		ConnectionWriteTimeout: 10 * time.Second,
		MaxStreamWindowSize:    256 * 1024,
		StreamOpenTimeout:      75 * time.Second,
	}
}

// toYamux 转换为 yamux 原生配置
func (c Config) toYamux() *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.AcceptBacklog = c.AcceptBacklog
	cfg.EnableKeepAlive = c.EnableKeepAlive
	cfg.KeepAliveInterval = c.KeepAliveInterval
	cfg.ConnectionWriteTimeout = c.ConnectionWriteTimeout
	cfg.MaxStreamWindowSize = c.MaxStreamWindowSize
	cfg.StreamOpenTimeout = c.StreamOpenTimeout
	cfg.LogOutput = io.Discard
	return cfg
}

// Validate 校验配置
func (c Config) Validate() error {
	if err := yamux.VerifyConfig(c.toYamux()); err != nil {
		return fmt.Errorf("yamux config: %w", err)
	}
	return nil
}
