package swarm

import (
	"fmt"
	"time"
)

// Config Swarm 配置
type Config struct {
	// DialTimeout 单次拨号（含升级）超时
	DialTimeout time.Duration

	// NegotiateTimeout 入站升级与流协议协商超时
	NegotiateTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		DialTimeout:      15 * time.Second,
		NegotiateTimeout: 30 * time.Second,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: dial timeout must be positive", ErrInvalidConfig)
	}
	if c.NegotiateTimeout <= 0 {
		return fmt.Errorf("%w: negotiate timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
