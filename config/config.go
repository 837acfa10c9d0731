// Package config 提供 margo 节点的统一配置
//
// 主 Config 结构体嵌入各组件子配置，每个子配置在独立文件中定义，
// 支持从 JSON 文件加载。配置在启动时验证一次。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.RegistryPath = "/var/lib/margo"
//	cfg.Discovery.QueryInterval = config.Duration(time.Minute)
//
//	// 从 JSON 文件加载
//	cfg, err := config.LoadFile("margo.json")
package config

import (
	"errors"
	"fmt"
)

// DefaultListenAddr 默认监听地址（所有 IPv4 接口，随机端口）
const DefaultListenAddr = "/ip4/0.0.0.0/tcp/0"

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("invalid config")

// Config 是 margo 节点的完整配置
//
//   - Identify: 身份交换
//   - Discovery: 局域网发现
//   - Liveness: 存活探测
//   - Swarm: 会话协调器超时
//   - Metrics: Prometheus 指标
//   - Log: 日志级别
type Config struct {
	// ListenAddr 监听地址（multiaddr 文本）
	ListenAddr string `json:"listen_addr"`

	// RegistryPath 注册表标识（本地路径）
	RegistryPath string `json:"registry_path"`

	// Identify 身份交换配置
	Identify IdentifyConfig `json:"identify"`

	// Discovery 发现配置
	Discovery DiscoveryConfig `json:"discovery"`

	// Liveness 存活探测配置
	Liveness LivenessConfig `json:"liveness"`

	// Swarm 会话协调器配置
	Swarm SwarmConfig `json:"swarm"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
//
// RegistryPath 没有默认值，调用方必须设置。
func NewConfig() *Config {
	return &Config{
		ListenAddr: DefaultListenAddr,
		Identify:   DefaultIdentifyConfig(),
		Discovery:  DefaultDiscoveryConfig(),
		Liveness:   DefaultLivenessConfig(),
		Swarm:      DefaultSwarmConfig(),
		Metrics:    DefaultMetricsConfig(),
		Log:        DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen address is empty", ErrInvalidConfig)
	}
	if c.RegistryPath == "" {
		return fmt.Errorf("%w: registry path is empty", ErrInvalidConfig)
	}

	validators := []interface{ Validate() error }{
		&c.Identify,
		&c.Discovery,
		&c.Liveness,
		&c.Swarm,
		&c.Metrics,
		&c.Log,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone 返回配置的深拷贝
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
