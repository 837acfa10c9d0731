package config

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
//                              身份交换
// ============================================================================

// IdentifyConfig 身份交换配置
type IdentifyConfig struct {
	// ProtocolVersion 通告的协议版本，空时使用 /margo/<构建版本>
	ProtocolVersion string `json:"protocol_version,omitempty"`

	// AgentVersion 通告的代理版本，空时使用 go-margo/<构建版本>
	AgentVersion string `json:"agent_version,omitempty"`

	// CacheSize 身份信息缓存条目数
	// 默认值: 256
	CacheSize int `json:"cache_size"`

	// Timeout 单次身份交换超时
	// 默认值: 30s
	Timeout Duration `json:"timeout"`
}

// DefaultIdentifyConfig 返回默认身份交换配置
func DefaultIdentifyConfig() IdentifyConfig {
	return IdentifyConfig{
		CacheSize: 256,
		Timeout:   Duration(30 * time.Second),
	}
}

// Validate 验证身份交换配置
func (c *IdentifyConfig) Validate() error {
	if c.CacheSize <= 0 {
		return fmt.Errorf("%w: identify cache size must be positive", ErrInvalidConfig)
	}
	return requirePositive("identify timeout", c.Timeout)
}

// ============================================================================
//                              局域网发现
// ============================================================================

// MinQueryInterval mDNS 查询间隔下限
const MinQueryInterval = time.Second

// DiscoveryConfig 局域网发现配置
type DiscoveryConfig struct {
	// EnableMDNS 是否启用 mDNS
	// 默认值: true
	EnableMDNS bool `json:"enable_mdns"`

	// ServiceTag 服务名
	// 默认值: _p2p._udp
	ServiceTag string `json:"service_tag"`

	// Domain 域
	// 默认值: local.
	Domain string `json:"domain"`

	// QueryInterval 查询间隔，低于 1s 时按 1s 处理
	// 默认值: 5m
	QueryInterval Duration `json:"query_interval"`

	// TTL 发现记录有效期
	// 默认值: 6m
	TTL Duration `json:"ttl"`

	// DisableIPv6 禁止在 IPv6 上查询与通告
	DisableIPv6 bool `json:"disable_ipv6,omitempty"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		EnableMDNS:    true,
		ServiceTag:    "_p2p._udp",
		Domain:        "local.",
		QueryInterval: Duration(5 * time.Minute),
		TTL:           Duration(6 * time.Minute),
	}
}

// Validate 验证发现配置
func (c *DiscoveryConfig) Validate() error {
	if !c.EnableMDNS {
		return nil
	}
	if !strings.HasPrefix(c.ServiceTag, "_") {
		return fmt.Errorf("%w: invalid mdns service tag %q", ErrInvalidConfig, c.ServiceTag)
	}
	if c.Domain == "" {
		return fmt.Errorf("%w: mdns domain is empty", ErrInvalidConfig)
	}
	if err := requirePositive("mdns query interval", c.QueryInterval); err != nil {
		return err
	}
	return requirePositive("mdns ttl", c.TTL)
}

// EffectiveQueryInterval 返回应用下限后的查询间隔
func (c DiscoveryConfig) EffectiveQueryInterval() time.Duration {
	if d := c.QueryInterval.Duration(); d > MinQueryInterval {
		return d
	}
	return MinQueryInterval
}

// ============================================================================
//                              存活探测
// ============================================================================

// LivenessConfig 存活探测配置
type LivenessConfig struct {
	// Enable 是否启用 ping
	// 默认值: true
	Enable bool `json:"enable"`

	// Interval 探测间隔
	// 默认值: 15s
	Interval Duration `json:"interval"`

	// Timeout 单次探测超时
	// 默认值: 20s
	Timeout Duration `json:"timeout"`
}

// DefaultLivenessConfig 返回默认存活探测配置
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Enable:   true,
		Interval: Duration(15 * time.Second),
		Timeout:  Duration(20 * time.Second),
	}
}

// Validate 验证存活探测配置
func (c *LivenessConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if err := requirePositive("ping interval", c.Interval); err != nil {
		return err
	}
	return requirePositive("ping timeout", c.Timeout)
}

// ============================================================================
//                              会话协调器
// ============================================================================

// SwarmConfig 会话协调器配置
type SwarmConfig struct {
	// DialTimeout 单次拨号（含升级）超时
	// 默认值: 15s
	DialTimeout Duration `json:"dial_timeout"`

	// NegotiateTimeout 入站升级与流协商超时
	// 默认值: 30s
	NegotiateTimeout Duration `json:"negotiate_timeout"`
}

// DefaultSwarmConfig 返回默认会话协调器配置
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		DialTimeout:      Duration(15 * time.Second),
		NegotiateTimeout: Duration(30 * time.Second),
	}
}

// Validate 验证会话协调器配置
func (c *SwarmConfig) Validate() error {
	if err := requirePositive("dial timeout", c.DialTimeout); err != nil {
		return err
	}
	return requirePositive("negotiate timeout", c.NegotiateTimeout)
}

// ============================================================================
//                              指标
// ============================================================================

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enable 是否暴露 HTTP 指标端点
	Enable bool `json:"enable"`

	// ListenAddr 指标端点监听地址（host:port）
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{ListenAddr: "127.0.0.1:9464"}
}

// Validate 验证指标配置
func (c *MetricsConfig) Validate() error {
	if c.Enable && c.ListenAddr == "" {
		return fmt.Errorf("%w: metrics listen address is empty", ErrInvalidConfig)
	}
	return nil
}

// ============================================================================
//                              日志
// ============================================================================

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug / info / warn / error
	// 默认值: info
	Level string `json:"level"`

	// Format 输出格式：text / json
	// 默认值: text
	Format string `json:"format"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "text"}
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Level)
	}
	switch c.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Format)
	}
	return nil
}
