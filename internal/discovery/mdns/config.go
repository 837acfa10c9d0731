package mdns

import (
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultServiceTag mDNS 服务标签
	DefaultServiceTag = "_p2p._udp"

	// DefaultDomain mDNS 域名
	DefaultDomain = "local."

	// DNSAddrPrefix TXT 记录前缀
	DNSAddrPrefix = "dnsaddr="

	// MinQueryInterval 查询间隔下限
	MinQueryInterval = time.Second

	// maxTXTLen 单条 TXT 记录长度上限
	maxTXTLen = 255
)

// Config mDNS 发现配置
type Config struct {
	// ServiceTag 服务标签
	ServiceTag string

	// Domain 域名
	Domain string

	// QueryInterval 查询间隔，低于 MinQueryInterval 时按下限处理
	QueryInterval time.Duration

	// TTL 记录未被刷新时的存活时间
	TTL time.Duration

	// QueryTimeout 单次查询等待应答的时间
	QueryTimeout time.Duration

	// DisableIPv6 只使用 IPv4 查询与广播
	DisableIPv6 bool

	// Clock 记录过期与查询调度用时钟，测试可替换为 mock
	Clock clock.Clock
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ServiceTag:    DefaultServiceTag,
		Domain:        DefaultDomain,
		QueryInterval: 5 * time.Minute,
		TTL:           6 * time.Minute,
		QueryTimeout:  3 * time.Second,
		Clock:         clock.New(),
	}
}

// withDefaults 零值字段取默认值
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ServiceTag == "" {
		c.ServiceTag = def.ServiceTag
	}
	if c.Domain == "" {
		c.Domain = def.Domain
	}
	if c.QueryInterval < MinQueryInterval {
		c.QueryInterval = MinQueryInterval
	}
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = def.QueryTimeout
	}
	if c.Clock == nil {
		c.Clock = def.Clock
	}
	return c
}

// sweepInterval 过期检查间隔
func (c Config) sweepInterval() time.Duration {
	d := c.TTL / 4
	if d < time.Second {
		d = time.Second
	}
	return d
}
