package mdns

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/pkg/interfaces"
)

// Output 模块输出
type Output struct {
	fx.Out

	Service    *Service
	Capability interfaces.Capability `group:"capabilities"`
}

// ConfigFromUnified 从统一配置创建 mDNS 配置
func ConfigFromUnified(cfg *config.Config) Config {
	d := cfg.Discovery
	return Config{
		ServiceTag:    d.ServiceTag,
		Domain:        d.Domain,
		QueryInterval: d.EffectiveQueryInterval(),
		TTL:           d.TTL.Duration(),
		DisableIPv6:   d.DisableIPv6,
	}
}

// ProvideService 提供 mDNS 发现服务并注册为能力
func ProvideService(cfg *config.Config) Output {
	svc := New(ConfigFromUnified(cfg))
	return Output{Service: svc, Capability: svc}
}

// Module 返回 mDNS 发现 fx 模块
func Module() fx.Option {
	return fx.Module("discovery/mdns",
		fx.Provide(ProvideService),
	)
}
