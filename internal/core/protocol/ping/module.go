package ping

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

// ProvideService 提供存活探测服务并注册为能力
func ProvideService(cfg *config.Config) Output {
	svc := New(Config{
		Interval: cfg.Liveness.Interval.Duration(),
		Timeout:  cfg.Liveness.Timeout.Duration(),
	})
	return Output{Service: svc, Capability: svc}
}

// Module 返回存活探测 fx 模块
func Module() fx.Option {
	return fx.Module("ping",
		fx.Provide(ProvideService),
	)
}
