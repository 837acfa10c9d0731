package identify

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/pkg/interfaces"
)

// Params 模块输入依赖
type Params struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
}

// Output 模块输出
type Output struct {
	fx.Out

	Service    *Service
	Capability interfaces.Capability `group:"capabilities"`
}

// ProvideService 提供身份交换服务并注册为能力
func ProvideService(p Params) (Output, error) {
	c := p.Config.Identify
	svc, err := New(p.Identity, Config{
		ProtocolVersion: c.ProtocolVersion,
		AgentVersion:    c.AgentVersion,
		CacheSize:       c.CacheSize,
		Timeout:         c.Timeout.Duration(),
	})
	if err != nil {
		return Output{}, err
	}
	return Output{Service: svc, Capability: svc}, nil
}

// Module 返回身份交换 fx 模块
func Module() fx.Option {
	return fx.Module("identify",
		fx.Provide(ProvideService),
	)
}
