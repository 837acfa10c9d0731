package upgrader

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/internal/core/identity"
)

// Params 升级器模块依赖
type Params struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
}

// ProvideUpgrader 构造升级器，失败时返回 *TransportError
func ProvideUpgrader(p Params) (*Upgrader, error) {
	cfg := DefaultConfig()
	cfg.NegotiateTimeout = p.Config.Swarm.NegotiateTimeout.Duration()
	return Build(p.Identity, cfg)
}

// Module 返回升级器 fx 模块
func Module() fx.Option {
	return fx.Module("upgrader",
		fx.Provide(ProvideUpgrader),
	)
}
