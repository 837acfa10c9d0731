package swarm

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/transport/tcp"
	"github.com/dep2p/go-margo/internal/core/upgrader"
	"github.com/dep2p/go-margo/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// Params Swarm 模块依赖
type Params struct {
	fx.In

	Config    *config.Config
	Identity  *identity.Identity
	Transport *tcp.Transport
	Upgrader  *upgrader.Upgrader

	// Capabilities 通过 fx 值组注册的能力
	Capabilities []interfaces.Capability `group:"capabilities"`
}

// ProvideSwarm 组装 Swarm
func ProvideSwarm(p Params) (*Swarm, error) {
	cfg := Config{
		DialTimeout:      p.Config.Swarm.DialTimeout.Duration(),
		NegotiateTimeout: p.Config.Swarm.NegotiateTimeout.Duration(),
	}
	caps := make([]interfaces.Capability, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		if c != nil {
			caps = append(caps, c)
		}
	}
	return New(p.Identity.PeerID(), p.Transport, p.Upgrader, caps, cfg)
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 Swarm fx 模块
func Module() fx.Option {
	return fx.Module("swarm",
		fx.Provide(
			ProvideSwarm,
			func(s *Swarm) interfaces.Host { return s },
		),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC    fx.Lifecycle
	Swarm *Swarm
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Swarm 启动", "peer", input.Swarm.LocalPeer().String())
			return input.Swarm.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			logger.Info("Swarm 停止")
			return input.Swarm.Close()
		},
	})
}
