package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
)

// Params 指标服务依赖参数
type Params struct {
	fx.In

	Config  *config.Config
	Metrics *Metrics
}

// ProvideServer 启用时提供指标服务，否则返回 nil
func ProvideServer(p Params) *Server {
	if !p.Config.Metrics.Enable {
		return nil
	}
	return NewServer(p.Config.Metrics.ListenAddr, p.Metrics)
}

// Module 返回指标 fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(New, ProvideServer),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	if s == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
