package tcp

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
)

// ProvideTransport 提供 TCP 传输
func ProvideTransport(cfg *config.Config) *Transport {
	tc := DefaultConfig()
	tc.DialTimeout = cfg.Swarm.DialTimeout.Duration()
	return NewTransport(tc)
}

// Module 返回 TCP 传输 fx 模块
func Module() fx.Option {
	return fx.Module("transport/tcp",
		fx.Provide(ProvideTransport),
	)
}
