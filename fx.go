package margo

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/internal/app"
	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/lib/log"
)

var fxLogger = log.Logger("margo/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Identity → Transport → Upgrader → Swarm
//  2. 能力：identify（必选）、mdns / ping（按配置）
//  3. 指标
func buildFxApp(cfg *config.Config, o *options, n *Node) *fx.App {
	modules := []fx.Option{
		fx.Supply(cfg),
		app.AllModules(cfg),
		fx.Populate(&n.swarm, &n.identity, &n.metrics, &n.identify),
	}

	if o.privateKey != nil {
		key := o.privateKey
		modules = append(modules, fx.Provide(func() crypto.PrivateKey { return key }))
	}

	modules = append(modules, o.fxOptions...)
	modules = append(modules, fx.WithLogger(newFxEventLogger))

	fxLogger.Debug("组装节点模块",
		"mdns", cfg.Discovery.EnableMDNS,
		"liveness", cfg.Liveness.Enable,
		"metrics", cfg.Metrics.Enable)
	return fx.New(modules...)
}

// newFxEventLogger 调试级别时输出 fx 事件，否则静默
func newFxEventLogger() fxevent.Logger {
	if log.Level() <= slog.LevelDebug {
		if z, err := zap.NewDevelopment(); err == nil {
			return &fxevent.ZapLogger{Logger: z}
		}
	}
	return &fxevent.ZapLogger{Logger: zap.NewNop()}
}
