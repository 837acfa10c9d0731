// Package app 提供模块集合清单
//
// modulesets.go 集中维护"哪些模块属于哪一层"，是节点组装的唯一模块来源。
package app

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/metrics"
	"github.com/dep2p/go-margo/internal/core/protocol/identify"
	"github.com/dep2p/go-margo/internal/core/protocol/ping"
	"github.com/dep2p/go-margo/internal/core/swarm"
	"github.com/dep2p/go-margo/internal/core/transport/tcp"
	"github.com/dep2p/go-margo/internal/core/upgrader"
	"github.com/dep2p/go-margo/internal/discovery/mdns"
)

// ============================================================================
//                              固定必选模块集合
// ============================================================================

// FoundationModules 基础层：节点身份
func FoundationModules() fx.Option {
	return fx.Options(
		identity.Module(),
	)
}

// TransportModules 传输层：TCP、Noise + yamux 升级、Swarm
func TransportModules() fx.Option {
	return fx.Options(
		tcp.Module(),
		upgrader.Module(),
		swarm.Module(),
	)
}

// MonitoringModules 监控层：指标集合与可选的 HTTP 暴露
func MonitoringModules() fx.Option {
	return metrics.Module()
}

// ============================================================================
//                              能力模块（按配置选择）
// ============================================================================

// CapabilityModules 按配置返回要注册的能力
//
// 身份交换始终启用；mDNS 与存活探测受配置开关控制。
func CapabilityModules(cfg *config.Config) fx.Option {
	modules := []fx.Option{identify.Module()}
	if cfg.Discovery.EnableMDNS {
		modules = append(modules, mdns.Module())
	}
	if cfg.Liveness.Enable {
		modules = append(modules, ping.Module())
	}
	return fx.Options(modules...)
}

// ============================================================================
//                              组合模块集合
// ============================================================================

// CoreModules 核心模块组合（Foundation + Transport）
func CoreModules() fx.Option {
	return fx.Options(
		FoundationModules(),
		TransportModules(),
	)
}

// AllModules 按配置组装的完整模块集合
func AllModules(cfg *config.Config) fx.Option {
	return fx.Options(
		CoreModules(),
		CapabilityModules(cfg),
		MonitoringModules(),
	)
}
