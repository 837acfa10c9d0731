package main

import (
	"os"
	"strings"

	"github.com/dep2p/go-margo/config"
)

// 环境变量名（MARGO_ 前缀）
const (
	envPrefix       = "MARGO_"
	envListenAddr   = "LISTEN_ADDR"
	envRegistryPath = "REGISTRY_PATH"
	envLogLevel     = "LOG_LEVEL"
	envEnableMDNS   = "ENABLE_MDNS"
	envMetricsAddr  = "METRICS_ADDR"
)

// applyEnvOverrides 应用环境变量覆盖
//
// 支持：
//   - MARGO_LISTEN_ADDR: 监听地址
//   - MARGO_REGISTRY_PATH: 注册表路径
//   - MARGO_LOG_LEVEL: 日志级别
//   - MARGO_ENABLE_MDNS: 是否启用 mDNS
//   - MARGO_METRICS_ADDR: 指标监听地址，设置即启用
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(envPrefix + envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envPrefix + envRegistryPath); v != "" {
		cfg.RegistryPath = v
	}
	if v := os.Getenv(envPrefix + envLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(envPrefix + envEnableMDNS); v != "" {
		cfg.Discovery.EnableMDNS = parseBool(v)
	}
	if v := os.Getenv(envPrefix + envMetricsAddr); v != "" {
		cfg.Metrics.Enable = true
		cfg.Metrics.ListenAddr = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
