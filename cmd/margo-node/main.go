// Package main 提供 margo 节点命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	margo "github.com/dep2p/go-margo"
	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/pkg/lib/log"
)

var logger = log.Logger("margo/cmd")

// 命令行参数优先于环境变量，环境变量优先于配置文件
var (
	listenAddr  = flag.String("listen", config.DefaultListenAddr, "监听地址（multiaddr）")
	registry    = flag.String("registry", "", "注册表路径（必填）")
	configFile  = flag.String("config", "", "JSON 配置文件路径")
	logLevel    = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	metricsAddr = flag.String("metrics", "", "Prometheus 指标监听地址（host:port，留空不启用）")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("margo-node %s\n", margo.Version)
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	lvl, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.Setup(os.Stderr, lvl, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("启动 margo 节点", "version", margo.Version, "listen", cfg.ListenAddr)
	err = margo.StartNode(ctx, cfg.RegistryPath, cfg.ListenAddr, margo.WithConfig(cfg))
	switch {
	case err == nil:
		logger.Info("节点已退出")
		return nil
	case errors.Is(err, margo.ErrTransport), errors.Is(err, margo.ErrListen):
		return err
	default:
		return fmt.Errorf("启动失败: %w", err)
	}
}

// buildConfig 合并配置文件、环境变量与命令行参数
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if isFlagSet("listen") || cfg.ListenAddr == "" {
		cfg.ListenAddr = *listenAddr
	}
	if *registry != "" {
		cfg.RegistryPath = *registry
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enable = true
		cfg.Metrics.ListenAddr = *metricsAddr
	}

	if cfg.RegistryPath == "" {
		return nil, errors.New("-registry 必须指定")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isFlagSet 检查参数是否在命令行上显式给出
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
