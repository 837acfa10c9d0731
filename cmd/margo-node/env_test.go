package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-margo/config"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MARGO_LISTEN_ADDR", "/ip4/127.0.0.1/tcp/4001")
	t.Setenv("MARGO_REGISTRY_PATH", "/srv/registry")
	t.Setenv("MARGO_LOG_LEVEL", "debug")
	t.Setenv("MARGO_ENABLE_MDNS", "off")
	t.Setenv("MARGO_METRICS_ADDR", "127.0.0.1:9999")

	cfg := config.NewConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "/ip4/127.0.0.1/tcp/4001", cfg.ListenAddr)
	assert.Equal(t, "/srv/registry", cfg.RegistryPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Discovery.EnableMDNS)
	assert.True(t, cfg.Metrics.Enable)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.ListenAddr)
}

func TestApplyEnvOverrides_Unset(t *testing.T) {
	cfg := config.NewConfig()
	applyEnvOverrides(cfg)
	assert.Equal(t, config.NewConfig(), cfg)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", " yes ", "on"} {
		assert.True(t, parseBool(s), s)
	}
	for _, s := range []string{"0", "false", "no", "", "maybe"} {
		assert.False(t, parseBool(s), s)
	}
}
