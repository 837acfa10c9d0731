package margo

import (
	"errors"
	"io"
	"os"

	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/protocolids"
)

// Option 节点配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	// 非空时覆盖 config 中的对应字段
	listenAddr   string
	registryPath string

	out        io.Writer
	privateKey crypto.PrivateKey
	fxOptions  []fx.Option
}

func newOptions() *options {
	return &options{
		config: config.NewConfig(),
		out:    os.Stdout,
	}
}

// WithConfig 使用完整配置（会被拷贝）
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithListenAddr 设置监听地址
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.listenAddr = addr
		return nil
	}
}

// WithRegistryPath 设置注册表路径（仅用于启动状态行）
func WithRegistryPath(path string) Option {
	return func(o *options) error {
		o.registryPath = path
		return nil
	}
}

// WithOutput 设置状态行输出
func WithOutput(w io.Writer) Option {
	return func(o *options) error {
		if w == nil {
			w = io.Discard
		}
		o.out = w
		return nil
	}
}

// WithPrivateKey 使用指定私钥作为节点身份
func WithPrivateKey(key crypto.PrivateKey) Option {
	return func(o *options) error {
		if key == nil {
			return errors.New("private key is nil")
		}
		o.privateKey = key
		return nil
	}
}

// WithFxOptions 追加自定义 fx 选项
//
// 可用于注册额外能力：
//
//	margo.WithFxOptions(fx.Provide(fx.Annotate(newMyCap,
//	    fx.As(new(interfaces.Capability)), fx.ResultTags(`group:"capabilities"`))))
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}

// resolveConfig 合并选项并填充版本信息
func (o *options) resolveConfig() (*config.Config, error) {
	cfg := o.config.Clone()
	if o.listenAddr != "" {
		cfg.ListenAddr = o.listenAddr
	}
	if o.registryPath != "" {
		cfg.RegistryPath = o.registryPath
	}
	if cfg.Identify.ProtocolVersion == "" {
		cfg.Identify.ProtocolVersion = protocolids.ProtocolVersion(Version)
	}
	if cfg.Identify.AgentVersion == "" {
		cfg.Identify.AgentVersion = protocolids.AgentVersion(Version)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
