package margo

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/config"
	"github.com/dep2p/go-margo/internal/app/eventloop"
	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/metrics"
	"github.com/dep2p/go-margo/internal/core/protocol/identify"
	"github.com/dep2p/go-margo/internal/core/swarm"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("margo")

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

// Node margo 节点
type Node struct {
	cfg *config.Config
	out io.Writer
	app *fx.App

	// 由 fx 填充
	swarm    *swarm.Swarm
	identity *identity.Identity
	metrics  *metrics.Metrics
	identify *identify.Service

	mu      sync.Mutex
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建节点但不启动
//
// 配置无效时返回 config.ErrInvalidConfig；组装失败时返回 ErrTransport。
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}

	n := &Node{cfg: cfg, out: o.out}
	n.app = buildFxApp(cfg, o, n)
	if err := n.app.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return n, nil
}

// StartNode 启动节点，在 listenAddr 上监听并运行事件循环直到 ctx 取消
//
// 配置通过校验后只返回 ErrTransport 或 ErrListen 类错误；ctx 取消时返回 nil。
func StartNode(ctx context.Context, registryPath, listenAddr string, opts ...Option) error {
	opts = append(opts, WithRegistryPath(registryPath))
	if listenAddr != "" {
		opts = append(opts, WithListenAddr(listenAddr))
	}
	n, err := New(opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := n.Close(); err != nil {
			logger.Warn("关闭节点失败", "error", err)
		}
	}()

	if err := n.Start(ctx); err != nil {
		return err
	}
	// 显式传入的地址为准，空地址同样作为监听失败返回
	if err := n.Listen(listenAddr); err != nil {
		return err
	}
	return n.Run(ctx)
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动 Swarm 与各能力
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return nil
	}

	n.printf("Starting margo P2P node for registry at `%s`\n", n.cfg.RegistryPath)

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := n.app.Start(startCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	n.started = true

	n.printf("Local peer ID: %s\n", n.ID())
	return nil
}

// Listen 在地址上开始监听
//
// 失败时返回的错误同时满足 errors.Is(err, ErrListen) 与 errors.As(err, **swarm.ListenError)。
func (n *Node) Listen(addr string) error {
	a, err := swarm.ParseListenAddr(addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}
	if err := n.swarm.Listen(a); err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}
	return nil
}

// Run 运行事件循环直到 ctx 取消或监听器失效
//
// ctx 取消或节点关闭时返回 nil；监听器失效时返回 ErrListen。
func (n *Node) Run(ctx context.Context) error {
	n.mu.Lock()
	started := n.started
	n.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	loop := eventloop.New(n.swarm, n.swarm, n.ID(),
		eventloop.WithOutput(n.out),
		eventloop.WithMetrics(n.metrics),
	)
	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}
	return nil
}

// Close 关闭节点，可重复调用
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if n.started {
		return n.app.Stop(ctx)
	}
	// 未启动时 Swarm 仍可能持有监听器
	return n.swarm.Close()
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// ID 返回本地节点 ID
func (n *Node) ID() types.PeerID {
	return n.identity.PeerID()
}

// Config 返回生效的配置（只读）
func (n *Node) Config() *config.Config {
	return n.cfg
}

// ListenAddrs 返回当前监听地址（端口已解析，不含 /p2p）
func (n *Node) ListenAddrs() []ma.Multiaddr {
	return n.swarm.ListenAddrs()
}

// Peers 返回当前已连接的节点
func (n *Node) Peers() []types.PeerID {
	return n.swarm.Peers()
}

// Dial 异步拨号，结果以事件形式出现
func (n *Node) Dial(addr string) error {
	a, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	n.swarm.Dial(a)
	return nil
}

// IdentifyInfo 返回最近一次从 peer 收到的身份信息
func (n *Node) IdentifyInfo(peer types.PeerID) (*identify.Info, bool) {
	return n.identify.Info(peer)
}

// Metrics 返回节点指标集合
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

func (n *Node) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(n.out, format, args...); err != nil {
		logger.Debug("写状态行失败", "error", err)
	}
}
