// Package eventloop 消费节点的统一事件流
//
// Loop 在单个 goroutine 中逐个取出事件并分发给处理器，处理器依次执行完毕。
// 内置处理：状态行输出、mDNS 发现后拨号、指标更新。
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"io"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/internal/core/metrics"
	"github.com/dep2p/go-margo/internal/core/swarm"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("app/eventloop")

// Source 事件来源
type Source interface {
	NextEvent(ctx context.Context) (types.Event, error)
}

// Dialer 发起异步拨号
type Dialer interface {
	Dial(addr ma.Multiaddr)
}

// Handler 事件处理器
type Handler func(ev types.Event)

// Loop 事件循环
type Loop struct {
	src     Source
	dialer  Dialer
	local   types.PeerID
	out     io.Writer
	metrics *metrics.Metrics

	handlers map[string][]Handler
}

// Option 事件循环选项
type Option func(*Loop)

// WithOutput 设置状态行输出，默认丢弃
func WithOutput(w io.Writer) Option {
	return func(l *Loop) { l.out = w }
}

// WithMetrics 设置指标集合
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// New 创建事件循环
func New(src Source, dialer Dialer, local types.PeerID, opts ...Option) *Loop {
	l := &Loop{
		src:      src,
		dialer:   dialer,
		local:    local,
		out:      io.Discard,
		handlers: make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Handle 追加某类事件的处理器，在内置处理之后执行
func (l *Loop) Handle(eventType string, h Handler) {
	l.handlers[eventType] = append(l.handlers[eventType], h)
}

// Run 阻塞处理事件直到 ctx 取消或事件流结束
//
// ctx 取消或 Swarm 关闭时返回 nil；监听器失效时返回 *swarm.ListenerFault。
func (l *Loop) Run(ctx context.Context) error {
	for {
		ev, err := l.src.NextEvent(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, swarm.ErrSwarmClosed):
				logger.Debug("事件流已结束")
				return nil
			default:
				return err
			}
		}
		l.dispatch(ev)
	}
}

func (l *Loop) dispatch(ev types.Event) {
	if l.metrics != nil {
		l.metrics.Observe(ev)
	}

	switch e := ev.(type) {
	case types.NewListenAddr:
		full, err := types.JoinPeerAddr(e.Addr, l.local)
		if err != nil {
			full = e.Addr
		}
		l.printf("Listening on %s\n", full)
	case types.ExpiredListenAddr:
		logger.Info("监听地址失效", "addr", e.Addr.String())
	case types.ConnectionEstablished:
		l.printf("Connected to %s\n", e.Peer)
	case types.ConnectionClosed:
		l.printf("Disconnected from %s: %s\n", e.Peer, e.CauseString())
	case types.DialFailed:
		logger.Warn("拨号失败", "peer", e.Peer.ShortString(), "addr", e.Addr, "error", e.Err)
	case types.PeerDiscovered:
		l.printf("mDNS discovered peer: %s at %s\n", e.Peer, e.Addr)
		l.dialDiscovered(e)
	case types.PeerExpired:
		l.printf("mDNS peer expired: %s at %s\n", e.Peer, e.Addr)
	case types.IdentityReceived:
		l.printf("Identified peer %s: %s (%s)\n", e.Peer, e.ProtocolVersion, e.AgentVersion)
	case types.LivenessResult:
		if e.OK() {
			l.printf("Ping from %s: %s\n", e.Peer, e.RTT)
		} else {
			logger.Debug("存活探测失败", "peer", e.Peer.ShortString(), "error", e.Err)
		}
	default:
		logger.Debug("忽略未知事件", "type", fmt.Sprintf("%T", ev))
	}

	for _, h := range l.handlers[ev.Type()] {
		h(ev)
	}
}

// dialDiscovered 拨号新发现的地址，已连接或自身地址由 Swarm 跳过
func (l *Loop) dialDiscovered(e types.PeerDiscovered) {
	if l.dialer == nil {
		return
	}
	addr, err := types.JoinPeerAddr(e.Addr, e.Peer)
	if err != nil {
		logger.Debug("无法构造拨号地址", "peer", e.Peer.ShortString(), "error", err)
		return
	}
	l.dialer.Dial(addr)
}

func (l *Loop) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(l.out, format, args...); err != nil {
		logger.Debug("写状态行失败", "error", err)
	}
}
