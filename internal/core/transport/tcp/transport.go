package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"go.uber.org/multierr"

	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("core/transport/tcp")

// Config TCP 传输配置
type Config struct {
	// DialTimeout 单次拨号超时
	DialTimeout time.Duration

	// KeepAlive TCP keepalive 周期，0 使用系统默认
	KeepAlive time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		DialTimeout: 10 * time.Second,
		KeepAlive:   15 * time.Second,
	}
}

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 传输
type Transport struct {
	cfg Config

	mu        sync.Mutex
	listeners map[manet.Listener]struct{}
	closed    bool
}

// NewTransport 创建 TCP 传输
func NewTransport(cfg Config) *Transport {
	return &Transport{
		cfg:       cfg,
		listeners: make(map[manet.Listener]struct{}),
	}
}

// CanDial 判断地址是否为可拨号的 TCP 地址（允许带 /p2p 后缀）
func (t *Transport) CanDial(addr ma.Multiaddr) bool {
	base, _, _ := types.SplitPeerAddr(addr)
	if base == nil {
		return false
	}
	protos := base.Protocols()
	if len(protos) != 2 {
		return false
	}
	switch protos[0].Code {
	case ma.P_IP4, ma.P_IP6:
	default:
		return false
	}
	return protos[1].Code == ma.P_TCP
}

// Listen 在 addr 上监听
//
// 返回的 Listener 的 Multiaddr() 为实际绑定地址（端口已解析）。
func (t *Transport) Listen(addr ma.Multiaddr) (manet.Listener, error) {
	if !t.CanDial(addr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, addr)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	l, err := manet.Listen(addr)
	if err != nil {
		return nil, err
	}
	t.listeners[l] = struct{}{}
	logger.Debug("TCP 监听", "addr", l.Multiaddr().String())
	return &trackedListener{Listener: l, t: t}, nil
}

// Dial 拨号到 addr（可带 /p2p 后缀，拨号时忽略）
func (t *Transport) Dial(ctx context.Context, addr ma.Multiaddr) (manet.Conn, error) {
	if !t.CanDial(addr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, addr)
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTransportClosed
	}

	base, _, _ := types.SplitPeerAddr(addr)
	d := manet.Dialer{Dialer: net.Dialer{
		Timeout:   t.cfg.DialTimeout,
		KeepAlive: t.cfg.KeepAlive,
	}}
	conn, err := d.DialContext(ctx, base)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(interface{ SetNoDelay(bool) error }); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}

// Close 关闭传输及其所有监听器
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	ls := make([]manet.Listener, 0, len(t.listeners))
	for l := range t.listeners {
		ls = append(ls, l)
	}
	t.listeners = make(map[manet.Listener]struct{})
	t.mu.Unlock()

	var err error
	for _, l := range ls {
		err = multierr.Append(err, l.Close())
	}
	return err
}

func (t *Transport) forget(l manet.Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// trackedListener 关闭时从传输中移除
type trackedListener struct {
	manet.Listener
	t    *Transport
	once sync.Once
}

func (l *trackedListener) Close() error {
	var err error
	l.once.Do(func() {
		l.t.forget(l.Listener)
		err = l.Listener.Close()
	})
	return err
}
