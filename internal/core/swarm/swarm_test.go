package swarm

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/transport/tcp"
	"github.com/dep2p/go-margo/internal/core/upgrader"
	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/types"
)

const echoProtocol = "/test/echo/1.0.0"

// ============================================================================
//                              测试辅助
// ============================================================================

// echoCap 回显测试能力，同时记录连接通知
type echoCap struct {
	started      atomic.Bool
	closed       atomic.Bool
	connected    atomic.Int32
	disconnected atomic.Int32

	mu    sync.Mutex
	addrs []ma.Multiaddr
}

func (e *echoCap) Name() string        { return "echo" }
func (e *echoCap) Protocols() []string { return []string{echoProtocol} }

func (e *echoCap) Start(_ context.Context, _ interfaces.Host, _ interfaces.Emitter) error {
	e.started.Store(true)
	return nil
}

func (e *echoCap) HandleStream(s interfaces.Stream) {
	defer s.Close()
	_, _ = io.Copy(s, s)
}

func (e *echoCap) Close() error {
	e.closed.Store(true)
	return nil
}

func (e *echoCap) Connected(interfaces.ConnInfo)    { e.connected.Add(1) }
func (e *echoCap) Disconnected(interfaces.ConnInfo) { e.disconnected.Add(1) }

func (e *echoCap) ListenAddrsChanged(addrs []ma.Multiaddr) {
	e.mu.Lock()
	e.addrs = addrs
	e.mu.Unlock()
}

func (e *echoCap) listenAddrs() []ma.Multiaddr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addrs
}

type testSwarm struct {
	*Swarm
	id  *identity.Identity
	cap *echoCap
}

func newTestSwarm(t *testing.T) *testSwarm {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return newTestSwarmWithIdentity(t, id)
}

func newTestSwarmWithIdentity(t *testing.T, id *identity.Identity) *testSwarm {
	t.Helper()
	up, err := upgrader.Build(id, upgrader.DefaultConfig())
	require.NoError(t, err)

	ec := &echoCap{}
	cfg := DefaultConfig()
	cfg.DialTimeout = 5 * time.Second
	cfg.NegotiateTimeout = 5 * time.Second

	s, err := New(id.PeerID(), tcp.NewTransport(tcp.DefaultConfig()), up, []interfaces.Capability{ec}, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return &testSwarm{Swarm: s, id: id, cap: ec}
}

// listen 在回环地址监听并取走 NewListenAddr 事件
func (ts *testSwarm) listen(t *testing.T) ma.Multiaddr {
	t.Helper()
	require.NoError(t, ts.Listen(ma.StringCast("/ip4/127.0.0.1/tcp/0")))
	ev := waitEvent(t, ts.Swarm, types.EventTypeNewListenAddr)
	return ev.(types.NewListenAddr).Addr
}

func (ts *testSwarm) peerAddr(t *testing.T, addr ma.Multiaddr) ma.Multiaddr {
	t.Helper()
	full, err := types.JoinPeerAddr(addr, ts.LocalPeer())
	require.NoError(t, err)
	return full
}

// waitEvent 读取事件直到出现指定类型
func waitEvent(t *testing.T, s *Swarm, typ string) types.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		ev, err := s.NextEvent(ctx)
		require.NoError(t, err, "等待 %s 事件", typ)
		if ev.Type() == typ {
			return ev
		}
	}
}

// drain 取出当前所有事件直到 quiet 时间内没有新事件
func drain(s *Swarm, quiet time.Duration) []types.Event {
	var out []types.Event
	for {
		ctx, cancel := context.WithTimeout(context.Background(), quiet)
		ev, err := s.NextEvent(ctx)
		cancel()
		if err != nil {
			return out
		}
		out = append(out, ev)
	}
}

func countType(evs []types.Event, typ string) int {
	n := 0
	for _, ev := range evs {
		if ev.Type() == typ {
			n++
		}
	}
	return n
}

// connectPair 建立 a → b 连接并取走双方的 ConnectionEstablished
func connectPair(t *testing.T, a, b *testSwarm) {
	t.Helper()
	addr := b.listen(t)
	a.Dial(b.peerAddr(t, addr))

	evA := waitEvent(t, a.Swarm, types.EventTypeConnectionEstablished).(types.ConnectionEstablished)
	assert.Equal(t, b.LocalPeer(), evA.Peer)
	assert.Equal(t, types.DirOutbound, evA.Direction)

	evB := waitEvent(t, b.Swarm, types.EventTypeConnectionEstablished).(types.ConnectionEstablished)
	assert.Equal(t, a.LocalPeer(), evB.Peer)
	assert.Equal(t, types.DirInbound, evB.Direction)
}

// ============================================================================
//                              组装
// ============================================================================

func TestNew_DuplicateProtocol(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	up, err := upgrader.Build(id, upgrader.DefaultConfig())
	require.NoError(t, err)

	caps := []interfaces.Capability{&echoCap{}, &echoCap{}}
	_, err = New(id.PeerID(), tcp.NewTransport(tcp.DefaultConfig()), up, caps, DefaultConfig())
	assert.ErrorIs(t, err, ErrDuplicateProtocol)
}

func TestNew_InvalidConfig(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	up, err := upgrader.Build(id, upgrader.DefaultConfig())
	require.NoError(t, err)

	_, err = New(id.PeerID(), tcp.NewTransport(tcp.DefaultConfig()), up, nil, Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(types.EmptyPeerID, tcp.NewTransport(tcp.DefaultConfig()), up, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// ============================================================================
//                              监听
// ============================================================================

func TestListen_EmitsResolvedAddr(t *testing.T) {
	s := newTestSwarm(t)
	addr := s.listen(t)

	port, err := addr.ValueForProtocol(ma.P_TCP)
	require.NoError(t, err)
	assert.NotEqual(t, "0", port)
	assert.Equal(t, []ma.Multiaddr{addr}, s.ListenAddrs())

	assert.True(t, s.cap.started.Load())
	require.Len(t, s.cap.listenAddrs(), 1)
	assert.True(t, addr.Equal(s.cap.listenAddrs()[0]))
}

func TestListen_Errors(t *testing.T) {
	s := newTestSwarm(t)

	// 端口被占用
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	tests := []struct {
		name string
		addr ma.Multiaddr
	}{
		{"unsupported", ma.StringCast("/ip4/127.0.0.1/udp/0")},
		{"port in use", ma.StringCast("/ip4/127.0.0.1/tcp/" + strconv.Itoa(port))},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Listen(tt.addr)
			var le *ListenError
			assert.ErrorAs(t, err, &le)
		})
	}
	assert.Empty(t, s.ListenAddrs())
}

func TestParseListenAddr(t *testing.T) {
	addr, err := ParseListenAddr("/ip4/0.0.0.0/tcp/0")
	require.NoError(t, err)
	assert.Equal(t, "/ip4/0.0.0.0/tcp/0", addr.String())

	_, err = ParseListenAddr("not-a-multiaddr")
	var le *ListenError
	assert.ErrorAs(t, err, &le)
	assert.Equal(t, "not-a-multiaddr", le.Addr)

	for _, empty := range []string{"", "  "} {
		_, err = ParseListenAddr(empty)
		assert.ErrorAs(t, err, &le)
		assert.ErrorIs(t, err, ErrEmptyListenAddr)
	}
}

// ============================================================================
//                              连接
// ============================================================================

func TestDial_ConnectAndStream(t *testing.T) {
	a, b := newTestSwarm(t), newTestSwarm(t)
	connectPair(t, a, b)

	assert.Equal(t, []types.PeerID{b.LocalPeer()}, a.Peers())
	info, ok := a.ConnToPeer(b.LocalPeer())
	require.True(t, ok)
	assert.Equal(t, types.DirOutbound, info.Direction)
	assert.False(t, info.Opened.IsZero())

	assert.Equal(t, int32(1), a.cap.connected.Load())
	assert.Equal(t, int32(1), b.cap.connected.Load())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := a.NewStream(ctx, b.LocalPeer(), echoProtocol)
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, echoProtocol, st.Protocol())
	assert.Equal(t, b.LocalPeer(), st.Conn().Peer)

	_, err = st.Write([]byte("hello"))
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = io.ReadFull(st, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestNewStream_Errors(t *testing.T) {
	a, b := newTestSwarm(t), newTestSwarm(t)

	_, err := a.NewStream(context.Background(), b.LocalPeer(), echoProtocol)
	assert.ErrorIs(t, err, ErrNotConnected)

	connectPair(t, a, b)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = a.NewStream(ctx, b.LocalPeer(), "/test/unknown/1.0.0")
	assert.Error(t, err)
}

func TestDial_SkipsConnectedPeer(t *testing.T) {
	a, b := newTestSwarm(t), newTestSwarm(t)
	connectPair(t, a, b)

	a.Dial(b.peerAddr(t, b.ListenAddrs()[0]))
	evs := drain(a.Swarm, 300*time.Millisecond)
	assert.Zero(t, countType(evs, types.EventTypeConnectionEstablished))
	assert.Zero(t, countType(evs, types.EventTypeConnectionClosed))
	assert.Len(t, a.Peers(), 1)
}

func TestDial_Self(t *testing.T) {
	s := newTestSwarm(t)
	addr := s.listen(t)

	// 带自身 /p2p 的地址直接跳过
	s.Dial(s.peerAddr(t, addr))
	assert.Zero(t, countType(drain(s.Swarm, 200*time.Millisecond), types.EventTypeDialFailed))

	// 不带 /p2p 时握手后才发现是自己
	s.Dial(addr)
	ev := waitEvent(t, s.Swarm, types.EventTypeDialFailed).(types.DialFailed)
	assert.ErrorIs(t, ev.Err, ErrDialToSelf)
	assert.Empty(t, s.Peers())
}

func TestDial_Failures(t *testing.T) {
	s := newTestSwarm(t)

	// 先占用再释放一个端口，得到大概率无人监听的地址
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	s.Dial(ma.StringCast("/ip4/127.0.0.1/tcp/" + strconv.Itoa(port)))
	ev := waitEvent(t, s.Swarm, types.EventTypeDialFailed).(types.DialFailed)
	var de *DialError
	assert.ErrorAs(t, ev.Err, &de)

	s.Dial(ma.StringCast("/ip4/127.0.0.1/udp/4001"))
	ev = waitEvent(t, s.Swarm, types.EventTypeDialFailed).(types.DialFailed)
	assert.ErrorIs(t, ev.Err, tcp.ErrUnsupportedAddr)
}

func TestDial_WrongPeer(t *testing.T) {
	a, b, c := newTestSwarm(t), newTestSwarm(t), newTestSwarm(t)
	addr := b.listen(t)

	// 地址属于 b，但期望的是 c
	a.Dial(c.peerAddr(t, addr))
	ev := waitEvent(t, a.Swarm, types.EventTypeDialFailed).(types.DialFailed)
	assert.Equal(t, c.LocalPeer(), ev.Peer)
	assert.Empty(t, a.Peers())
}

// 双方同时拨号后只保留一条连接，且两端保留的是同一条
func TestDial_Simultaneous(t *testing.T) {
	a, b := newTestSwarm(t), newTestSwarm(t)
	addrA, addrB := a.listen(t), b.listen(t)

	a.Dial(b.peerAddr(t, addrB))
	b.Dial(a.peerAddr(t, addrA))

	require.Eventually(t, func() bool {
		ia, okA := a.ConnToPeer(b.LocalPeer())
		ib, okB := b.ConnToPeer(a.LocalPeer())
		return okA && okB && ia.LocalAddr.Equal(ib.RemoteAddr) && ia.RemoteAddr.Equal(ib.LocalAddr)
	}, 10*time.Second, 20*time.Millisecond)

	// 落败连接可能在对端先被关闭，此时本端看到一对额外的建立/关闭；
	// 两类事件严格交替，以建立结尾，最终每端恰好一个已连接节点
	for _, s := range []*testSwarm{a, b} {
		evs := drain(s.Swarm, 500*time.Millisecond)
		var seq []string
		for _, ev := range evs {
			switch ev.Type() {
			case types.EventTypeConnectionEstablished, types.EventTypeConnectionClosed:
				seq = append(seq, ev.Type())
			}
		}
		require.NotEmpty(t, seq)
		for i, typ := range seq {
			if i%2 == 0 {
				assert.Equal(t, types.EventTypeConnectionEstablished, typ, "第 %d 个事件", i)
			} else {
				assert.Equal(t, types.EventTypeConnectionClosed, typ, "第 %d 个事件", i)
			}
		}
		assert.Equal(t, types.EventTypeConnectionEstablished, seq[len(seq)-1])
		assert.LessOrEqual(t, len(seq), 3)
		assert.Len(t, s.Peers(), 1)
	}
}

// ============================================================================
//                              关闭
// ============================================================================

func TestClosePeer_Causes(t *testing.T) {
	a, b := newTestSwarm(t), newTestSwarm(t)
	connectPair(t, a, b)

	require.NoError(t, a.ClosePeer(b.LocalPeer()))

	evA := waitEvent(t, a.Swarm, types.EventTypeConnectionClosed).(types.ConnectionClosed)
	assert.Equal(t, b.LocalPeer(), evA.Peer)
	assert.Equal(t, types.CauseLocalClose, evA.Cause)

	evB := waitEvent(t, b.Swarm, types.EventTypeConnectionClosed).(types.ConnectionClosed)
	assert.Equal(t, a.LocalPeer(), evB.Peer)
	assert.Equal(t, types.CauseRemoteClose, evB.Cause)

	assert.Empty(t, a.Peers())
	require.Eventually(t, func() bool { return len(b.Peers()) == 0 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return a.cap.disconnected.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, a.ClosePeer(b.LocalPeer()), ErrNotConnected)
}

func TestClose_Shutdown(t *testing.T) {
	a, b := newTestSwarm(t), newTestSwarm(t)
	connectPair(t, a, b)
	addrA := a.listen(t)

	require.NoError(t, a.Close())
	assert.True(t, a.cap.closed.Load())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		closedEv *types.ConnectionClosed
		expired  []ma.Multiaddr
		finalErr error
	)
	for {
		ev, err := a.NextEvent(ctx)
		if err != nil {
			finalErr = err
			break
		}
		switch e := ev.(type) {
		case types.ConnectionClosed:
			require.Nil(t, closedEv, "每个节点只应有一个 ConnectionClosed")
			closedEv = &e
		case types.ExpiredListenAddr:
			expired = append(expired, e.Addr)
		}
	}
	assert.ErrorIs(t, finalErr, ErrSwarmClosed)
	require.NotNil(t, closedEv)
	assert.Equal(t, types.CauseSwarmShutdown, closedEv.Cause)
	require.Len(t, expired, 1)
	assert.True(t, addrA.Equal(expired[0]))

	evB := waitEvent(t, b.Swarm, types.EventTypeConnectionClosed).(types.ConnectionClosed)
	assert.Equal(t, types.CauseRemoteClose, evB.Cause)

	// 关闭后的操作
	assert.NoError(t, a.Close())
	var le *ListenError
	assert.ErrorAs(t, a.Listen(ma.StringCast("/ip4/127.0.0.1/tcp/0")), &le)
	assert.ErrorIs(t, le, ErrSwarmClosed)
	_, err := a.NewStream(context.Background(), b.LocalPeer(), echoProtocol)
	assert.ErrorIs(t, err, ErrSwarmClosed)
	assert.ErrorIs(t, a.Start(context.Background()), ErrSwarmClosed)
}

// 监听器意外失效时事件流返回 *ListenerFault
func TestListenerFault(t *testing.T) {
	s := newTestSwarm(t)
	addr := s.listen(t)

	s.mu.Lock()
	l := s.listeners[0]
	s.mu.Unlock()
	// 绕过 Swarm 直接关闭底层监听器
	require.NoError(t, l.Listener.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := s.NextEvent(ctx)
	require.NoError(t, err)
	expired, ok := ev.(types.ExpiredListenAddr)
	require.True(t, ok)
	assert.True(t, addr.Equal(expired.Addr))

	_, err = s.NextEvent(ctx)
	var lf *ListenerFault
	require.True(t, errors.As(err, &lf), "应返回 *ListenerFault: %v", err)
	assert.Equal(t, addr.String(), lf.Addr)
	assert.Empty(t, s.ListenAddrs())
}
