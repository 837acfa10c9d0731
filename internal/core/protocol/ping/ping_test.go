package ping

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/protocol/prototest"
	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/protocolids"
	"github.com/dep2p/go-margo/pkg/types"
)

// stubCap 以自定义处理函数响应 ping 流
type stubCap struct {
	handle func(interfaces.Stream)
}

func (c *stubCap) Name() string        { return "stub" }
func (c *stubCap) Protocols() []string { return []string{protocolids.Ping} }
func (c *stubCap) Start(context.Context, interfaces.Host, interfaces.Emitter) error {
	return nil
}
func (c *stubCap) HandleStream(s interfaces.Stream) { c.handle(s) }
func (c *stubCap) Close() error                     { return nil }

func newPeer(t *testing.T) types.PeerID {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id.PeerID()
}

func startService(t *testing.T, cfg Config) (*Service, *prototest.Host, *prototest.Recorder) {
	t.Helper()
	svc := New(cfg)
	host := prototest.NewHost(newPeer(t))
	rec := prototest.NewRecorder()
	require.NoError(t, svc.Start(context.Background(), host, rec))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, host, rec
}

func nextResult(t *testing.T, rec *prototest.Recorder) types.LivenessResult {
	t.Helper()
	ev := rec.Next(5 * time.Second)
	require.NotNil(t, ev, "等待 LivenessResult 超时")
	res, ok := ev.(types.LivenessResult)
	require.True(t, ok)
	return res
}

func TestNew_Defaults(t *testing.T) {
	svc := New(Config{})
	assert.Equal(t, 15*time.Second, svc.cfg.Interval)
	assert.Equal(t, 20*time.Second, svc.cfg.Timeout)
	assert.NotNil(t, svc.cfg.Clock)
	assert.Equal(t, []string{protocolids.Ping}, svc.Protocols())
}

// 连接后立即探测，之后按间隔探测
func TestProbe_ImmediateThenInterval(t *testing.T) {
	mock := clock.NewMock()
	svc, host, rec := startService(t, Config{Interval: 15 * time.Second, Timeout: 5 * time.Second, Clock: mock})
	remote := New(Config{})

	peer := newPeer(t)
	info := host.Connect(peer, remote)
	svc.Connected(info)

	res := nextResult(t, rec)
	assert.Equal(t, peer, res.Peer)
	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Positive(t, res.RTT)

	// 间隔未到不探测
	assert.Nil(t, rec.Next(100*time.Millisecond))

	mock.Add(15 * time.Second)
	res = nextResult(t, rec)
	assert.NoError(t, res.Err)

	// 重复的 Connected 不会启动第二个循环
	svc.Connected(info)
	assert.Nil(t, rec.Next(100*time.Millisecond))

	// 断开后不再探测
	svc.Disconnected(info)
	mock.Add(15 * time.Second)
	assert.Nil(t, rec.Next(100*time.Millisecond))
}

// 重连时旧连接的断开通知晚于新连接到达，新连接仍按间隔探测
func TestProbe_ReconnectBeforeOldDisconnect(t *testing.T) {
	mock := clock.NewMock()
	svc, host, rec := startService(t, Config{Interval: 15 * time.Second, Timeout: 5 * time.Second, Clock: mock})
	remote := New(Config{})

	peer := newPeer(t)
	old := host.Connect(peer, remote)
	svc.Connected(old)
	require.NoError(t, nextResult(t, rec).Err)

	fresh := old
	fresh.Opened = old.Opened.Add(time.Second)
	fresh.Direction = types.DirInbound
	svc.Connected(fresh)
	require.NoError(t, nextResult(t, rec).Err)

	svc.Disconnected(old)

	for i := 0; i < 3; i++ {
		mock.Add(15 * time.Second)
		res := nextResult(t, rec)
		assert.Equal(t, peer, res.Peer)
		assert.NoError(t, res.Err)
	}

	// 新连接断开后停止
	svc.Disconnected(fresh)
	mock.Add(15 * time.Second)
	assert.Nil(t, rec.Next(100*time.Millisecond))
}

func TestProbe_Timeout(t *testing.T) {
	svc, host, rec := startService(t, Config{Timeout: 100 * time.Millisecond, Clock: clock.NewMock()})

	// 对端读取后不回显
	stall := &stubCap{handle: func(s interfaces.Stream) {
		defer s.Close()
		_, _ = io.Copy(io.Discard, s)
	}}
	svc.Connected(host.Connect(newPeer(t), stall))

	res := nextResult(t, rec)
	assert.ErrorIs(t, res.Err, ErrPingTimeout)
	assert.False(t, res.OK())
}

func TestProbe_DataMismatch(t *testing.T) {
	svc, host, rec := startService(t, Config{Timeout: time.Second, Clock: clock.NewMock()})

	liar := &stubCap{handle: func(s interfaces.Stream) {
		defer s.Close()
		buf := make([]byte, PingSize)
		if _, err := io.ReadFull(s, buf); err != nil {
			return
		}
		for i := range buf {
			buf[i] ^= 0xff
		}
		_, _ = s.Write(buf)
	}}
	svc.Connected(host.Connect(newPeer(t), liar))

	res := nextResult(t, rec)
	assert.ErrorIs(t, res.Err, ErrDataMismatch)
}

// 对端不支持协议时上报错误，连接不受影响
func TestProbe_StreamError(t *testing.T) {
	svc, host, rec := startService(t, Config{Clock: clock.NewMock()})

	peer := newPeer(t)
	info := host.Connect(peer, noPing{&stubCap{}})
	svc.Connected(info)

	res := nextResult(t, rec)
	assert.ErrorIs(t, res.Err, prototest.ErrProtocolNotSupported)
	_, ok := host.ConnToPeer(peer)
	assert.True(t, ok)
}

func TestPing_Echo(t *testing.T) {
	_, host, _ := startService(t, Config{})
	peer := newPeer(t)
	host.Connect(peer, New(Config{}))

	st, err := host.NewStream(context.Background(), peer, protocolids.Ping)
	require.NoError(t, err)
	defer st.Close()

	for i := 0; i < 3; i++ {
		rtt, err := Ping(context.Background(), st, time.Second)
		require.NoError(t, err)
		assert.Positive(t, rtt)
	}
}

func TestClose(t *testing.T) {
	svc, host, rec := startService(t, Config{Clock: clock.NewMock()})
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	svc.Connected(host.Connect(newPeer(t), New(Config{})))
	assert.Nil(t, rec.Next(100*time.Millisecond))
	assert.Error(t, svc.Start(context.Background(), host, rec))
}

// noPing 不注册任何协议的能力
type noPing struct{ *stubCap }

func (noPing) Protocols() []string { return nil }
