package identify

import (
	"bytes"
	"context"
	"testing"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/protocol/prototest"
	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/protocolids"
	"github.com/dep2p/go-margo/pkg/types"
)

// node 一个已启动的身份交换服务及其 Host
type node struct {
	id   *identity.Identity
	svc  *Service
	host *prototest.Host
	rec  *prototest.Recorder
}

func newNode(t *testing.T, cfg Config) *node {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)

	svc, err := New(id, cfg)
	require.NoError(t, err)

	host := prototest.NewHost(id.PeerID(), ma.StringCast("/ip4/192.168.1.10/tcp/4001"))
	host.SetProtocols(protocolids.Identify, protocolids.Ping)
	rec := prototest.NewRecorder()
	require.NoError(t, svc.Start(context.Background(), host, rec))
	t.Cleanup(func() { _ = svc.Close() })

	return &node{id: id, svc: svc, host: host, rec: rec}
}

func TestMessage_Codec(t *testing.T) {
	in := &message{
		PublicKey:       []byte{1, 2, 3},
		ListenAddrs:     [][]byte{ma.StringCast("/ip4/1.2.3.4/tcp/1").Bytes()},
		Protocols:       []string{protocolids.Identify, protocolids.Ping},
		ObservedAddr:    ma.StringCast("/ip4/5.6.7.8/tcp/2").Bytes(),
		ProtocolVersion: "/margo/0.1.0",
		AgentVersion:    "go-margo/0.1.0",
	}

	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, in))
	out, err := readMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Zero(t, buf.Len(), "不应读过消息边界")
}

func TestMessage_Limits(t *testing.T) {
	big := &message{PublicKey: make([]byte, maxMessageSize+1)}
	assert.ErrorIs(t, writeMessage(&bytes.Buffer{}, big), ErrMessageTooLarge)

	// 长度前缀超过上限
	_, err := readMessage(bytes.NewReader([]byte{0xff, 0xff, 0x03}))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = unmarshalMessage([]byte{0x0a, 0x05, 0x01})
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestNew_Defaults(t *testing.T) {
	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, identity.ErrNilIdentity)

	id, err := identity.Generate()
	require.NoError(t, err)
	svc, err := New(id, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), svc.cfg)
	assert.Equal(t, []string{protocolids.Identify}, svc.Protocols())
	assert.Equal(t, "identify", svc.Name())
}

// 连接加入后请求方收到 IdentityReceived
func TestConnected_EmitsIdentityReceived(t *testing.T) {
	a := newNode(t, Config{ProtocolVersion: "/margo/1.2.3", AgentVersion: "go-margo/1.2.3"})
	b := newNode(t, Config{ProtocolVersion: "/margo/9.9.9", AgentVersion: "go-margo/9.9.9"})

	info := a.host.Connect(b.id.PeerID(), b.svc)
	a.svc.Connected(info)

	ev := a.rec.Next(5 * time.Second)
	require.NotNil(t, ev)
	got, ok := ev.(types.IdentityReceived)
	require.True(t, ok)
	assert.Equal(t, b.id.PeerID(), got.Peer)
	assert.Equal(t, "/margo/9.9.9", got.ProtocolVersion)
	assert.Equal(t, "go-margo/9.9.9", got.AgentVersion)
	assert.Equal(t, []string{protocolids.Identify, protocolids.Ping}, got.Protocols)
	require.Len(t, got.ListenAddrs, 1)
	assert.Equal(t, "/ip4/192.168.1.10/tcp/4001", got.ListenAddrs[0].String())
	// 对方看到的本端地址
	require.NotNil(t, got.ObservedAddr)
	assert.True(t, info.LocalAddr.Equal(got.ObservedAddr))

	cached, ok := a.svc.Info(b.id.PeerID())
	require.True(t, ok)
	assert.Equal(t, "/margo/9.9.9", cached.ProtocolVersion)
	assert.True(t, b.id.PublicKey().Equals(cached.PublicKey))
}

// 公钥与 PeerID 不符时丢弃，不产生事件
func TestConnected_MismatchDropped(t *testing.T) {
	a := newNode(t, Config{})
	b := newNode(t, Config{})
	other, err := identity.Generate()
	require.NoError(t, err)

	// 以 other 的身份登记，实际由 b 响应
	info := a.host.Connect(other.PeerID(), b.svc)
	a.svc.Connected(info)

	assert.Nil(t, a.rec.Next(300*time.Millisecond))
	_, ok := a.svc.Info(other.PeerID())
	assert.False(t, ok)

	_, err = a.svc.Identify(context.Background(), other.PeerID())
	assert.ErrorIs(t, err, ErrPeerMismatch)
}

func TestIdentify_Errors(t *testing.T) {
	a := newNode(t, Config{})
	other, err := identity.Generate()
	require.NoError(t, err)

	// 未连接
	_, err = a.svc.Identify(context.Background(), other.PeerID())
	assert.ErrorIs(t, err, prototest.ErrNotConnected)

	// 未启动
	idle, err := New(other, Config{})
	require.NoError(t, err)
	_, err = idle.Identify(context.Background(), a.id.PeerID())
	assert.ErrorIs(t, err, ErrNotStarted)
}

// 关闭后不再发起交换
func TestClose_StopsIdentify(t *testing.T) {
	a := newNode(t, Config{})
	b := newNode(t, Config{})
	info := a.host.Connect(b.id.PeerID(), b.svc)

	require.NoError(t, a.svc.Close())
	require.NoError(t, a.svc.Close())
	a.svc.Connected(info)
	assert.Nil(t, a.rec.Next(200*time.Millisecond))

	assert.Error(t, a.svc.Start(context.Background(), a.host, a.rec))
}

var _ interfaces.Capability = (*Service)(nil)
