package eventloop

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-margo/internal/core/identity"
	"github.com/dep2p/go-margo/internal/core/metrics"
	"github.com/dep2p/go-margo/internal/core/swarm"
	"github.com/dep2p/go-margo/pkg/types"
)

// scripted 按顺序返回预置事件，取完后返回 end（为 nil 时阻塞到 ctx 取消）
type scripted struct {
	mu     sync.Mutex
	events []types.Event
	end    error
}

func (s *scripted) NextEvent(ctx context.Context) (types.Event, error) {
	s.mu.Lock()
	if len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		s.mu.Unlock()
		return ev, nil
	}
	end := s.end
	s.mu.Unlock()
	if end != nil {
		return nil, end
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingDialer struct {
	mu    sync.Mutex
	addrs []string
}

func (d *recordingDialer) Dial(addr ma.Multiaddr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addrs = append(d.addrs, addr.String())
}

func newPeer(t *testing.T) types.PeerID {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id.PeerID()
}

func TestRun_StatusLines(t *testing.T) {
	local, remote := newPeer(t), newPeer(t)
	addr := ma.StringCast("/ip4/192.168.1.5/tcp/4001")

	src := &scripted{
		events: []types.Event{
			types.NewListenAddr{Addr: ma.StringCast("/ip4/127.0.0.1/tcp/4001")},
			types.PeerDiscovered{Peer: remote, Addr: addr},
			types.ConnectionEstablished{Peer: remote, Addr: addr, Direction: types.DirOutbound},
			types.IdentityReceived{Peer: remote, ProtocolVersion: "/margo/0.1.0", AgentVersion: "go-margo/0.1.0"},
			types.LivenessResult{Peer: remote, RTT: 1500 * time.Microsecond},
			types.LivenessResult{Peer: remote, Err: errors.New("timeout")},
			types.PeerExpired{Peer: remote, Addr: addr},
			types.ConnectionClosed{Peer: remote, Addr: addr, Cause: types.CauseRemoteClose},
		},
		end: swarm.ErrSwarmClosed,
	}
	dialer := &recordingDialer{}
	var out bytes.Buffer

	loop := New(src, dialer, local, WithOutput(&out))
	require.NoError(t, loop.Run(context.Background()))

	want := []string{
		"Listening on /ip4/127.0.0.1/tcp/4001/p2p/" + local.String(),
		"mDNS discovered peer: " + remote.String() + " at /ip4/192.168.1.5/tcp/4001",
		"Connected to " + remote.String(),
		"Identified peer " + remote.String() + ": /margo/0.1.0 (go-margo/0.1.0)",
		"Ping from " + remote.String() + ": 1.5ms",
		"mDNS peer expired: " + remote.String() + " at /ip4/192.168.1.5/tcp/4001",
		"Disconnected from " + remote.String() + ": remote-close",
	}
	assert.Equal(t, want, strings.Split(strings.TrimSpace(out.String()), "\n"))

	// 发现即拨号，地址带 /p2p
	assert.Equal(t, []string{"/ip4/192.168.1.5/tcp/4001/p2p/" + remote.String()}, dialer.addrs)
}

func TestRun_ErrorCauseLine(t *testing.T) {
	remote := newPeer(t)
	src := &scripted{
		events: []types.Event{
			types.ConnectionClosed{Peer: remote, Cause: types.CauseError, Err: errors.New("connection reset")},
		},
		end: swarm.ErrSwarmClosed,
	}
	var out bytes.Buffer
	require.NoError(t, New(src, nil, newPeer(t), WithOutput(&out)).Run(context.Background()))
	assert.Equal(t, "Disconnected from "+remote.String()+": error: connection reset\n", out.String())
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(&scripted{}, nil, newPeer(t)).Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run 未在 ctx 取消后返回")
	}
}

func TestRun_ListenerFault(t *testing.T) {
	fault := &swarm.ListenerFault{Addr: "/ip4/0.0.0.0/tcp/4001", Err: errors.New("accept failed")}
	src := &scripted{
		events: []types.Event{types.ExpiredListenAddr{Addr: ma.StringCast("/ip4/0.0.0.0/tcp/4001")}},
		end:    fault,
	}

	err := New(src, nil, newPeer(t)).Run(context.Background())
	var lf *swarm.ListenerFault
	require.ErrorAs(t, err, &lf)
	assert.Same(t, fault, lf)
}

func TestRun_HandlersAndMetrics(t *testing.T) {
	remote := newPeer(t)
	m := metrics.New()
	src := &scripted{
		events: []types.Event{
			types.ConnectionEstablished{Peer: remote, Direction: types.DirInbound},
			types.DialFailed{Peer: remote, Err: errors.New("refused")},
		},
		end: swarm.ErrSwarmClosed,
	}

	var seen []string
	loop := New(src, nil, newPeer(t), WithMetrics(m))
	loop.Handle(types.EventTypeConnectionEstablished, func(ev types.Event) {
		seen = append(seen, ev.(types.ConnectionEstablished).Peer.String())
	})
	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, []string{remote.String()}, seen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectedPeers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DialFailures))
}

// customEvent 循环不认识的事件类型（嵌入接口以满足封闭的事件集合）
type customEvent struct{ types.Event }

func (customEvent) Type() string { return "custom" }

func TestRun_IgnoresUnknownEvents(t *testing.T) {
	var out bytes.Buffer
	src := &scripted{
		events: []types.Event{customEvent{}, types.ConnectionEstablished{Peer: newPeer(t)}},
		end:    swarm.ErrSwarmClosed,
	}

	var custom int
	l := New(src, nil, newPeer(t), WithOutput(&out))
	l.Handle("custom", func(types.Event) { custom++ })

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 1, custom)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.True(t, strings.HasPrefix(out.String(), "Connected to "))
}
