package yamux

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.AcceptBacklog = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxStreamWindowSize = 1
	assert.Error(t, bad.Validate())

	_, err := NewFactory(bad)
	assert.Error(t, err)
}

func TestFactory_SessionPair(t *testing.T) {
	f, err := NewFactory(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "/yamux/1.0.0", f.ID())

	c, s := net.Pipe()
	client, err := f.NewSession(c, false)
	require.NoError(t, err)
	server, err := f.NewSession(s, true)
	require.NoError(t, err)
	defer client.Close()
	defer server.Close()

	done := make(chan []byte, 1)
	go func() {
		st, err := server.AcceptStream()
		if err != nil {
			done <- nil
			return
		}
		defer st.Close()
		buf := make([]byte, 5)
		_, _ = io.ReadFull(st, buf)
		done <- buf
	}()

	st, err := client.OpenStream()
	require.NoError(t, err)
	_, err = st.Write([]byte("margo"))
	require.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, "margo", string(got))
	case <-time.After(5 * time.Second):
		t.Fatal("等待流数据超时")
	}

	// 关闭一端后另一端感知会话结束
	require.NoError(t, client.Close())
	select {
	case <-server.CloseChan():
	case <-time.After(5 * time.Second):
		t.Fatal("server 未感知会话关闭")
	}
}

func TestFactory_NilConn(t *testing.T) {
	f, err := NewFactory(DefaultConfig())
	require.NoError(t, err)
	_, err = f.NewSession(nil, true)
	assert.ErrorIs(t, err, ErrNilConn)
}
