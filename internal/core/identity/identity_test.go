package identity

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/pkg/lib/crypto"
)

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.PeerID(), b.PeerID(), "每次生成的身份应不同")
	require.NoError(t, a.PeerID().Validate())
}

func TestGenerateFromDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	a, err := GenerateFrom(bytes.NewReader(seed))
	require.NoError(t, err)
	b, err := GenerateFrom(bytes.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, a.PeerID(), b.PeerID())
}

func TestPeerIDDerivableByAnyPeer(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	// 远端只拿到线上格式的公钥
	wire, err := id.MarshalPublicKey()
	require.NoError(t, err)

	derived, pub, err := PeerIDFromMarshalledKey(wire)
	require.NoError(t, err)
	assert.Equal(t, id.PeerID(), derived)
	assert.True(t, pub.Equals(id.PublicKey()))

	again, err := PeerIDFromPublicKey(id.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, id.PeerID(), again)
}

func TestSign(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	sig, err := id.Sign([]byte("hello"))
	require.NoError(t, err)
	ok, err := id.PublicKey().Verify([]byte("hello"), sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFromPrivateKeyNil(t *testing.T) {
	_, err := FromPrivateKey(nil)
	assert.ErrorIs(t, err, crypto.ErrNilPrivateKey)
}

// TestModule_Load 测试 fx 模块加载
func TestModule_Load(t *testing.T) {
	var loaded *Identity

	app := fx.New(
		fx.NopLogger,
		Module(),
		fx.Populate(&loaded),
	)
	require.NoError(t, app.Start(context.Background()))
	defer func() { _ = app.Stop(context.Background()) }()

	require.NotNil(t, loaded)
	assert.False(t, loaded.PeerID().IsEmpty())
}

// TestModule_InjectedKey 注入私钥时使用该私钥
func TestModule_InjectedKey(t *testing.T) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	want, err := crypto.PeerIDFromPrivateKey(priv)
	require.NoError(t, err)

	var loaded *Identity
	app := fx.New(
		fx.NopLogger,
		Module(),
		fx.Provide(func() crypto.PrivateKey { return priv }),
		fx.Populate(&loaded),
	)
	require.NoError(t, app.Err())
	assert.Equal(t, want, loaded.PeerID())
}
