package crypto

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEd25519SignVerify(t *testing.T) {
	priv, pub, err := GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)

	sig, err := priv.Sign([]byte("margo"))
	require.NoError(t, err)

	ok, err := pub.Verify([]byte("margo"), sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = pub.Verify([]byte("other"), sig)
	assert.False(t, ok)

	ok, _ = pub.Verify([]byte("margo"), sig[:10])
	assert.False(t, ok, "短签名应直接判为无效")

	assert.True(t, priv.GetPublic().Equals(pub))
}

func TestPublicKeyMarshalRoundTrip(t *testing.T) {
	_, pub, err := GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)

	data, err := MarshalPublicKey(pub)
	require.NoError(t, err)
	assert.Len(t, data, 36)

	got, err := UnmarshalPublicKey(data)
	require.NoError(t, err)
	assert.True(t, got.Equals(pub))
}

func TestUnmarshalPublicKeyErrors(t *testing.T) {
	t.Run("unknown fields skipped", func(t *testing.T) {
		_, pub, _ := GenerateEd25519Key(rand.Reader)
		data, _ := MarshalPublicKey(pub)
		data = protowire.AppendTag(data, 9, protowire.BytesType)
		data = protowire.AppendBytes(data, []byte("ignored"))

		got, err := UnmarshalPublicKey(data)
		require.NoError(t, err)
		assert.True(t, got.Equals(pub))
	})

	t.Run("rsa rejected", func(t *testing.T) {
		var data []byte
		data = protowire.AppendTag(data, fieldKeyType, protowire.VarintType)
		data = protowire.AppendVarint(data, uint64(KeyTypeRSA))
		data = protowire.AppendTag(data, fieldKeyData, protowire.BytesType)
		data = protowire.AppendBytes(data, make([]byte, 32))

		_, err := UnmarshalPublicKey(data)
		assert.True(t, errors.Is(err, ErrBadKeyType))
	})

	t.Run("missing type", func(t *testing.T) {
		var data []byte
		data = protowire.AppendTag(data, fieldKeyData, protowire.BytesType)
		data = protowire.AppendBytes(data, make([]byte, 32))

		_, err := UnmarshalPublicKey(data)
		assert.True(t, errors.Is(err, ErrUnmarshalFailed))
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := UnmarshalPublicKey([]byte{0x08})
		assert.True(t, errors.Is(err, ErrUnmarshalFailed))
	})

	t.Run("wrong size", func(t *testing.T) {
		var data []byte
		data = protowire.AppendTag(data, fieldKeyType, protowire.VarintType)
		data = protowire.AppendVarint(data, uint64(KeyTypeEd25519))
		data = protowire.AppendTag(data, fieldKeyData, protowire.BytesType)
		data = protowire.AppendBytes(data, make([]byte, 31))

		_, err := UnmarshalPublicKey(data)
		assert.True(t, errors.Is(err, ErrInvalidKeySize))
	})
}

func TestPeerIDDerivation(t *testing.T) {
	priv, pub, err := GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)

	id, err := PeerIDFromPublicKey(pub)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id.String(), "12D3KooW"), "Ed25519 identity multihash 前缀: %s", id)
	require.NoError(t, id.Validate())

	// 私钥与公钥派生结果一致
	id2, err := PeerIDFromPrivateKey(priv)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	// 从 PeerID 还原公钥
	extracted, err := ExtractPublicKey(id)
	require.NoError(t, err)
	assert.True(t, extracted.Equals(pub))

	ok, err := VerifyPeerID(pub, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, other, _ := GenerateEd25519Key(rand.Reader)
	ok, err = VerifyPeerID(other, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = PeerIDFromPublicKey(nil)
	assert.ErrorIs(t, err, ErrNilPublicKey)
}
