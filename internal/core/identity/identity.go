package identity

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/types"
)

// ============================================================================
//                              Identity
// ============================================================================

// Identity 节点身份：私钥与派生出的 PeerID
type Identity struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
	id   types.PeerID
}

// Generate 生成新的随机身份
func Generate() (*Identity, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom 从指定随机源生成身份（测试可传入确定性随机源）
func GenerateFrom(src io.Reader) (*Identity, error) {
	priv, _, err := crypto.GenerateEd25519Key(src)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey 从已有私钥创建身份
func FromPrivateKey(priv crypto.PrivateKey) (*Identity, error) {
	if priv == nil {
		return nil, crypto.ErrNilPrivateKey
	}
	if priv.Type() != crypto.KeyTypeEd25519 {
		return nil, ErrUnsupportedKey
	}
	pub := priv.GetPublic()
	id, err := crypto.PeerIDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Identity{priv: priv, pub: pub, id: id}, nil
}

// PeerID 返回节点 ID
func (i *Identity) PeerID() types.PeerID {
	return i.id
}

// PublicKey 返回公钥
func (i *Identity) PublicKey() crypto.PublicKey {
	return i.pub
}

// PrivateKey 返回私钥
func (i *Identity) PrivateKey() crypto.PrivateKey {
	return i.priv
}

// Sign 用身份私钥签名
func (i *Identity) Sign(data []byte) ([]byte, error) {
	return i.priv.Sign(data)
}

// MarshalPublicKey 返回公钥的线上格式
func (i *Identity) MarshalPublicKey() ([]byte, error) {
	return crypto.MarshalPublicKey(i.pub)
}

// ============================================================================
//                              任意节点可用的派生函数
// ============================================================================

// PeerIDFromPublicKey 从公钥派生 PeerID
func PeerIDFromPublicKey(pub crypto.PublicKey) (types.PeerID, error) {
	return crypto.PeerIDFromPublicKey(pub)
}

// MarshalPublicKey 序列化公钥
func MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	return crypto.MarshalPublicKey(pub)
}

// UnmarshalPublicKey 反序列化公钥
func UnmarshalPublicKey(data []byte) (crypto.PublicKey, error) {
	return crypto.UnmarshalPublicKey(data)
}

// PeerIDFromMarshalledKey 从线上格式的公钥直接派生 PeerID
func PeerIDFromMarshalledKey(data []byte) (types.PeerID, crypto.PublicKey, error) {
	pub, err := crypto.UnmarshalPublicKey(data)
	if err != nil {
		return types.EmptyPeerID, nil, err
	}
	id, err := crypto.PeerIDFromPublicKey(pub)
	if err != nil {
		return types.EmptyPeerID, nil, err
	}
	return id, pub, nil
}
