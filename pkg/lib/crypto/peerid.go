package crypto

import (
	"fmt"

	mh "github.com/multiformats/go-multihash"

	"github.com/dep2p/go-margo/pkg/types"
)

// maxInlineKeyLength 序列化公钥不超过该长度时使用 identity multihash
const maxInlineKeyLength = 42

// ============================================================================
//                              PeerID 派生
// ============================================================================

// PeerIDFromPublicKey 从公钥派生 PeerID
//
// 派生算法：Base58(multihash(MarshalPublicKey(pub)))
func PeerIDFromPublicKey(pub PublicKey) (types.PeerID, error) {
	data, err := MarshalPublicKey(pub)
	if err != nil {
		return types.EmptyPeerID, err
	}

	code := uint64(mh.SHA2_256)
	if len(data) <= maxInlineKeyLength {
		code = mh.IDENTITY
	}
	hash, err := mh.Sum(data, code, -1)
	if err != nil {
		return types.EmptyPeerID, err
	}
	return types.PeerIDFromBytes(hash)
}

// PeerIDFromPrivateKey 从私钥派生 PeerID
func PeerIDFromPrivateKey(priv PrivateKey) (types.PeerID, error) {
	if priv == nil {
		return types.EmptyPeerID, ErrNilPrivateKey
	}
	return PeerIDFromPublicKey(priv.GetPublic())
}

// ExtractPublicKey 从 identity multihash PeerID 中还原公钥
func ExtractPublicKey(id types.PeerID) (PublicKey, error) {
	b, err := id.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPeerID, err)
	}
	dec, err := mh.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPeerID, err)
	}
	if dec.Code != mh.IDENTITY {
		return nil, ErrNoEmbeddedKey
	}
	return UnmarshalPublicKey(dec.Digest)
}

// VerifyPeerID 验证公钥是否对应给定的 PeerID
func VerifyPeerID(pub PublicKey, id types.PeerID) (bool, error) {
	derived, err := PeerIDFromPublicKey(pub)
	if err != nil {
		return false, err
	}
	return derived == id, nil
}
