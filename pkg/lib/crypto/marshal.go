package crypto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ============================================================================
//                              公钥序列化
// ============================================================================

// 公钥消息字段号
const (
	fieldKeyType protowire.Number = 1
	fieldKeyData protowire.Number = 2
)

// MarshalPublicKey 序列化公钥为 protobuf 线上格式
func MarshalPublicKey(key PublicKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPublicKey
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 4+len(raw))
	buf = protowire.AppendTag(buf, fieldKeyType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(key.Type()))
	buf = protowire.AppendTag(buf, fieldKeyData, protowire.BytesType)
	buf = protowire.AppendBytes(buf, raw)
	return buf, nil
}

// UnmarshalPublicKey 从 protobuf 线上格式反序列化公钥
//
// 未知字段被跳过；只接受 Ed25519。
func UnmarshalPublicKey(data []byte) (PublicKey, error) {
	var (
		keyType KeyType = -1
		raw     []byte
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldKeyType && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(m))
			}
			keyType = KeyType(v)
			n = m
		case num == fieldKeyData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(m))
			}
			raw = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnmarshalFailed, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}

	switch keyType {
	case KeyTypeEd25519:
		return UnmarshalEd25519PublicKey(raw)
	case -1:
		return nil, fmt.Errorf("%w: missing key type", ErrUnmarshalFailed)
	default:
		return nil, fmt.Errorf("%w: %s", ErrBadKeyType, keyType)
	}
}
