package types

import (
	"fmt"

	"github.com/mr-tron/base58"
	mh "github.com/multiformats/go-multihash"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerID 节点唯一标识符
//
// 由公钥派生：对序列化公钥做 identity multihash，再做 Base58 编码。
// 任何节点仅凭公钥即可独立计算出相同的 PeerID。
//
// PeerID 的字符串形式可以直接放入 /p2p/<PeerID> 多地址组件。
type PeerID string

// EmptyPeerID 空节点 ID
const EmptyPeerID PeerID = ""

// String 返回 PeerID 的 Base58 字符串表示
func (id PeerID) String() string {
	return string(id)
}

// ShortString 返回 PeerID 的短字符串表示（日志用）
//
// libp2p 风格的 identity multihash 前缀相同（"12D3KooW"），
// 因此取末尾 8 个字符区分节点。
func (id PeerID) ShortString() string {
	s := string(id)
	if len(s) <= 8 {
		return s
	}
	return "*" + s[len(s)-8:]
}

// IsEmpty 检查 PeerID 是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// Validate 检查 PeerID 是否是合法的 Base58 multihash
func (id PeerID) Validate() error {
	_, err := ParsePeerID(string(id))
	return err
}

// Bytes 返回 PeerID 解码后的 multihash 字节
func (id PeerID) Bytes() ([]byte, error) {
	return base58.Decode(string(id))
}

// ParsePeerID 从 Base58 字符串解析 PeerID
//
// 解码后必须是合法的 multihash，否则返回 ErrInvalidPeerID。
func ParsePeerID(s string) (PeerID, error) {
	if s == "" {
		return EmptyPeerID, ErrInvalidPeerID
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return EmptyPeerID, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	if _, err := mh.Decode(raw); err != nil {
		return EmptyPeerID, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	return PeerID(s), nil
}

// PeerIDFromBytes 从 multihash 字节创建 PeerID
func PeerIDFromBytes(b []byte) (PeerID, error) {
	if _, err := mh.Decode(b); err != nil {
		return EmptyPeerID, fmt.Errorf("%w: %v", ErrInvalidPeerID, err)
	}
	return PeerID(base58.Encode(b)), nil
}

// Less 比较两个 PeerID 的字典序
//
// 用于同时打开连接时的确定性裁决：两端对同一对 PeerID 得出相同结论。
func (id PeerID) Less(other PeerID) bool {
	return id < other
}
