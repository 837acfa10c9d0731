// Package crypto 提供 margo 节点身份所需的密码学工具
//
// 仅支持 Ed25519 密钥。公钥的线上格式是 protobuf 消息：
//
//	message PublicKey {
//	  KeyType Type = 1;  // Ed25519 = 1
//	  bytes   Data = 2;  // 32 字节原始公钥
//	}
//
// PeerID = Base58(multihash(序列化公钥))，序列化公钥不超过 42 字节时
// 使用 identity multihash（公钥可从 PeerID 中直接还原），否则使用 sha2-256。
//
//	priv, pub, err := crypto.GenerateEd25519Key(rand.Reader)
//	id, err := crypto.PeerIDFromPublicKey(pub)
package crypto
