// Package noise 实现 Noise XX 安全通道
//
// 遵循 libp2p-noise 的握手与帧格式：
//
//	-> e
//	<- e, ee, s, es, payload
//	-> s, se, payload
//
// payload 为 protobuf 消息：
//
//	message NoiseHandshakePayload {
//	  bytes identity_key = 1;  // 序列化 Ed25519 公钥
//	  bytes identity_sig = 2;  // Sign("noise-libp2p-static-key:" + 静态 DH 公钥)
//	}
//
// 静态 DH 密钥由 Ed25519 身份密钥转换得到。每条消息以 2 字节大端长度为前缀，
// 握手后写入的明文按 Noise 单条消息上限分片。
package noise
