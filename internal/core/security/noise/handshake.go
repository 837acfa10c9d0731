package noise

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"filippo.io/edwards25519"
	"github.com/flynn/noise"

	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/types"
)

// payloadSigPrefix 签名前缀，与 libp2p-noise 兼容
const payloadSigPrefix = "noise-libp2p-static-key:"

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// ============================================================================
//                              Noise XX 握手
// ============================================================================

// handshakeResult 握手结果
type handshakeResult struct {
	send, recv *noise.CipherState
	remotePeer types.PeerID
	remoteKey  crypto.PublicKey
}

// performHandshake 在 conn 上执行 Noise XX 握手
//
// expected 非空时，远端 PeerID 必须与之相同。
func performHandshake(conn net.Conn, priv crypto.PrivateKey, expected types.PeerID, initiator bool) (*handshakeResult, error) {
	privRaw, err := priv.Raw()
	if err != nil {
		return nil, fmt.Errorf("get private key bytes: %w", err)
	}
	pubRaw, err := priv.GetPublic().Raw()
	if err != nil {
		return nil, fmt.Errorf("get public key bytes: %w", err)
	}

	static := noise.DHKey{
		Private: ed25519ToCurve25519Private(privRaw),
		Public:  ed25519ToCurve25519Public(pubRaw),
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: static,
	})
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	localPayload, err := makePayload(priv, static.Public)
	if err != nil {
		return nil, err
	}

	var res handshakeResult
	var remotePayload []byte
	if initiator {
		res.send, res.recv, remotePayload, err = initiatorHandshake(conn, hs, localPayload)
	} else {
		res.send, res.recv, remotePayload, err = responderHandshake(conn, hs, localPayload)
	}
	if err != nil {
		return nil, err
	}

	res.remotePeer, res.remoteKey, err = verifyPayload(remotePayload, hs.PeerStatic())
	if err != nil {
		return nil, err
	}
	if !expected.IsEmpty() && res.remotePeer != expected {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrPeerIDMismatch, expected, res.remotePeer)
	}
	return &res, nil
}

// makePayload 生成本地握手 payload
func makePayload(priv crypto.PrivateKey, staticPub []byte) ([]byte, error) {
	key, err := crypto.MarshalPublicKey(priv.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	sig, err := priv.Sign(append([]byte(payloadSigPrefix), staticPub...))
	if err != nil {
		return nil, fmt.Errorf("sign static key: %w", err)
	}
	p := handshakePayload{IdentityKey: key, IdentitySig: sig}
	return p.marshal(), nil
}

// verifyPayload 校验远端 payload 并派生远端 PeerID
func verifyPayload(data, remoteStatic []byte) (types.PeerID, crypto.PublicKey, error) {
	if len(remoteStatic) != 32 {
		return "", nil, fmt.Errorf("%w: remote static key length %d", ErrInvalidHandshake, len(remoteStatic))
	}
	var p handshakePayload
	if err := p.unmarshal(data); err != nil {
		return "", nil, err
	}
	pub, err := crypto.UnmarshalPublicKey(p.IdentityKey)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}
	ok, err := pub.Verify(append([]byte(payloadSigPrefix), remoteStatic...), p.IdentitySig)
	if err != nil || !ok {
		return "", nil, ErrInvalidSignature
	}
	id, err := crypto.PeerIDFromPublicKey(pub)
	if err != nil {
		return "", nil, err
	}
	return id, pub, nil
}

// initiatorHandshake 发起者三轮消息
func initiatorHandshake(conn net.Conn, hs *noise.HandshakeState, payload []byte) (send, recv *noise.CipherState, remote []byte, err error) {
	msg, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(conn, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	msg, err = readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	remote, _, _, err = hs.ReadMessage(nil, msg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: read message 2: %v", ErrInvalidHandshake, err)
	}

	msg, cs1, cs2, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(conn, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 3: %w", err)
	}
	// cs1 发起者 -> 响应者
	return cs1, cs2, remote, nil
}

// responderHandshake 响应者三轮消息
func responderHandshake(conn net.Conn, hs *noise.HandshakeState, payload []byte) (send, recv *noise.CipherState, remote []byte, err error) {
	msg, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err = hs.ReadMessage(nil, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: read message 1: %v", ErrInvalidHandshake, err)
	}

	msg, _, _, err = hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(conn, msg); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	msg, err = readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	remote, cs1, cs2, err := hs.ReadMessage(nil, msg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: read message 3: %v", ErrInvalidHandshake, err)
	}
	return cs2, cs1, remote, nil
}

// ============================================================================
//                              密钥转换
// ============================================================================

// ed25519ToCurve25519Private 将 Ed25519 私钥转换为 X25519 私钥
//
// SHA-512(seed) 取前 32 字节并做 RFC 7748 clamping。
func ed25519ToCurve25519Private(edPriv []byte) []byte {
	seed := edPriv
	if len(edPriv) == ed25519.PrivateKeySize {
		seed = edPriv[:ed25519.SeedSize]
	}
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32]
}

// ed25519ToCurve25519Public 将 Ed25519 公钥转换为 X25519 公钥
//
// u = (1 + y) / (1 - y) mod p
func ed25519ToCurve25519Public(edPub []byte) []byte {
	p, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return make([]byte, 32)
	}
	return p.BytesMontgomery()
}

// ============================================================================
//                              帧
// ============================================================================

// writeFrame 写入一帧：2 字节大端长度 + 数据
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame too large: %d", len(data))
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取一帧
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
