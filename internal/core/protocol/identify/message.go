package identify

import (
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
	"google.golang.org/protobuf/encoding/protowire"
)

// maxMessageSize 单条消息上限
const maxMessageSize = 8 << 10

const (
	fieldPublicKey       protowire.Number = 1
	fieldListenAddrs     protowire.Number = 2
	fieldProtocols       protowire.Number = 3
	fieldObservedAddr    protowire.Number = 4
	fieldProtocolVersion protowire.Number = 5
	fieldAgentVersion    protowire.Number = 6
)

// message 身份交换消息
type message struct {
	PublicKey       []byte
	ListenAddrs     [][]byte
	Protocols       []string
	ObservedAddr    []byte
	ProtocolVersion string
	AgentVersion    string
}

func (m *message) marshal() []byte {
	var b []byte
	if len(m.PublicKey) > 0 {
		b = protowire.AppendTag(b, fieldPublicKey, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PublicKey)
	}
	for _, a := range m.ListenAddrs {
		b = protowire.AppendTag(b, fieldListenAddrs, protowire.BytesType)
		b = protowire.AppendBytes(b, a)
	}
	for _, p := range m.Protocols {
		b = protowire.AppendTag(b, fieldProtocols, protowire.BytesType)
		b = protowire.AppendString(b, p)
	}
	if len(m.ObservedAddr) > 0 {
		b = protowire.AppendTag(b, fieldObservedAddr, protowire.BytesType)
		b = protowire.AppendBytes(b, m.ObservedAddr)
	}
	if m.ProtocolVersion != "" {
		b = protowire.AppendTag(b, fieldProtocolVersion, protowire.BytesType)
		b = protowire.AppendString(b, m.ProtocolVersion)
	}
	if m.AgentVersion != "" {
		b = protowire.AppendTag(b, fieldAgentVersion, protowire.BytesType)
		b = protowire.AppendString(b, m.AgentVersion)
	}
	return b
}

// unmarshalMessage 解析消息，未知字段被跳过
func unmarshalMessage(b []byte) (*message, error) {
	m := &message{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldPublicKey:
			m.PublicKey = append([]byte(nil), v...)
		case fieldListenAddrs:
			m.ListenAddrs = append(m.ListenAddrs, append([]byte(nil), v...))
		case fieldProtocols:
			m.Protocols = append(m.Protocols, string(v))
		case fieldObservedAddr:
			m.ObservedAddr = append([]byte(nil), v...)
		case fieldProtocolVersion:
			m.ProtocolVersion = string(v)
		case fieldAgentVersion:
			m.AgentVersion = string(v)
		}
	}
	return m, nil
}

// writeMessage 写出 uvarint 长度前缀的消息
func writeMessage(w io.Writer, m *message) error {
	body := m.marshal()
	if len(body) > maxMessageSize {
		return ErrMessageTooLarge
	}
	buf := append(varint.ToUvarint(uint64(len(body))), body...)
	_, err := w.Write(buf)
	return err
}

// readMessage 读取 uvarint 长度前缀的消息
func readMessage(r io.Reader) (*message, error) {
	size, err := varint.ReadUvarint(byteReader{r})
	if err != nil {
		return nil, err
	}
	if size > maxMessageSize {
		return nil, ErrMessageTooLarge
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return unmarshalMessage(body)
}

// byteReader 逐字节读取，不做缓冲以免读过消息边界
type byteReader struct {
	r io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var one [1]byte
	if _, err := io.ReadFull(b.r, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}
