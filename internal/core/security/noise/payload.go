package noise

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// handshakePayload 握手 payload
type handshakePayload struct {
	IdentityKey []byte
	IdentitySig []byte
}

const (
	fieldIdentityKey protowire.Number = 1
	fieldIdentitySig protowire.Number = 2
)

func (p *handshakePayload) marshal() []byte {
	buf := make([]byte, 0, len(p.IdentityKey)+len(p.IdentitySig)+8)
	buf = protowire.AppendTag(buf, fieldIdentityKey, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.IdentityKey)
	buf = protowire.AppendTag(buf, fieldIdentitySig, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.IdentitySig)
	return buf
}

func (p *handshakePayload) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidHandshake, protowire.ParseError(n))
		}
		data = data[n:]

		if typ == protowire.BytesType && (num == fieldIdentityKey || num == fieldIdentitySig) {
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return fmt.Errorf("%w: %v", ErrInvalidHandshake, protowire.ParseError(m))
			}
			if num == fieldIdentityKey {
				p.IdentityKey = v
			} else {
				p.IdentitySig = v
			}
			data = data[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, data)
		if m < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidHandshake, protowire.ParseError(m))
		}
		data = data[m:]
	}
	if len(p.IdentityKey) == 0 || len(p.IdentitySig) == 0 {
		return fmt.Errorf("%w: missing identity key or signature", ErrInvalidHandshake)
	}
	return nil
}
