package upgrader

import (
	"context"
	"fmt"
	"net"
	"time"

	mss "github.com/multiformats/go-multistream"
)

// negotiate 用 multistream-select 协商单个协议
//
// 服务端只接受 proto；客户端只提议 proto。
func negotiate(ctx context.Context, conn net.Conn, proto string, isServer bool) error {
	if d, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(d); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
		defer conn.SetDeadline(time.Time{})
	}

	if isServer {
		m := mss.NewMultistreamMuxer[string]()
		m.AddHandler(proto, nil)
		if _, _, err := m.Negotiate(conn); err != nil {
			return fmt.Errorf("negotiate %s: %w", proto, err)
		}
		return nil
	}

	if err := mss.SelectProtoOrFail(proto, conn); err != nil {
		return fmt.Errorf("select %s: %w", proto, err)
	}
	return nil
}
