package yamux

import (
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-margo/pkg/protocolids"
)

// ErrNilConn 连接为空
var ErrNilConn = errors.New("yamux: nil conn")

// Factory yamux 会话工厂
//
// 不持有每连接状态，可被所有连接共享。
type Factory struct {
	cfg *yamux.Config
}

// NewFactory 创建工厂，配置无效时返回错误
func NewFactory(cfg Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Factory{cfg: cfg.toYamux()}, nil
}

// ID 返回协商用的协议 ID
func (f *Factory) ID() string {
	return protocolids.Yamux
}

// NewSession 在 conn 上建立会话
//
// isServer 决定流 ID 奇偶，连接双方必须一端为 server 一端为 client。
func (f *Factory) NewSession(conn io.ReadWriteCloser, isServer bool) (*yamux.Session, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	var (
		s   *yamux.Session
		err error
	)
	if isServer {
		s, err = yamux.Server(conn, f.cfg)
	} else {
		s, err = yamux.Client(conn, f.cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("create yamux session: %w", err)
	}
	return s, nil
}
