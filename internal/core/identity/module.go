package identity

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-margo/pkg/lib/crypto"
	"github.com/dep2p/go-margo/pkg/lib/log"
)

var logger = log.Logger("core/identity")

// Params 身份模块依赖
type Params struct {
	fx.In

	// Key 预先指定的私钥（可选，测试用）；未提供时生成新身份
	Key crypto.PrivateKey `optional:"true"`
}

// ProvideIdentity 提供节点身份
func ProvideIdentity(p Params) (*Identity, error) {
	var (
		id  *Identity
		err error
	)
	if p.Key != nil {
		id, err = FromPrivateKey(p.Key)
	} else {
		id, err = Generate()
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("节点身份就绪", "peer", id.PeerID().String())
	return id, nil
}

// Module 返回身份 fx 模块
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideIdentity),
	)
}
