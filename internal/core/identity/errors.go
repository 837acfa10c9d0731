package identity

import "errors"

var (
	// ErrNilIdentity 身份为空
	ErrNilIdentity = errors.New("identity: nil identity")

	// ErrUnsupportedKey 身份密钥不是 Ed25519
	ErrUnsupportedKey = errors.New("identity: only ed25519 keys are supported")
)
