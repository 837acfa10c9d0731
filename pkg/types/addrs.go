package types

import (
	ma "github.com/multiformats/go-multiaddr"
)

// ============================================================================
//                              /p2p 地址辅助
// ============================================================================

// JoinPeerAddr 在传输地址后追加 /p2p/<id> 组件
//
// 已带 /p2p 组件的地址原样返回。
func JoinPeerAddr(addr ma.Multiaddr, id PeerID) (ma.Multiaddr, error) {
	if addr == nil {
		return nil, ErrNoPeerComponent
	}
	if _, pid, err := SplitPeerAddr(addr); err == nil && !pid.IsEmpty() {
		return addr, nil
	}
	c, err := ma.NewComponent("p2p", id.String())
	if err != nil {
		return nil, err
	}
	return addr.Encapsulate(c), nil
}

// SplitPeerAddr 拆分 <transport>/p2p/<id> 地址
//
// 地址不含 /p2p 组件时返回原地址与空 PeerID，err 为 ErrNoPeerComponent。
func SplitPeerAddr(addr ma.Multiaddr) (ma.Multiaddr, PeerID, error) {
	if addr == nil {
		return nil, EmptyPeerID, ErrNoPeerComponent
	}
	rest, last := ma.SplitLast(addr)
	if last == nil || last.Protocol().Code != ma.P_P2P {
		return addr, EmptyPeerID, ErrNoPeerComponent
	}
	id, err := ParsePeerID(last.Value())
	if err != nil {
		return addr, EmptyPeerID, err
	}
	return rest, id, nil
}
