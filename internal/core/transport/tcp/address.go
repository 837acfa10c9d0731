package tcp

import (
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// ResolveWildcard 将 0.0.0.0 / :: 监听地址展开为本机各接口地址
//
// 非通配地址原样返回。展开结果排除 IPv6 链路本地地址。
func ResolveWildcard(addrs []ma.Multiaddr) ([]ma.Multiaddr, error) {
	ifaces, err := manet.InterfaceMultiaddrs()
	if err != nil {
		return nil, err
	}
	usable := ifaces[:0]
	for _, a := range ifaces {
		if manet.IsIP6LinkLocal(a) {
			continue
		}
		usable = append(usable, a)
	}
	return manet.ResolveUnspecifiedAddresses(addrs, usable)
}

// IsLoopback 判断地址是否为回环地址
func IsLoopback(addr ma.Multiaddr) bool {
	return manet.IsIPLoopback(addr)
}
