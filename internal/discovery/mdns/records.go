package mdns

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-margo/pkg/types"
)

// recordKey 记录表键
type recordKey struct {
	peer types.PeerID
	addr string
}

// record 已发现的节点地址
type record struct {
	peer    types.PeerID
	addr    ma.Multiaddr
	expires time.Time
}

// ParseDNSAddr 解析一条 dnsaddr TXT 记录
//
// 返回不含 /p2p 的地址与节点 ID。
func ParseDNSAddr(txt string) (ma.Multiaddr, types.PeerID, error) {
	if !strings.HasPrefix(txt, DNSAddrPrefix) {
		return nil, types.EmptyPeerID, ErrNotDNSAddr
	}
	full, err := ma.NewMultiaddr(strings.TrimPrefix(txt, DNSAddrPrefix))
	if err != nil {
		return nil, types.EmptyPeerID, fmt.Errorf("parse dnsaddr: %w", err)
	}
	addr, peer, err := types.SplitPeerAddr(full)
	if err != nil {
		return nil, types.EmptyPeerID, fmt.Errorf("%w: %v", ErrNoPeerID, err)
	}
	return addr, peer, nil
}

// FormatDNSAddr 生成 dnsaddr TXT 记录
func FormatDNSAddr(addr ma.Multiaddr, peer types.PeerID) (string, error) {
	full, err := types.JoinPeerAddr(addr, peer)
	if err != nil {
		return "", err
	}
	return DNSAddrPrefix + full.String(), nil
}

// handleEntry 处理一条查询应答
func (s *Service) handleEntry(entry *mdns.ServiceEntry) {
	if entry == nil {
		return
	}
	for _, txt := range entry.InfoFields {
		addr, peer, err := ParseDNSAddr(txt)
		if err != nil {
			if !errors.Is(err, ErrNotDNSAddr) {
				logger.Debug("忽略无效 TXT 记录", "entry", entry.Name, "txt", txt, "error", err)
			}
			continue
		}
		if peer == s.local {
			continue
		}
		s.observe(peer, addr)
	}
}

// observe 插入或刷新一条记录
func (s *Service) observe(peer types.PeerID, addr ma.Multiaddr) {
	key := recordKey{peer: peer, addr: addr.String()}
	expires := s.cfg.Clock.Now().Add(s.cfg.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if rec, ok := s.records[key]; ok {
		rec.expires = expires
		return
	}
	s.records[key] = &record{peer: peer, addr: addr, expires: expires}
	logger.Debug("发现节点", "peer", peer.ShortString(), "addr", key.addr)
	s.emit.Emit(types.PeerDiscovered{Peer: peer, Addr: addr})
}

// sweep 移除过期记录并发出 PeerExpired
func (s *Service) sweep() {
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for key, rec := range s.records {
		if now.Before(rec.expires) {
			continue
		}
		delete(s.records, key)
		logger.Debug("节点记录过期", "peer", rec.peer.ShortString(), "addr", key.addr)
		s.emit.Emit(types.PeerExpired{Peer: rec.peer, Addr: rec.addr})
	}
}

// Records 返回当前记录表中的节点地址数
func (s *Service) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
