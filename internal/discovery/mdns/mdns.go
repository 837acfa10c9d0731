package mdns

import (
	"context"
	"net"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/mdns"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/dep2p/go-margo/internal/core/transport/tcp"
	"github.com/dep2p/go-margo/pkg/interfaces"
	"github.com/dep2p/go-margo/pkg/lib/log"
	"github.com/dep2p/go-margo/pkg/types"
)

var logger = log.Logger("discovery/mdns")

// zoneServer 正在运行的 mDNS 应答服务
type zoneServer interface {
	Shutdown() error
}

// Service mDNS 发现能力
type Service struct {
	cfg      Config
	instance string

	// 网络操作，测试可替换
	query     func(*mdns.QueryParam) error
	newServer func(*mdns.Config) (zoneServer, error)

	mu      sync.Mutex
	local   types.PeerID
	emit    interfaces.Emitter
	cancel  context.CancelFunc
	started bool
	closed  bool
	records map[recordKey]*record
	wg      sync.WaitGroup

	// advMu 串行化广播服务的重建
	advMu  sync.Mutex
	server zoneServer
	txt    []string
}

var (
	_ interfaces.Capability    = (*Service)(nil)
	_ interfaces.ListenNotifee = (*Service)(nil)
)

// New 创建 mDNS 发现服务，零值字段取默认值
func New(cfg Config) *Service {
	return &Service{
		cfg:      cfg.withDefaults(),
		instance: uuid.NewString(),
		query:    mdns.Query,
		newServer: func(c *mdns.Config) (zoneServer, error) {
			return mdns.NewServer(c)
		},
		records: make(map[recordKey]*record),
	}
}

// Name 实现 Capability
func (s *Service) Name() string { return "mdns" }

// Protocols 实现 Capability；mDNS 不使用流协议
func (s *Service) Protocols() []string { return nil }

// HandleStream 实现 Capability
func (s *Service) HandleStream(st interfaces.Stream) { _ = st.Close() }

// Instance 返回广播使用的实例名
func (s *Service) Instance() string { return s.instance }

// Start 实现 Capability：启动查询与过期检查
func (s *Service) Start(ctx context.Context, host interfaces.Host, emit interfaces.Emitter) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.local = host.LocalPeer()
	s.emit = emit
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	s.mu.Unlock()

	go s.queryLoop(ctx)
	go s.sweepLoop(ctx)

	logger.Info("mDNS 发现已启动",
		"service", s.cfg.ServiceTag,
		"domain", s.cfg.Domain,
		"instance", s.instance,
		"interval", s.cfg.QueryInterval)
	return nil
}

// Close 实现 Capability：停止查询并撤销广播
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.records = make(map[recordKey]*record)
	s.mu.Unlock()

	s.wg.Wait()

	s.advMu.Lock()
	defer s.advMu.Unlock()
	return s.stopServerLocked()
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ============================================================================
//                              查询
// ============================================================================

// queryLoop 立即查询一次，之后按间隔查询
func (s *Service) queryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.cfg.Clock.Ticker(s.cfg.QueryInterval)
	defer ticker.Stop()

	for {
		s.runQuery(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runQuery 执行一次查询，阻塞到应答等待结束
func (s *Service) runQuery(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			s.handleEntry(e)
		}
	}()

	params := &mdns.QueryParam{
		Service:             s.cfg.ServiceTag,
		Domain:              s.cfg.Domain,
		Timeout:             s.cfg.QueryTimeout,
		DisableIPv6:         s.cfg.DisableIPv6,
		WantUnicastResponse: true,
		Entries:             entries,
	}
	if err := s.query(params); err != nil {
		logger.Debug("mDNS 查询失败", "error", err)
	}
	close(entries)
	<-done
}

// sweepLoop 定期移除过期记录
func (s *Service) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.cfg.Clock.Ticker(s.cfg.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// ============================================================================
//                              广播
// ============================================================================

// ListenAddrsChanged 实现 ListenNotifee：按新的监听地址重建广播
func (s *Service) ListenAddrsChanged(addrs []ma.Multiaddr) {
	s.mu.Lock()
	ready := s.started && !s.closed
	local := s.local
	s.mu.Unlock()
	if !ready {
		return
	}
	s.advertise(local, addrs)
}

func (s *Service) advertise(local types.PeerID, addrs []ma.Multiaddr) {
	s.advMu.Lock()
	defer s.advMu.Unlock()
	if s.isClosed() {
		return
	}

	if resolved, err := tcp.ResolveWildcard(addrs); err == nil {
		addrs = resolved
	} else {
		logger.Debug("展开通配地址失败", "error", err)
	}

	txt, ips, port := s.zoneRecords(local, addrs)
	if s.server != nil && slices.Equal(txt, s.txt) {
		return
	}
	if err := s.stopServerLocked(); err != nil {
		logger.Debug("关闭旧的 mDNS 服务失败", "error", err)
	}
	if len(txt) == 0 || port == 0 {
		return
	}

	zone, err := mdns.NewMDNSService(s.instance, s.cfg.ServiceTag, s.cfg.Domain, "", port, ips, txt)
	if err != nil {
		logger.Warn("创建 mDNS 服务失败", "error", err)
		return
	}
	server, err := s.newServer(&mdns.Config{Zone: zone})
	if err != nil {
		// 仍可作为查询方运行
		logger.Warn("启动 mDNS 广播失败", "error", err)
		return
	}
	s.server = server
	s.txt = txt
	logger.Info("mDNS 广播已启动", "instance", s.instance, "port", port, "records", len(txt))
}

// zoneRecords 从监听地址生成 TXT 记录、A/AAAA 地址与端口
func (s *Service) zoneRecords(local types.PeerID, addrs []ma.Multiaddr) ([]string, []net.IP, int) {
	var (
		txt  []string
		ips  []net.IP
		port int
	)
	for _, a := range addrs {
		ip, err := manet.ToIP(a)
		if err != nil || ip.IsUnspecified() {
			continue
		}
		if ip.To4() == nil && s.cfg.DisableIPv6 {
			continue
		}
		rec, err := FormatDNSAddr(a, local)
		if err != nil {
			continue
		}
		if len(rec) > maxTXTLen {
			logger.Debug("TXT 记录过长，跳过", "addr", a.String())
			continue
		}
		txt = append(txt, rec)

		if !slices.ContainsFunc(ips, ip.Equal) {
			ips = append(ips, ip)
		}
		if port == 0 {
			if v, err := a.ValueForProtocol(ma.P_TCP); err == nil {
				port, _ = strconv.Atoi(v)
			}
		}
	}
	return txt, ips, port
}

func (s *Service) stopServerLocked() error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown()
	s.server = nil
	s.txt = nil
	return err
}
