package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-margo/pkg/types"
)

const namespace = "margo"

// Metrics 节点指标集合
type Metrics struct {
	registry *prometheus.Registry

	ConnectedPeers    prometheus.Gauge
	ConnectionsOpened *prometheus.CounterVec
	ConnectionsClosed *prometheus.CounterVec
	DialFailures      prometheus.Counter
	ListenAddrs       prometheus.Gauge

	PeersDiscovered  prometheus.Counter
	PeersExpired     prometheus.Counter
	IdentifyReceived prometheus.Counter

	PingRTT      prometheus.Histogram
	PingFailures prometheus.Counter
}

// New 创建指标集合并注册到新的 Registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ConnectedPeers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_peers",
			Help:      "Number of peers with an open connection",
		}),
		ConnectionsOpened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_opened_total",
			Help:      "Connections added to the connection table by direction",
		}, []string{"direction"}),
		ConnectionsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Connections removed from the connection table by cause",
		}, []string{"cause"}),
		DialFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dial_failures_total",
			Help:      "Outbound dial attempts that failed",
		}),
		ListenAddrs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listen_addrs",
			Help:      "Number of bound listen addresses",
		}),

		PeersDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mdns",
			Name:      "peers_discovered_total",
			Help:      "Peer addresses discovered via mDNS",
		}),
		PeersExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mdns",
			Name:      "peers_expired_total",
			Help:      "Discovered peer addresses that expired",
		}),
		IdentifyReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identify_received_total",
			Help:      "Identify messages received from remote peers",
		}),

		PingRTT: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ping_rtt_seconds",
			Help:      "Round trip time of successful liveness probes",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		PingFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ping_failures_total",
			Help:      "Liveness probes that failed",
		}),
	}
}

// Registry 返回指标所在的 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回暴露指标的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe 按事件更新指标，未知事件忽略
func (m *Metrics) Observe(ev types.Event) {
	switch e := ev.(type) {
	case types.NewListenAddr:
		m.ListenAddrs.Inc()
	case types.ExpiredListenAddr:
		m.ListenAddrs.Dec()
	case types.ConnectionEstablished:
		m.ConnectedPeers.Inc()
		m.ConnectionsOpened.WithLabelValues(e.Direction.String()).Inc()
	case types.ConnectionClosed:
		m.ConnectedPeers.Dec()
		m.ConnectionsClosed.WithLabelValues(e.Cause.String()).Inc()
	case types.DialFailed:
		m.DialFailures.Inc()
	case types.PeerDiscovered:
		m.PeersDiscovered.Inc()
	case types.PeerExpired:
		m.PeersExpired.Inc()
	case types.IdentityReceived:
		m.IdentifyReceived.Inc()
	case types.LivenessResult:
		if e.OK() {
			m.PingRTT.Observe(e.RTT.Seconds())
		} else {
			m.PingFailures.Inc()
		}
	}
}
