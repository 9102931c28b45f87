// Package metrics exports Prometheus collectors for tunnel activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{Name: "ptunnel_connections_accepted_total", Help: "Client connections accepted"}, []string{"tunnel"})
	AcceptErrors        = promauto.NewCounterVec(prometheus.CounterOpts{Name: "ptunnel_accept_errors_total", Help: "Failed accepts"}, []string{"tunnel"})
	UpstreamDials       = promauto.NewCounterVec(prometheus.CounterOpts{Name: "ptunnel_upstream_dials_total", Help: "Upstream connection attempts by route and result"}, []string{"route", "result"})
	HandshakeFailures   = promauto.NewCounterVec(prometheus.CounterOpts{Name: "ptunnel_handshake_failures_total", Help: "Proxy handshake failures by kind"}, []string{"kind"})
	Bytes               = promauto.NewCounterVec(prometheus.CounterOpts{Name: "ptunnel_bytes_total", Help: "Bytes relayed by direction"}, []string{"tunnel", "direction"})
	ActiveSessions      = promauto.NewGauge(prometheus.GaugeOpts{Name: "ptunnel_active_sessions", Help: "Sessions currently relaying"})
	SessionDuration     = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ptunnel_session_duration_seconds", Help: "Relay lifetime seconds", Buckets: prometheus.ExponentialBuckets(0.01, 2, 16)})
)

// Result label values for UpstreamDials.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Direction label values for Bytes.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// ObserveDial counts one upstream attempt over route. A non-empty kind also
// counts a handshake failure of that kind.
func ObserveDial(route string, err error, kind string) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	UpstreamDials.WithLabelValues(route, result).Inc()

	if kind != "" {
		HandshakeFailures.WithLabelValues(kind).Inc()
	}
}

// ObserveBytes adds a finished session's byte counts for tunnel.
func ObserveBytes(tunnel string, sent, received int64) {
	Bytes.WithLabelValues(tunnel, DirectionSent).Add(float64(sent))
	Bytes.WithLabelValues(tunnel, DirectionReceived).Add(float64(received))
}
