package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectAttemptsTotal  = promauto.NewCounterVec(prometheus.CounterOpts{Name: "wstunnel_connect_attempts_total", Help: "Transport connect attempts by scheme"}, []string{"scheme"})
	ConnectErrorsTotal    = promauto.NewCounterVec(prometheus.CounterOpts{Name: "wstunnel_connect_errors_total", Help: "Connect errors by kind"}, []string{"kind"})
	ActiveRelays          = promauto.NewGauge(prometheus.GaugeOpts{Name: "wstunnel_active_relays", Help: "Relays currently bridging a local stream and a tunnel session"})
	RelayBytesTotal       = promauto.NewCounterVec(prometheus.CounterOpts{Name: "wstunnel_relay_bytes_total", Help: "Bytes relayed by direction"}, []string{"direction"})
	KeepaliveTotal        = promauto.NewCounter(prometheus.CounterOpts{Name: "wstunnel_keepalive_total", Help: "Transport keepalive frames sent"})
	ReverseRetriesTotal   = promauto.NewCounter(prometheus.CounterOpts{Name: "wstunnel_reverse_retries_total", Help: "Reverse tunnel reconnect attempts after failure"})
	RelayDurationSeconds  = promauto.NewHistogram(prometheus.HistogramOpts{Name: "wstunnel_relay_duration_seconds", Help: "Relay lifetime seconds", Buckets: prometheus.ExponentialBuckets(0.01, 2, 16)})
	ClaimDecodeErrorTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "wstunnel_claim_decode_errors_total", Help: "Routing claims that failed verification or parsing"})
)
