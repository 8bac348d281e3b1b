package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server counters, registered on the default Prometheus registry and
// exported by the daemon's /metrics endpoint.
var (
	metricPacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iwp_packets_received_total",
		Help: "Datagrams received by the IWP server.",
	})
	metricBytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iwp_bytes_received_total",
		Help: "Payload bytes received by the IWP server.",
	})
	metricInvalidPackets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iwp_invalid_packets_total",
		Help: "Datagrams whose decode reported an error.",
	})
	metricQueueOverflow = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iwp_queue_overflow_total",
		Help: "Deliveries dropped because the command queue was full.",
	})
	metricPacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iwp_packets_sent_total",
		Help: "Datagrams transmitted by Send.",
	})
	metricBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iwp_bytes_sent_total",
		Help: "Payload bytes transmitted by Send.",
	})
)
