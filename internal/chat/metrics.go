package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedPeers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_peers",
		Help: "Number of peers that completed the handshake and are registered",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total messages broadcast by type",
	}, []string{"type"})

	BroadcastDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_broadcast_seconds",
		Help:    "Time to fan a message out to all mailboxes",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	DeliveryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_delivery_failures_total",
		Help: "Mailbox deliveries that failed and evicted the receiving peer",
	}, []string{"reason"})

	AcceptErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_accept_errors_total",
		Help: "Errors returned by the listener while accepting connections",
	})

	ConnectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_connections_total",
		Help: "Accepted connections by transport",
	}, []string{"transport"})
)

func init() {
	prometheus.MustRegister(ConnectedPeers)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(BroadcastDuration)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(AcceptErrors)
	prometheus.MustRegister(ConnectionsTotal)
}
