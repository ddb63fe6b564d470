package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhub",
		Name:      "messages_sent_total",
		Help:      "Messages stored, by thread kind.",
	}, []string{"kind"})

	ThreadReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhub",
		Name:      "thread_reads_total",
		Help:      "Thread reads served, by thread kind.",
	}, []string{"kind"})

	AuthorizationDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhub",
		Name:      "authorization_denied_total",
		Help:      "Thread reads or writes rejected by role checks.",
	}, []string{"op", "kind"})

	PushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clubhub",
		Name:      "push_failures_total",
		Help:      "Failed FCM pushes.",
	})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "clubhub",
		Name:      "stream_clients",
		Help:      "Open websocket notification streams.",
	})

	PollFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhub",
		Name:      "poll_failures_total",
		Help:      "Failed client poll round trips, by concern.",
	}, []string{"concern"})
)
