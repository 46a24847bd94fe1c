package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FanoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quickrides", Name: "dispatch_fanouts_total",
		Help: "Ride offer fan-outs attempted",
	})
	FanoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quickrides", Name: "dispatch_fanout_failures_total",
		Help: "Background fan-out failures by reason",
	}, []string{"reason"})
	FanoutNoCandidates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quickrides", Name: "dispatch_no_candidates_total",
		Help: "Fan-outs that found zero eligible drivers",
	})
	OffersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quickrides", Name: "dispatch_offers_sent_total",
		Help: "Ride offers published to candidate drivers",
	})
	FanoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quickrides", Name: "dispatch_fanout_duration_seconds",
		Help:    "Candidate search plus offer publish latency",
		Buckets: prometheus.DefBuckets,
	})
	UndeliveredPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quickrides", Name: "channel_undelivered_publishes_total",
		Help: "Publishes that reached zero endpoints or hit a full buffer",
	}, []string{"event"})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quickrides", Name: "channel_active_connections",
		Help: "Live websocket connections",
	})
)
