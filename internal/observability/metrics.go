// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vdelta_screener"

var (
	// FramesReceived counts raw frames read from the trade stream.
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "frames_received_total",
		Help:      "Total number of raw frames received from the feed",
	})

	// TradesDecoded counts frames that decoded into flow events.
	TradesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "trades_decoded_total",
		Help:      "Total number of frames decoded into flow events",
	})

	// FramesDiscarded counts discarded frames by reason.
	FramesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "frames_discarded_total",
		Help:      "Total number of frames discarded, labelled by reason",
	}, []string{"reason"})

	// Reconnects counts feed reconnection attempts.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "reconnects_total",
		Help:      "Total number of feed reconnect attempts",
	})

	// SessionStreaming is 1 while the feed session is streaming.
	SessionStreaming = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "session_streaming",
		Help:      "1 while the feed session is in the Streaming state",
	})

	// RetainedEvents reports the total number of events retained across all
	// symbol windows, sampled on each snapshot.
	RetainedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "collector",
		Name:      "retained_events",
		Help:      "Events retained across all symbol windows at last snapshot",
	})

	// SnapshotDuration observes snapshot computation latency.
	SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "collector",
		Name:      "snapshot_duration_seconds",
		Help:      "Snapshot computation duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
)

// Handler returns an HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
