package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the decode pipeline. Counters are
// registered on the default registry; the API server exposes /metrics.
var (
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ars430_packets_received_total",
		Help: "UDP packets received from the sensor",
	})
	BytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ars430_bytes_received_total",
		Help: "Raw payload bytes received from the sensor",
	})
	PacketsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ars430_packets_filtered_total",
		Help: "Packets dropped by the source-address gate",
	})
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ars430_decode_errors_total",
		Help: "Per-packet decode failures by kind",
	}, []string{"kind"})
	StatusPackets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ars430_status_packets_total",
		Help: "STATUS packets decoded",
	})
	EventPackets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ars430_event_packets_total",
		Help: "Event packets decoded by packet class",
	}, []string{"type"})
	DetectionsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ars430_detections_total",
		Help: "Detection records decoded",
	})
	EmptyEventsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ars430_empty_events_suppressed_total",
		Help: "Event packets with zero detections withheld from publication",
	})
	BatchesFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ars430_batches_flushed_total",
		Help: "Per-cycle batches flushed by category",
	}, []string{"category"})
	PublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ars430_publish_errors_total",
		Help: "Publisher fan-out failures",
	})
	DecodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ars430_decode_latency_seconds",
		Help:    "Wall time to classify and decode one packet",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveDecodeLatency records the elapsed time since start on the decode
// latency histogram.
func ObserveDecodeLatency(start time.Time) {
	DecodeLatency.Observe(time.Since(start).Seconds())
}
