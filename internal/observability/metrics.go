package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phawd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests on the metrics listener.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phawd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phawd",
			Subsystem: "socket",
			Name:      "frames_sent_total",
			Help:      "Outbound frames fully written.",
		},
		[]string{"peer"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phawd",
			Subsystem: "socket",
			Name:      "frames_received_total",
			Help:      "Inbound frames fully received and published.",
		},
		[]string{"peer"},
	)
	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phawd",
			Subsystem: "socket",
			Name:      "frames_superseded_total",
			Help:      "Complete inbound frames replaced by a newer one before the caller saw them.",
		},
		[]string{"peer"},
	)
	socketCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phawd",
			Subsystem: "socket",
			Name:      "closes_total",
			Help:      "Socket transport closes by reason.",
		},
		[]string{"peer", "reason"},
	)
	segmentAttaches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phawd",
			Subsystem: "shm",
			Name:      "attaches_total",
			Help:      "Shared segment attaches, split by whether this process created the segment.",
		},
		[]string{"segment", "created"},
	)
	segmentDetaches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phawd",
			Subsystem: "shm",
			Name:      "detaches_total",
			Help:      "Shared segment detaches.",
		},
		[]string{"segment"},
	)
	segmentLiveness = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phawd",
			Subsystem: "shm",
			Name:      "liveness",
			Help:      "Last liveness counter value observed by this process.",
		},
		[]string{"segment"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesSent, framesReceived, framesDropped, socketCloses,
			segmentAttaches, segmentDetaches, segmentLiveness,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameSent(peer string) {
	RegisterMetrics()
	framesSent.WithLabelValues(peer).Inc()
}

func RecordFrameReceived(peer string, superseded int) {
	RegisterMetrics()
	framesReceived.WithLabelValues(peer).Inc()
	if superseded > 0 {
		framesDropped.WithLabelValues(peer).Add(float64(superseded))
	}
}

func RecordSocketClose(peer, reason string) {
	RegisterMetrics()
	socketCloses.WithLabelValues(peer, reason).Inc()
}

func RecordSegmentAttach(segment string, created bool, liveness int64) {
	RegisterMetrics()
	segmentAttaches.WithLabelValues(segment, strconv.FormatBool(created)).Inc()
	segmentLiveness.WithLabelValues(segment).Set(float64(liveness))
}

func RecordSegmentDetach(segment string, liveness int64) {
	RegisterMetrics()
	segmentDetaches.WithLabelValues(segment).Inc()
	segmentLiveness.WithLabelValues(segment).Set(float64(liveness))
}
