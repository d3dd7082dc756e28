package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mfcctl",
		Subsystem: "device",
		Name:      "frames_total",
		Help:      "Frames executed by the simulated device",
	}, []string{"kind", "mode", "result"})

	frameTagMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mfcctl",
		Subsystem: "device",
		Name:      "frame_tag_mismatch_total",
		Help:      "Completed frames whose returned tag differs from the submitted one",
	})

	traceWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mfcctl",
		Subsystem: "trace",
		Name:      "writes_total",
		Help:      "Field writes recorded to the trace",
	})
)

// FrameExecuted counts one device run; result is "ok" or a frame error type.
func FrameExecuted(kind, mode, result string) {
	framesExecuted.WithLabelValues(kind, mode, result).Inc()
}

// FrameTagMismatch counts a completion reporting an unexpected tag.
func FrameTagMismatch() {
	frameTagMismatches.Inc()
}

// TraceWrite counts one recorded field write.
func TraceWrite() {
	traceWrites.Inc()
}
