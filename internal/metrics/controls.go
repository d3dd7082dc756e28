// Package metrics exposes control-plane and device counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

var (
	controlsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mfcctl",
		Subsystem: "controls",
		Name:      "applied_total",
		Help:      "Controls written by apply passes",
	}, []string{"kind", "mode", "control"})

	controlsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mfcctl",
		Subsystem: "controls",
		Name:      "collected_total",
		Help:      "Controls read back after frame completion",
	}, []string{"kind", "mode", "control"})

	controlsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mfcctl",
		Subsystem: "controls",
		Name:      "recovered_total",
		Help:      "Volatile controls rolled back after an aborted submission",
	}, []string{"kind", "mode", "control"})

	controlsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mfcctl",
		Subsystem: "controls",
		Name:      "rejected_total",
		Help:      "Controls skipped or cut short by the engine",
	}, []string{"kind", "code"})

	pendingControls = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mfcctl",
		Subsystem: "controls",
		Name:      "pending",
		Help:      "Controls set but not yet applied, per context",
	}, []string{"context"})
)

// Observer counts engine callbacks. It keeps no state of its own.
type Observer struct{}

var _ bufctrl.Observer = Observer{}

func (Observer) Applied(c *bufctrl.Context, mode bufctrl.Mode, inst *bufctrl.Instance) {
	controlsApplied.WithLabelValues(c.Kind.String(), mode.String(), inst.ID().String()).Inc()
}

func (Observer) Collected(c *bufctrl.Context, mode bufctrl.Mode, id bufctrl.ID, _ int32) {
	controlsCollected.WithLabelValues(c.Kind.String(), mode.String(), id.String()).Inc()
}

func (Observer) Recovered(c *bufctrl.Context, mode bufctrl.Mode, inst *bufctrl.Instance) {
	controlsRecovered.WithLabelValues(c.Kind.String(), mode.String(), inst.ID().String()).Inc()
}

func (Observer) Rejected(c *bufctrl.Context, r bufctrl.Rejection) {
	controlsRejected.WithLabelValues(c.Kind.String(), string(r.Code)).Inc()
}

// SetPending records how many controls of a context await apply.
func SetPending(contextID string, n int) {
	pendingControls.WithLabelValues(contextID).Set(float64(n))
}

// DeleteContext drops the per-context series of a destroyed context.
func DeleteContext(contextID string) {
	pendingControls.DeleteLabelValues(contextID)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
