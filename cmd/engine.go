// Package cmd holds the subcommands of mfcctl.
package cmd

import (
	"github.com/smazurov/mfcctl/internal/device"
	"github.com/smazurov/mfcctl/internal/events"
	"github.com/smazurov/mfcctl/internal/logging"
	"github.com/smazurov/mfcctl/internal/metrics"
	"github.com/smazurov/mfcctl/internal/session"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// NewSession wires the control engine, the simulated device and the
// observers feeding metrics and bus. tracer may be nil.
func NewSession(bus *events.Bus, tracer bufctrl.Tracer) *session.Session {
	observers := bufctrl.Observers{metrics.Observer{}}
	if bus != nil {
		observers = append(observers, events.NewObserver(bus))
	}
	ctl := bufctrl.New(bufctrl.Options{
		Logger:   logging.GetLogger("bufctrl"),
		Observer: observers,
		Tracer:   tracer,
	})
	return session.New(session.Options{
		Controller: ctl,
		Device:     device.New(logging.GetLogger("device")),
		Bus:        bus,
		Logger:     logging.GetLogger("session"),
	})
}
