package events

import (
	"time"

	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// Observer publishes per-control engine callbacks on a Bus.
type Observer struct {
	bus *Bus
	now func() time.Time
}

var _ bufctrl.Observer = (*Observer)(nil)

// NewObserver creates an Observer publishing to bus.
func NewObserver(bus *Bus) *Observer {
	return &Observer{bus: bus, now: time.Now}
}

func (o *Observer) stamp() string {
	return o.now().UTC().Format(time.RFC3339Nano)
}

func (o *Observer) Applied(c *bufctrl.Context, mode bufctrl.Mode, inst *bufctrl.Instance) {
	o.bus.Publish(ControlAppliedEvent{
		Context:   c.ID,
		Mode:      mode.String(),
		Control:   inst.ID().String(),
		Value:     inst.Value,
		Timestamp: o.stamp(),
	})
}

func (o *Observer) Collected(c *bufctrl.Context, mode bufctrl.Mode, id bufctrl.ID, value int32) {
	o.bus.Publish(ControlCollectedEvent{
		Context:   c.ID,
		Mode:      mode.String(),
		Control:   id.String(),
		Value:     value,
		Timestamp: o.stamp(),
	})
}

func (o *Observer) Recovered(c *bufctrl.Context, mode bufctrl.Mode, inst *bufctrl.Instance) {
	restored := inst.OldValue
	if mode == bufctrl.ModeQueued {
		restored = inst.Value
	}
	o.bus.Publish(ControlRecoveredEvent{
		Context:   c.ID,
		Mode:      mode.String(),
		Control:   inst.ID().String(),
		Restored:  restored,
		Timestamp: o.stamp(),
	})
}

func (o *Observer) Rejected(c *bufctrl.Context, r bufctrl.Rejection) {
	o.bus.Publish(ControlRejectedEvent{
		Context:   c.ID,
		Control:   r.ID.String(),
		Value:     r.Value,
		Code:      string(r.Code),
		Reason:    r.Reason,
		Timestamp: o.stamp(),
	})
}
