package bufctrl

import "iter"

// Instance is the per-context state of one control.
type Instance struct {
	Desc *Descriptor

	Value int32
	// OldValue and OldValueSecondary are rollback snapshots. In synchronous
	// mode they hold raw field contents read before the write; in queued
	// mode OldValue holds the prior committed control value.
	OldValue          int32
	OldValueSecondary int32
	// ROISlot is the ROI buffer index captured when an ROI control is set.
	ROISlot int

	Pending bool
	Applied bool

	committed    int32
	hasCommitted bool
	prior        int32
	hasPrior     bool
}

// ID returns the control id of the instance.
func (i *Instance) ID() ID {
	return i.Desc.ID
}

// State reports the lifecycle state of the instance.
func (i *Instance) State() State {
	switch {
	case i.Pending:
		return StatePending
	case i.Applied:
		return StateApplied
	default:
		return StateClean
	}
}

// State is the lifecycle state of an instance.
type State uint8

// Instance states.
const (
	StateClean State = iota
	StatePending
	StateApplied
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApplied:
		return "applied"
	default:
		return "clean"
	}
}

// List is the ordered control list of one context. Order is insertion order.
type List struct {
	items []*Instance
}

// Len returns the number of instances.
func (l *List) Len() int {
	return len(l.items)
}

// Get returns the instance of id, if present.
func (l *List) Get(id ID) (*Instance, bool) {
	for _, inst := range l.items {
		if inst.Desc.ID == id {
			return inst, true
		}
	}
	return nil, false
}

// All iterates every instance in insertion order.
func (l *List) All() iter.Seq[*Instance] {
	return func(yield func(*Instance) bool) {
		for _, inst := range l.items {
			if !yield(inst) {
				return
			}
		}
	}
}

// Backward iterates every instance in reverse insertion order.
func (l *List) Backward() iter.Seq[*Instance] {
	return func(yield func(*Instance) bool) {
		for i := len(l.items) - 1; i >= 0; i-- {
			if !yield(l.items[i]) {
				return
			}
		}
	}
}

// Pending iterates the instances an engine pass must visit: instances with a
// pending write for DirSet, instances with a get direction for DirGet. Each
// call walks the list afresh.
func (l *List) Pending(dir Direction) iter.Seq[*Instance] {
	return func(yield func(*Instance) bool) {
		for _, inst := range l.items {
			var match bool
			switch dir {
			case DirSet:
				match = inst.Pending && inst.Desc.Direction&DirSet != 0
			case DirGet:
				match = inst.Desc.Direction&DirGet != 0
			}
			if match && !yield(inst) {
				return
			}
		}
	}
}

// set inserts or updates the instance of d.
func (l *List) set(d *Descriptor, value int32) *Instance {
	inst, ok := l.Get(d.ID)
	if !ok {
		inst = &Instance{Desc: d}
		l.items = append(l.items, inst)
	}
	inst.Value = value
	if d.Direction&DirSet != 0 {
		// A still-applied earlier write is accepted as committed.
		inst.Applied = false
		inst.Pending = true
	}
	return inst
}

// Reset drops every instance, as when the context is destroyed.
func (l *List) Reset() {
	l.items = nil
}
