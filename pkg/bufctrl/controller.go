package bufctrl

import (
	"io"
	"iter"
	"log/slog"
)

// Options configures a Controller.
type Options struct {
	Registry *Registry
	Logger   *slog.Logger
	Observer Observer
	Tracer   Tracer
}

// Controller runs the set/apply/collect/recover cycle of context control
// lists. It holds no per-context state and may serve many contexts at once.
type Controller struct {
	registry *Registry
	logger   *slog.Logger
	obs      Observer
	tracer   Tracer
}

// New creates a Controller. Zero options select the default registry and
// discard logging.
func New(opts Options) *Controller {
	ctl := &Controller{
		registry: opts.Registry,
		logger:   opts.Logger,
		obs:      opts.Observer,
		tracer:   opts.Tracer,
	}
	if ctl.registry == nil {
		ctl.registry = DefaultRegistry()
	}
	if ctl.logger == nil {
		ctl.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if ctl.obs == nil {
		ctl.obs = NopObserver{}
	}
	return ctl
}

// Registry returns the descriptor registry in use.
func (ctl *Controller) Registry() *Registry {
	return ctl.registry
}

// SetControl records a desired value for id. Unknown ids are logged and
// ignored. For get-only controls the call subscribes the context to the
// control on collect.
func (ctl *Controller) SetControl(c *Context, id ID, value int32) {
	d, ok := ctl.registry.Lookup(c.Kind, id)
	if !ok {
		ctl.logger.Warn("unknown control, skipping", "context", c.ID, "kind", c.Kind, "control", id)
		ctl.obs.Rejected(c, Rejection{ID: id, Value: value, Code: ErrCodeUnknownControl, Reason: "unknown control"})
		return
	}
	inst := c.Controls.set(d, value)
	if id == IDROIControl && c.Enc != nil {
		inst.ROISlot = c.Enc.ROIIndex
	}
}

// ApplyControls writes every pending control of c. In synchronous mode the
// backend is a RegisterBackend; in queued mode it is an *EncoderCommand or
// *DecoderCommand matching the context kind.
func (ctl *Controller) ApplyControls(c *Context, mode Mode, backend any) error {
	switch mode {
	case ModeSynchronous:
		regs, ok := backend.(RegisterBackend)
		if !ok || regs == nil {
			return backendMismatch(c, mode, backend)
		}
		c.registers = regs
		ctl.apply(c, mode, registerIO{regs: regs})
		return nil
	case ModeQueued:
		var fio commandIO
		switch cmd := backend.(type) {
		case *EncoderCommand:
			if c.Kind == KindEncoder && cmd != nil {
				fio = cmd.field
			}
		case *DecoderCommand:
			if c.Kind == KindDecoder && cmd != nil {
				fio = cmd.field
			}
		}
		if fio == nil {
			return backendMismatch(c, mode, backend)
		}
		ctl.apply(c, mode, fio)
		return nil
	}
	return backendMismatch(c, mode, backend)
}

func (ctl *Controller) traced(c *Context, mode Mode, fio fieldIO) fieldIO {
	if ctl.tracer == nil {
		return fio
	}
	return tracedIO{fieldIO: fio, tracer: ctl.tracer, ctx: c.ID, mode: mode}
}

func (ctl *Controller) apply(c *Context, mode Mode, fio fieldIO) {
	fio = ctl.traced(c, mode, fio)
	env := &resolveEnv{c: c, io: fio, logger: ctl.logger.With("context", c.ID), obs: ctl.obs}

	for inst := range c.Controls.Pending(DirSet) {
		d := inst.Desc
		inst.prior, inst.hasPrior = inst.committed, inst.hasCommitted

		if d.Volatile {
			ctl.snapshot(mode, fio, inst)
		}
		if d.Location == LocField {
			if !writeSpan(fio, d.Span, uint32(inst.Value)) {
				ctl.logger.Warn("control has no field in backend, skipping",
					"context", c.ID, "mode", mode, "control", d.ID, "field", d.Span.Field)
			}
		}
		if d.Flag != nil {
			setFlag(fio, *d.Flag)
		}

		inst.Pending = false
		inst.Applied = true
		inst.committed, inst.hasCommitted = inst.Value, true

		if d.ID == IDFrameTag {
			c.StoredFrameTag = inst.Value
		}
		if c.Kind == KindEncoder {
			if r, ok := resolvers[d.ID]; ok && r.apply != nil {
				r.apply(env, inst)
			}
		}
		ctl.obs.Applied(c, mode, inst)
		ctl.logger.Debug("control applied", "context", c.ID, "mode", mode, "control", d.ID, "value", inst.Value)
	}
}

// snapshot keeps what a volatile control's write is about to replace.
func (ctl *Controller) snapshot(mode Mode, fio fieldIO, inst *Instance) {
	d := inst.Desc
	if mode == ModeQueued {
		inst.OldValue = inst.prior
		inst.OldValueSecondary = 0
		return
	}
	if d.Span.Field != FieldNone {
		v, _ := readSpan(fio, d.Span)
		inst.OldValue = int32(v)
	}
	if d.Secondary != nil {
		v, _ := readSpan(fio, *d.Secondary)
		inst.OldValueSecondary = int32(v)
	}
}

// CollectControls reads back every get control of c from the backend: a
// RegisterBackend in synchronous mode, an *EncoderResult or *DecoderResult in
// queued mode. Applied controls are marked complete. The returned sequence
// yields the collected (id, value) pairs in list order.
func (ctl *Controller) CollectControls(c *Context, mode Mode, backend any) (iter.Seq2[ID, int32], error) {
	var fio fieldIO
	switch mode {
	case ModeSynchronous:
		if regs, ok := backend.(RegisterBackend); ok && regs != nil {
			fio = registerIO{regs: regs}
		}
	case ModeQueued:
		switch res := backend.(type) {
		case *EncoderResult:
			if c.Kind == KindEncoder && res != nil {
				fio = commandIO(res.field)
			}
		case *DecoderResult:
			if c.Kind == KindDecoder && res != nil {
				fio = commandIO(res.field)
			}
		}
	}
	if fio == nil {
		return nil, backendMismatch(c, mode, backend)
	}

	type result struct {
		id    ID
		value int32
	}
	var results []result
	for inst := range c.Controls.Pending(DirGet) {
		v, ok := ctl.read(c, fio, inst)
		if !ok {
			ctl.logger.Warn("control not readable from backend, skipping",
				"context", c.ID, "mode", mode, "control", inst.Desc.ID)
			continue
		}
		inst.Value = v
		results = append(results, result{id: inst.Desc.ID, value: v})
		ctl.obs.Collected(c, mode, inst.Desc.ID, v)
	}

	for inst := range c.Controls.All() {
		inst.Applied = false
	}

	return func(yield func(ID, int32) bool) {
		for _, r := range results {
			if !yield(r.id, r.value) {
				return
			}
		}
	}, nil
}

func (ctl *Controller) read(c *Context, fio fieldIO, inst *Instance) (int32, bool) {
	d := inst.Desc
	if d.Location != LocVirtual {
		v, ok := readSpan(fio, d.readSpan())
		return int32(v), ok
	}
	switch d.ID {
	case IDColorRange:
		return int32(c.Dec.ColorRange), true
	case IDColorSpace:
		return int32(c.Dec.ColorSpace), true
	case IDFrameErrorType:
		raw, ok := fio.load(d.Span.Field)
		if !ok {
			return 0, false
		}
		return int32(FrameErrorFromCode(raw)), true
	}
	return 0, false
}

// RecoverControls rolls back every applied volatile control of c, as when a
// submission is aborted before the device consumed it. In synchronous mode
// the snapshots are written back to the registers of the last synchronous
// apply. In queued mode the prior value is re-armed so the next command
// carries it. Calling it again is a no-op.
func (ctl *Controller) RecoverControls(c *Context, mode Mode) {
	if mode == ModeSynchronous && c.registers == nil {
		mode = ModeQueued
	}
	var fio fieldIO
	if mode == ModeSynchronous {
		fio = ctl.traced(c, mode, registerIO{regs: c.registers})
	}

	// Newest first, so controls sharing a field unwind to the oldest snapshot.
	for inst := range c.Controls.Backward() {
		d := inst.Desc
		if !inst.Applied || !d.Volatile {
			continue
		}

		if mode == ModeSynchronous {
			if d.Span.Field != FieldNone {
				writeSpan(fio, d.Span, uint32(inst.OldValue))
			}
			if d.Secondary != nil {
				writeSpan(fio, *d.Secondary, uint32(inst.OldValueSecondary))
			}
			if d.Flag != nil {
				clearFlag(fio, *d.Flag)
			}
		} else if inst.hasPrior {
			inst.Value = inst.prior
			inst.Pending = true
		}

		if r, ok := resolvers[d.ID]; ok && r.revert != nil && c.Enc != nil {
			r.revert(c, inst, mode)
		}
		inst.committed, inst.hasCommitted = inst.prior, inst.hasPrior
		inst.Applied = false

		ctl.obs.Recovered(c, mode, inst)
		ctl.logger.Debug("control recovered", "context", c.ID, "mode", mode, "control", d.ID)
	}
}
