package bufctrl

import "log/slog"

// Frame rate fixed-point resolutions.
const (
	FrameRateResolution     = 10000
	FrameRateResolutionH263 = 1000
)

const maxVPLayers = 3

// resolveEnv is what an exception resolver sees of an apply pass.
type resolveEnv struct {
	c      *Context
	io     fieldIO
	logger *slog.Logger
	obs    Observer
}

func (e *resolveEnv) reject(inst *Instance, code ErrorCode, reason string) {
	e.logger.Warn(reason, "control", inst.Desc.ID, "value", inst.Value, "codec", e.c.Codec)
	e.obs.Rejected(e.c, Rejection{ID: inst.Desc.ID, Value: inst.Value, Code: code, Reason: reason})
}

// resolver handles a control whose effect is not a single field write.
type resolver struct {
	apply func(e *resolveEnv, inst *Instance)
	// revert undoes the parameter block mirror on recovery.
	revert func(c *Context, inst *Instance, mode Mode)
}

var resolvers = map[ID]resolver{
	IDHierarchicalLayers: {apply: resolveHierarchicalLayers},
	IDH264BasePriority:   {apply: resolveBasePriority},
	IDROIControl:         {apply: resolveROI},
	IDFrameRateChange:    {apply: resolveFrameRate, revert: revertFrameRate},
	IDDropControl:        {apply: resolveDropControl, revert: revertFrameRate},
	IDH264Profile:        {apply: resolveProfile, revert: revertProfileLevel},
	IDH264Level:          {apply: resolveLevel, revert: revertProfileLevel},
	IDConfigQP:           {apply: func(e *resolveEnv, inst *Instance) { e.c.Enc.ConfigQP = uint32(inst.Value) }},
}

// PriorityExtension packs per-layer priorities (base+i, 6 bits each) into the
// two H.264 SVC extension words: layers 0..4 in the first, 5..6 in the second.
func PriorityExtension(base, layers uint32) (uint32, uint32) {
	var w0, w1 uint32
	for i := uint32(0); i < layers&0x7; i++ {
		prio := (base & 0x3F) + i
		if i <= 4 {
			w0 |= prio << (6 * i)
		} else {
			w1 |= prio << (6 * (i - 5))
		}
	}
	return w0, w1
}

func writePriority(e *resolveEnv) {
	w0, w1 := PriorityExtension(e.c.Enc.BasePriority, e.c.Enc.Layers.Count)
	e.io.store(FieldEH264HDSVCExt0, w0)
	e.io.store(FieldEH264HDSVCExt1, w1)
	setFlag(e.io, Flag{Field: FieldEParamChange, Bit: FlagPriorityChange})
}

// resolveHierarchicalLayers takes the layer count from the control value and
// the bitrate table from the shared layer buffer. An invalid count withdraws
// the num-layer-changed flag and stops here; writes already made by this
// pass stay in place.
func resolveHierarchicalLayers(e *resolveEnv, inst *Instance) {
	enc := e.c.Enc
	count := inst.Value
	vp := e.c.Codec == CodecVP8 || e.c.Codec == CodecVP9
	if count < 1 || count > MaxTemporalLayers || (vp && count > maxVPLayers) {
		clearFlag(e.io, Flag{Field: FieldEParamChange, Bit: FlagNumLayerChange})
		e.reject(inst, ErrCodeInvalidLayerCount, "invalid hierarchical layer count")
		return
	}

	enc.Layers.Count = uint32(count)
	enc.Layers.BitRate = enc.SharedLayers.BitRate

	bitrate := Flag{Field: FieldEParamChange, Bit: FlagBitRateChange}
	if enc.Layers.BitRate[0] > 0 || enc.FirmwareBitrate {
		setFlag(e.io, bitrate)
	} else {
		clearFlag(e.io, bitrate)
	}

	writeSpan(e.io, field(FieldENumTLayer, 3, 0), uint32(count))
	for i := 0; i < int(count); i++ {
		e.io.store(HierBitRateField(i), enc.Layers.BitRate[i])
	}

	if e.c.Codec == CodecH264 {
		writePriority(e)
	}
	e.logger.Debug("hierarchical layers changed", "count", count, "bitrate0", enc.Layers.BitRate[0])
}

func resolveBasePriority(e *resolveEnv, inst *Instance) {
	e.c.Enc.BasePriority = uint32(inst.Value)
	if e.c.Codec == CodecH264 {
		writePriority(e)
	}
}

func resolveROI(e *resolveEnv, inst *Instance) {
	slot := inst.ROISlot
	if slot < 0 || slot >= len(e.c.Enc.ROIBuffers) {
		e.reject(inst, ErrCodeInvalidValue, "ROI buffer slot out of range")
		return
	}
	e.io.store(FieldEROIBufferAddr, e.c.Enc.ROIBuffers[slot].DMAAddr)
}

func frameRateResolution(codec Codec) uint64 {
	if codec == CodecH263 {
		return FrameRateResolutionH263
	}
	return FrameRateResolution
}

func writeFrameRate(e *resolveEnv, res, delta uint64) {
	delta = min(delta, 0xFFFF)
	e.io.store(FieldEFrameRate, uint32(res)<<16|uint32(delta))
}

// resolveFrameRate takes a rate in frames per 1000 seconds.
func resolveFrameRate(e *resolveEnv, inst *Instance) {
	if inst.Value <= 0 {
		e.reject(inst, ErrCodeInvalidValue, "frame rate must be positive")
		return
	}
	res := frameRateResolution(e.c.Codec)
	e.c.Enc.FrameRate = uint32(inst.Value)
	writeFrameRate(e, res, res*1000/uint64(inst.Value))
}

// resolveDropControl takes the measured interval between frame timestamps in
// microseconds.
func resolveDropControl(e *resolveEnv, inst *Instance) {
	if inst.Value <= 0 {
		e.reject(inst, ErrCodeInvalidValue, "frame interval must be positive")
		return
	}
	interval := uint64(inst.Value)
	res := frameRateResolution(e.c.Codec)
	e.c.Enc.FrameRate = uint32(1_000_000_000 / interval)
	writeFrameRate(e, res, res*interval/1_000_000)
}

func revertFrameRate(c *Context, inst *Instance, _ Mode) {
	if inst.hasPrior {
		c.Enc.FrameRate = uint32(inst.prior)
	}
}

// Profile and level share FieldEPictureProfile. Each side takes the other
// from the parameter block so the result does not depend on apply order.
func writeProfileLevel(e *resolveEnv) {
	word := (e.c.Enc.Level&0xFF)<<8 | e.c.Enc.Profile&0xFF
	e.io.store(FieldEPictureProfile, word)
}

func resolveProfile(e *resolveEnv, inst *Instance) {
	e.c.Enc.Profile = uint32(inst.Value)
	writeProfileLevel(e)
}

func resolveLevel(e *resolveEnv, inst *Instance) {
	e.c.Enc.Level = uint32(inst.Value)
	writeProfileLevel(e)
}

// revertProfileLevel restores the mirror of the recovered side. The raw
// snapshot of a profile or level span is the control value itself.
func revertProfileLevel(c *Context, inst *Instance, mode Mode) {
	v := uint32(inst.OldValue)
	if mode == ModeQueued {
		if !inst.hasPrior {
			return
		}
		v = uint32(inst.prior)
	}
	if inst.Desc.ID == IDH264Level {
		c.Enc.Level = v
	} else {
		c.Enc.Profile = v
	}
}
