package bufctrl

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"testing"
)

type fakeRegisters map[uint32]uint32

func (f fakeRegisters) Read(addr uint32) uint32 { return f[addr] }
func (f fakeRegisters) Write(addr, v uint32)    { f[addr] = v }

func (f fakeRegisters) field(fld Field) uint32 {
	addr, _ := fld.Register()
	return f[addr]
}

func (f fakeRegisters) setField(fld Field, v uint32) {
	addr, _ := fld.Register()
	f[addr] = v
}

type recordingObserver struct {
	NopObserver
	applied   []ID
	recovered []ID
	rejected  []Rejection
}

func (r *recordingObserver) Applied(_ *Context, _ Mode, inst *Instance) {
	r.applied = append(r.applied, inst.ID())
}

func (r *recordingObserver) Recovered(_ *Context, _ Mode, inst *Instance) {
	r.recovered = append(r.recovered, inst.ID())
}

func (r *recordingObserver) Rejected(_ *Context, rej Rejection) {
	r.rejected = append(r.rejected, rej)
}

func testController(obs Observer) *Controller {
	return New(Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Observer: obs,
	})
}

func collectMap(t *testing.T, ctl *Controller, c *Context, mode Mode, backend any) map[ID]int32 {
	t.Helper()
	seq, err := ctl.CollectControls(c, mode, backend)
	if err != nil {
		t.Fatalf("CollectControls failed: %v", err)
	}
	out := make(map[ID]int32)
	for id, v := range seq {
		out[id] = v
	}
	return out
}

func flagSet(word uint32, bit uint8) bool {
	return word&(1<<bit) != 0
}

func TestFrameTagRoundTrip(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDFrameTag, 0x2A)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatalf("ApplyControls failed: %v", err)
	}
	if c.StoredFrameTag != 0x2A {
		t.Errorf("StoredFrameTag = %#x, want 0x2a", c.StoredFrameTag)
	}

	// device echoes the tag of the frame it ran
	regs.setField(FieldERetPictureTag, regs.field(FieldEPictureTag))

	got := collectMap(t, ctl, c, ModeSynchronous, regs)
	if got[IDFrameTag] != 0x2A {
		t.Errorf("collected frame tag = %#x, want 0x2a", got[IDFrameTag])
	}
}

func TestUnknownControlIsNoop(t *testing.T) {
	obs := &recordingObserver{}
	ctl := testController(obs)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, ID(0xFFFFFFFF), 5)
	if c.Controls.Len() != 0 {
		t.Fatalf("unknown control was added to the list")
	}
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatalf("ApplyControls failed: %v", err)
	}
	if len(regs) != 0 {
		t.Errorf("registers touched: %v", regs)
	}

	cmd := &EncoderCommand{}
	if err := ctl.ApplyControls(c, ModeQueued, cmd); err != nil {
		t.Fatalf("ApplyControls failed: %v", err)
	}
	if *cmd != (EncoderCommand{}) {
		t.Errorf("command touched: %+v", *cmd)
	}

	if len(obs.rejected) != 1 || obs.rejected[0].Code != ErrCodeUnknownControl {
		t.Errorf("rejections = %+v, want one unknown control", obs.rejected)
	}
}

func TestDecoderOnlyControlUnknownToEncoder(t *testing.T) {
	ctl := testController(nil)
	c := NewContext("enc0", KindEncoder, CodecH264)
	ctl.SetControl(c, IDLumaCRC, 0)
	if c.Controls.Len() != 0 {
		t.Error("decoder control accepted by encoder context")
	}
}

func TestNonVolatileRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		id    ID
		value int32
		field Field
		want  uint32
		flag  int
	}{
		{"gop", IDGOPSize, 30, FieldEGOPConfig, 30, FlagGOPChange},
		{"bitrate", IDBitRate, 4_000_000, FieldERCBitRate, 4_000_000, FlagBitRateChange},
		{"min qp", IDH264MinQP, 10, FieldERCQPBound, 10, FlagQPBoundChange},
		{"max qp", IDH264MaxQP, 40, FieldERCQPBound, 40 << 8, FlagQPBoundChange},
		{"max qp p", IDH264MaxQPP, 45, FieldERCQPBoundPB, 45 << 8, FlagQPBoundPBChange},
		{"config qp", IDConfigQP, 25, FieldEFixedPictureQP, 25, FlagFrameQPChange},
		{"force key frame", IDForceKeyFrame, 1, FieldEFrameInsertion, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := testController(nil)
			regs := fakeRegisters{}
			c := NewContext("enc0", KindEncoder, CodecH264)

			ctl.SetControl(c, tt.id, tt.value)
			if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
				t.Fatalf("ApplyControls failed: %v", err)
			}
			if got := regs.field(tt.field); got != tt.want {
				t.Errorf("%s = %#x, want %#x", tt.field, got, tt.want)
			}
			if tt.flag >= 0 && !flagSet(regs.field(FieldEParamChange), uint8(tt.flag)) {
				t.Errorf("flag bit %d not set", tt.flag)
			}

			cmd := &EncoderCommand{}
			ctl.SetControl(c, tt.id, tt.value)
			if err := ctl.ApplyControls(c, ModeQueued, cmd); err != nil {
				t.Fatalf("ApplyControls failed: %v", err)
			}
			if got := *cmd.field(tt.field); got != tt.want {
				t.Errorf("queued %s = %#x, want %#x", tt.field, got, tt.want)
			}
		})
	}
}

func TestApplyPreservesNeighbouringBits(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	regs.setField(FieldERCQPBound, 0xAB00)
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDH264MinQP, 0x12)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatalf("ApplyControls failed: %v", err)
	}
	if got := regs.field(FieldERCQPBound); got != 0xAB12 {
		t.Errorf("E_RC_QP_BOUND = %#x, want 0xab12", got)
	}
}

func TestStateTransitions(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDForceKeyFrame, 1)
	inst, _ := c.Controls.Get(IDForceKeyFrame)
	if inst.State() != StatePending {
		t.Fatalf("after set: %v, want pending", inst.State())
	}
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if inst.State() != StateApplied {
		t.Fatalf("after apply: %v, want applied", inst.State())
	}
	if _, err := ctl.CollectControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if inst.State() != StateClean || inst.Value != 1 {
		t.Fatalf("after collect: %v value %d, want clean with value 1", inst.State(), inst.Value)
	}
}

func TestRecoverIsIdempotent(t *testing.T) {
	obs := &recordingObserver{}
	ctl := testController(obs)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDForceKeyFrame, 2)
	ctl.SetControl(c, IDROIControl, 1)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}

	ctl.RecoverControls(c, ModeSynchronous)
	once := maps.Clone(regs)
	ctl.RecoverControls(c, ModeSynchronous)

	if !maps.Equal(once, regs) {
		t.Errorf("second recover changed registers: %v -> %v", once, regs)
	}
	if len(obs.recovered) != 2 {
		t.Errorf("recovered %v, want 2 controls once", obs.recovered)
	}
	for inst := range c.Controls.All() {
		if inst.Applied {
			t.Errorf("%s still applied", inst.ID())
		}
	}
	if regs.field(FieldEFrameInsertion) != 0 {
		t.Errorf("frame insertion not rolled back")
	}
}

func TestRecoverLeavesNonVolatileAlone(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDBitRate, 1000)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	ctl.RecoverControls(c, ModeSynchronous)

	if regs.field(FieldERCBitRate) != 1000 {
		t.Errorf("non-volatile bitrate rolled back")
	}
	if !flagSet(regs.field(FieldEParamChange), FlagBitRateChange) {
		t.Errorf("non-volatile flag cleared")
	}
}

func TestRollbackKeepsEarlierValue(t *testing.T) {
	tests := []struct {
		name        string
		collect     bool
		applySecond bool
	}{
		{"second value only set", false, false},
		{"second value applied", false, true},
		{"first frame completed", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := testController(nil)
			regs := fakeRegisters{}
			c := NewContext("enc0", KindEncoder, CodecH264)

			ctl.SetControl(c, IDForceKeyFrame, 1)
			if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
				t.Fatal(err)
			}
			if tt.collect {
				if _, err := ctl.CollectControls(c, ModeSynchronous, regs); err != nil {
					t.Fatal(err)
				}
			}
			ctl.SetControl(c, IDForceKeyFrame, 2)
			if tt.applySecond {
				if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
					t.Fatal(err)
				}
			}
			ctl.RecoverControls(c, ModeSynchronous)

			if got := regs.field(FieldEFrameInsertion); got != 1 {
				t.Errorf("E_FRAME_INSERTION = %d, want 1", got)
			}
		})
	}
}

func TestFrameRateChangeAndRecover(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	regs.setField(FieldEFrameRate, FrameRateResolution<<16|333)
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDFrameRateChange, 60000)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if got := regs.field(FieldEFrameRate); got != FrameRateResolution<<16|166 {
		t.Errorf("E_FRAME_RATE = %#x, want delta 166", got)
	}
	if !flagSet(regs.field(FieldEParamChange), FlagFrameRateChange) {
		t.Error("frame rate flag not set")
	}
	if c.Enc.FrameRate != 60000 {
		t.Errorf("FrameRate = %d, want 60000", c.Enc.FrameRate)
	}

	ctl.RecoverControls(c, ModeSynchronous)
	if got := regs.field(FieldEFrameRate); got != FrameRateResolution<<16|333 {
		t.Errorf("E_FRAME_RATE after recover = %#x, want delta 333", got)
	}
	if flagSet(regs.field(FieldEParamChange), FlagFrameRateChange) {
		t.Error("frame rate flag still set after recover")
	}
}

func TestFrameRateResolutionPerCodec(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		id    ID
		value int32
		want  uint32
	}{
		{"h264 rate", CodecH264, IDFrameRateChange, 30000, FrameRateResolution<<16 | 333},
		{"h263 rate", CodecH263, IDFrameRateChange, 30000, FrameRateResolutionH263<<16 | 33},
		{"h264 interval", CodecH264, IDDropControl, 33333, FrameRateResolution<<16 | 333},
		{"h263 interval", CodecH263, IDDropControl, 40000, FrameRateResolutionH263<<16 | 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := testController(nil)
			regs := fakeRegisters{}
			c := NewContext("enc0", KindEncoder, tt.codec)

			ctl.SetControl(c, tt.id, tt.value)
			if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
				t.Fatal(err)
			}
			if got := regs.field(FieldEFrameRate); got != tt.want {
				t.Errorf("E_FRAME_RATE = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestInvalidFrameRateRejected(t *testing.T) {
	obs := &recordingObserver{}
	ctl := testController(obs)
	regs := fakeRegisters{}
	regs.setField(FieldEFrameRate, FrameRateResolution<<16|333)
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDFrameRateChange, 0)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if got := regs.field(FieldEFrameRate); got != FrameRateResolution<<16|333 {
		t.Errorf("E_FRAME_RATE changed to %#x", got)
	}
	if len(obs.rejected) != 1 || obs.rejected[0].Code != ErrCodeInvalidValue {
		t.Errorf("rejections = %+v", obs.rejected)
	}
}

func TestProfileLevelCoupling(t *testing.T) {
	orders := map[string][]ID{
		"level first":   {IDH264Level, IDH264Profile},
		"profile first": {IDH264Profile, IDH264Level},
	}
	values := map[ID]int32{IDH264Level: 40, IDH264Profile: 100}
	const want = 40<<8 | 100

	for name, order := range orders {
		t.Run(name+"/sync", func(t *testing.T) {
			ctl := testController(nil)
			regs := fakeRegisters{}
			c := NewContext("enc0", KindEncoder, CodecH264)
			for _, id := range order {
				ctl.SetControl(c, id, values[id])
			}
			if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
				t.Fatal(err)
			}
			if got := regs.field(FieldEPictureProfile); got != want {
				t.Errorf("E_PICTURE_PROFILE = %#x, want %#x", got, want)
			}
		})
		t.Run(name+"/queued", func(t *testing.T) {
			ctl := testController(nil)
			cmd := &EncoderCommand{}
			c := NewContext("enc0", KindEncoder, CodecH264)
			for _, id := range order {
				ctl.SetControl(c, id, values[id])
			}
			if err := ctl.ApplyControls(c, ModeQueued, cmd); err != nil {
				t.Fatal(err)
			}
			if cmd.PictureProfile != want {
				t.Errorf("PictureProfile = %#x, want %#x", cmd.PictureProfile, want)
			}
		})
	}
}

func TestProfileLevelSeparateFrames(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDH264Level, 41)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if _, err := ctl.CollectControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	ctl.SetControl(c, IDH264Profile, 77)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if got := regs.field(FieldEPictureProfile); got != 41<<8|77 {
		t.Errorf("E_PICTURE_PROFILE = %#x, want level 41 profile 77", got)
	}
}

func TestProfileLevelRecover(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)

	ctl.SetControl(c, IDH264Profile, 66)
	ctl.SetControl(c, IDH264Level, 30)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if _, err := ctl.CollectControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}

	ctl.SetControl(c, IDH264Level, 40)
	ctl.SetControl(c, IDH264Profile, 100)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	ctl.RecoverControls(c, ModeSynchronous)

	if got := regs.field(FieldEPictureProfile); got != 30<<8|66 {
		t.Errorf("E_PICTURE_PROFILE = %#x, want level 30 profile 66", got)
	}
	if c.Enc.Level != 30 || c.Enc.Profile != 66 {
		t.Errorf("parameter mirror = level %d profile %d, want 30/66", c.Enc.Level, c.Enc.Profile)
	}
}

func TestHierarchicalLayerBounds(t *testing.T) {
	tests := []struct {
		codec   Codec
		count   int32
		changed bool
	}{
		{CodecVP9, 0, false},
		{CodecVP9, 8, false},
		{CodecVP9, 4, false},
		{CodecVP9, 3, true},
		{CodecVP8, 1, true},
		{CodecH264, 7, true},
		{CodecH264, 8, false},
		{CodecHEVC, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.codec.String(), func(t *testing.T) {
			obs := &recordingObserver{}
			ctl := testController(obs)
			regs := fakeRegisters{}
			c := NewContext("enc0", KindEncoder, tt.codec)

			ctl.SetControl(c, IDGOPSize, 60)
			ctl.SetControl(c, IDHierarchicalLayers, tt.count)
			if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
				t.Fatal(err)
			}

			flags := regs.field(FieldEParamChange)
			if got := flagSet(flags, FlagNumLayerChange); got != tt.changed {
				t.Errorf("count %d: num-layer flag = %v, want %v", tt.count, got, tt.changed)
			}
			if !flagSet(flags, FlagGOPChange) || regs.field(FieldEGOPConfig) != 60 {
				t.Errorf("count %d: earlier write of the pass lost", tt.count)
			}
			if tt.changed {
				if got := regs.field(FieldENumTLayer); got != uint32(tt.count) {
					t.Errorf("E_NUM_T_LAYER = %d, want %d", got, tt.count)
				}
			} else {
				if regs.field(FieldENumTLayer) != 0 {
					t.Errorf("E_NUM_T_LAYER written for invalid count %d", tt.count)
				}
				if len(obs.rejected) != 1 || obs.rejected[0].Code != ErrCodeInvalidLayerCount {
					t.Errorf("rejections = %+v", obs.rejected)
				}
			}
		})
	}
}

func TestHierarchicalLayersH264(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)
	c.Enc.SharedLayers.BitRate = [MaxTemporalLayers]uint32{1000, 2000, 3000, 4000, 5000, 6000, 7000}

	ctl.SetControl(c, IDH264BasePriority, 2)
	ctl.SetControl(c, IDHierarchicalLayers, 6)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}

	for i := range 6 {
		if got := regs.field(HierBitRateField(i)); got != uint32(1000*(i+1)) {
			t.Errorf("layer %d bitrate = %d", i, got)
		}
	}
	if regs.field(HierBitRateField(6)) != 0 {
		t.Error("bitrate written beyond layer count")
	}

	wantW0 := uint32(2 | 3<<6 | 4<<12 | 5<<18 | 6<<24)
	if got := regs.field(FieldEH264HDSVCExt0); got != wantW0 {
		t.Errorf("SVC extension 0 = %#x, want %#x", got, wantW0)
	}
	if got := regs.field(FieldEH264HDSVCExt1); got != 7 {
		t.Errorf("SVC extension 1 = %#x, want 7", got)
	}

	flags := regs.field(FieldEParamChange)
	for _, bit := range []uint8{FlagNumLayerChange, FlagBitRateChange, FlagPriorityChange} {
		if !flagSet(flags, bit) {
			t.Errorf("flag bit %d not set", bit)
		}
	}
	if c.Enc.Layers.Count != 6 {
		t.Errorf("Layers.Count = %d, want 6", c.Enc.Layers.Count)
	}
}

func TestHierarchicalBitrateFlag(t *testing.T) {
	tests := []struct {
		name     string
		bitrate0 uint32
		firmware bool
		want     bool
	}{
		{"no layer bitrate", 0, false, false},
		{"firmware bitrate", 0, true, true},
		{"layer bitrate", 500, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := testController(nil)
			regs := fakeRegisters{}
			regs.setField(FieldEParamChange, 1<<FlagBitRateChange)
			c := NewContext("enc0", KindEncoder, CodecHEVC)
			c.Enc.SharedLayers.BitRate[0] = tt.bitrate0
			c.Enc.FirmwareBitrate = tt.firmware

			ctl.SetControl(c, IDHierarchicalLayers, 2)
			if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
				t.Fatal(err)
			}
			flags := regs.field(FieldEParamChange)
			if got := flagSet(flags, FlagBitRateChange); got != tt.want {
				t.Errorf("bitrate flag = %v, want %v", got, tt.want)
			}
			if flagSet(flags, FlagPriorityChange) {
				t.Error("priority flag set for HEVC")
			}
		})
	}
}

func TestBasePriorityUsesCurrentLayerCount(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)
	c.Enc.Layers.Count = 3

	ctl.SetControl(c, IDH264BasePriority, 10)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}

	if got := regs.field(FieldEH264HDSVCExt0); got != 10|11<<6|12<<12 {
		t.Errorf("SVC extension 0 = %#x", got)
	}
	if regs.field(FieldENumTLayer) != 0 || c.Enc.Layers.Count != 3 {
		t.Error("layer count touched by base priority")
	}
	if !flagSet(regs.field(FieldEParamChange), FlagPriorityChange) {
		t.Error("priority flag not set")
	}
}

func TestPriorityExtension(t *testing.T) {
	tests := []struct {
		base, layers uint32
		w0, w1       uint32
	}{
		{0, 0, 0, 0},
		{1, 1, 1, 0},
		{0, 7, 0 | 1<<6 | 2<<12 | 3<<18 | 4<<24, 5 | 6<<6},
		{0x41, 2, 1 | 2<<6, 0},
	}
	for _, tt := range tests {
		w0, w1 := PriorityExtension(tt.base, tt.layers)
		if w0 != tt.w0 || w1 != tt.w1 {
			t.Errorf("PriorityExtension(%d, %d) = %#x, %#x, want %#x, %#x", tt.base, tt.layers, w0, w1, tt.w0, tt.w1)
		}
	}
}

func TestROIControlUsesSlotSelectedAtSet(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)
	c.Enc.ROIBuffers = []ROIBuffer{{DMAAddr: 0x1000}, {DMAAddr: 0x2000}}
	c.Enc.ROIIndex = 1

	ctl.SetControl(c, IDROIControl, 1)
	c.Enc.ROIIndex = 0
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}

	if got := regs.field(FieldEROIBufferAddr); got != 0x2000 {
		t.Errorf("E_ROI_BUFFER_ADDR = %#x, want 0x2000", got)
	}
	if regs.field(FieldEROICtrl) != 1 {
		t.Error("ROI not enabled")
	}
	inst, _ := c.Controls.Get(IDROIControl)
	if inst.OldValueSecondary != 0 {
		t.Errorf("ROI slot leaked into the second snapshot slot")
	}
}

func TestROIControlSlotOutOfRange(t *testing.T) {
	obs := &recordingObserver{}
	ctl := testController(obs)
	regs := fakeRegisters{}
	c := NewContext("enc0", KindEncoder, CodecH264)
	c.Enc.ROIIndex = 3

	ctl.SetControl(c, IDROIControl, 1)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if regs.field(FieldEROIBufferAddr) != 0 {
		t.Error("ROI address written for missing slot")
	}
	if len(obs.rejected) != 1 {
		t.Errorf("rejections = %+v", obs.rejected)
	}
}

func TestDecoderCollect(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("dec0", KindDecoder, CodecHEVC)
	c.Dec = DecoderState{ColorRange: 1, ColorSpace: 5}

	for _, id := range []ID{IDFrameTag, IDDisplayStatus, IDLumaCRC, IDChromaCRC, IDFrameErrorType, IDColorRange, IDColorSpace} {
		ctl.SetControl(c, id, 0)
	}
	ctl.SetControl(c, IDFrameTag, 9)
	if err := ctl.ApplyControls(c, ModeSynchronous, regs); err != nil {
		t.Fatal(err)
	}
	if regs.field(FieldDPictureTag) != 9 {
		t.Fatalf("decoder tag not written")
	}

	regs.setField(FieldDRetPictureTag, 9)
	regs.setField(FieldDDisplayStatus, 2)
	regs.setField(FieldDLumaCRC, 0xDEADBEEF)
	regs.setField(FieldDChromaCRC, 0x1234)
	regs.setField(FieldDErrorCode, HWErrBrokenLink)

	got := collectMap(t, ctl, c, ModeSynchronous, regs)
	want := map[ID]int32{
		IDFrameTag:       9,
		IDDisplayStatus:  2,
		IDLumaCRC:        int32(-559038737), // 0xDEADBEEF
		IDChromaCRC:      0x1234,
		IDFrameErrorType: int32(FrameErrorBrokenLink),
		IDColorRange:     1,
		IDColorSpace:     5,
	}
	if !maps.Equal(got, want) {
		t.Errorf("collected %v, want %v", got, want)
	}
}

func TestCollectIsRestartable(t *testing.T) {
	ctl := testController(nil)
	regs := fakeRegisters{}
	c := NewContext("dec0", KindDecoder, CodecH264)
	ctl.SetControl(c, IDDisplayStatus, 0)
	ctl.SetControl(c, IDColorSpace, 0)

	seq, err := ctl.CollectControls(c, ModeSynchronous, regs)
	if err != nil {
		t.Fatal(err)
	}
	var first, second int
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != 2 || second != 2 {
		t.Errorf("iterations = %d, %d, want 2, 2", first, second)
	}
}

func TestBackendMismatch(t *testing.T) {
	ctl := testController(nil)
	enc := NewContext("enc0", KindEncoder, CodecH264)
	dec := NewContext("dec0", KindDecoder, CodecH264)

	tests := []struct {
		name    string
		c       *Context
		mode    Mode
		backend any
	}{
		{"nil registers", enc, ModeSynchronous, nil},
		{"command in sync mode", enc, ModeSynchronous, &EncoderCommand{}},
		{"registers in queued mode", enc, ModeQueued, fakeRegisters{}},
		{"decoder command for encoder", enc, ModeQueued, &DecoderCommand{}},
		{"encoder command for decoder", dec, ModeQueued, &EncoderCommand{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ctl.ApplyControls(tt.c, tt.mode, tt.backend)
			if !errors.Is(err, ErrBackendMismatch) {
				t.Errorf("err = %v, want backend mismatch", err)
			}
		})
	}

	if _, err := ctl.CollectControls(dec, ModeQueued, &EncoderResult{}); !errors.Is(err, ErrBackendMismatch) {
		t.Errorf("collect err = %v, want backend mismatch", err)
	}
}

func TestPendingIteratorRestartable(t *testing.T) {
	ctl := testController(nil)
	c := NewContext("enc0", KindEncoder, CodecH264)
	ctl.SetControl(c, IDGOPSize, 1)
	ctl.SetControl(c, IDFrameType, 0)
	ctl.SetControl(c, IDBitRate, 2)

	var ids []ID
	for inst := range c.Controls.Pending(DirSet) {
		ids = append(ids, inst.ID())
		break
	}
	for inst := range c.Controls.Pending(DirSet) {
		ids = append(ids, inst.ID())
	}
	want := []ID{IDGOPSize, IDGOPSize, IDBitRate}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}

	var gets []ID
	for inst := range c.Controls.Pending(DirGet) {
		gets = append(gets, inst.ID())
	}
	if len(gets) != 1 || gets[0] != IDFrameType {
		t.Errorf("get controls = %v, want [frame_type]", gets)
	}
}
