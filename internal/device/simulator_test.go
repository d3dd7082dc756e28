package device

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

func newTestSimulator() *Simulator {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func reg(f bufctrl.Field) uint32 {
	addr, _ := f.Register()
	return addr
}

func TestRegisterBank(t *testing.T) {
	s := newTestSimulator()
	if s.Read(0x1234) != 0 {
		t.Error("unwritten register not zero")
	}
	s.Write(0x1234, 7)
	snap := s.Snapshot()
	s.Write(0x1234, 8)
	if snap[0x1234] != 7 || s.Read(0x1234) != 8 {
		t.Error("snapshot shares storage with the bank")
	}
	s.Reset()
	if len(s.Snapshot()) != 0 {
		t.Error("reset left registers behind")
	}
}

func TestExecuteEncodeEchoesTagAndConsumesOneShots(t *testing.T) {
	s := newTestSimulator()
	s.Write(reg(bufctrl.FieldEPictureTag), 0x2A)
	s.Write(reg(bufctrl.FieldEParamChange), 0xFF)

	res := s.ExecuteEncode([]byte("frame"))
	if res.FrameTag != 0x2A || s.Read(reg(bufctrl.FieldERetPictureTag)) != 0x2A {
		t.Errorf("tag not echoed: %+v", res)
	}
	if res.FrameType != FrameTypeI {
		t.Errorf("first frame type = %d, want I", res.FrameType)
	}
	if s.Read(reg(bufctrl.FieldEParamChange)) != 0 {
		t.Error("parameter change flags not consumed")
	}
	if len(res.Stream) != len("frame")+2 || res.Stream[0] != byte(FrameTypeI) {
		t.Errorf("stream = %x", res.Stream)
	}
}

func TestFrameTypeSelection(t *testing.T) {
	s := newTestSimulator()
	s.Write(reg(bufctrl.FieldEGOPConfig), 3)

	var got []uint32
	for i := range 5 {
		if i == 4 {
			s.Write(reg(bufctrl.FieldEFrameInsertion), InsertIFrame)
		}
		got = append(got, s.ExecuteEncode([]byte{byte(i)}).FrameType)
	}
	want := []uint32{FrameTypeI, FrameTypeP, FrameTypeP, FrameTypeI, FrameTypeI}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame types = %v, want %v", got, want)
		}
	}
	if s.Read(reg(bufctrl.FieldEFrameInsertion)) != InsertNone {
		t.Error("frame insertion not consumed")
	}

	s.Write(reg(bufctrl.FieldEFrameInsertion), InsertNotCoded)
	res := s.ExecuteEncode([]byte{1})
	if res.FrameType != FrameTypeNotCoded || res.Stream != nil {
		t.Errorf("not-coded frame = %+v", res)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	s := newTestSimulator()
	raw := bytes.Repeat([]byte{1, 2, 3}, 10)
	stream := s.ExecuteEncode(raw).Stream

	s.Write(reg(bufctrl.FieldDPictureTag), 9)
	res := s.ExecuteDecode(stream)
	if res.ErrorCode != 0 || res.DisplayStatus != DisplayDecodeAndShow || res.FrameTag != 9 {
		t.Fatalf("decode = %+v", res)
	}
	if res.LumaCRC == 0 || res.LumaCRC != s.Read(reg(bufctrl.FieldDLumaCRC)) {
		t.Errorf("luma CRC = %#x", res.LumaCRC)
	}
	if s.Read(reg(bufctrl.FieldDRetPictureTag)) != 9 {
		t.Error("decoder tag not echoed")
	}

	again := s.ExecuteDecode(stream)
	if again.LumaCRC != res.LumaCRC || again.ChromaCRC != res.ChromaCRC {
		t.Error("CRCs not deterministic")
	}
}

func TestDecodeErrors(t *testing.T) {
	s := newTestSimulator()
	stream := s.ExecuteEncode([]byte("payload")).Stream

	corrupt := bytes.Clone(stream)
	corrupt[2] ^= 0xFF

	tests := []struct {
		name   string
		stream []byte
		inject *uint32
		want   bufctrl.FrameErrorType
	}{
		{"clean", stream, nil, bufctrl.FrameErrorNone},
		{"empty", nil, nil, bufctrl.FrameErrorNoSyncPoint},
		{"corrupt", corrupt, nil, bufctrl.FrameErrorCorrupted},
		{"injected", stream, ptr(uint32(bufctrl.HWErrBrokenLink)), bufctrl.FrameErrorBrokenLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.inject != nil {
				s.InjectError(*tt.inject)
			}
			res := s.ExecuteDecode(tt.stream)
			if got := bufctrl.FrameErrorFromCode(res.ErrorCode); got != tt.want {
				t.Errorf("error type = %s, want %s", got, tt.want)
			}
		})
	}

	if res := s.ExecuteDecode(stream); res.ErrorCode != 0 {
		t.Error("injected error not one-shot")
	}
}

func ptr[T any](v T) *T { return &v }

func TestQueuedProcessing(t *testing.T) {
	s := newTestSimulator()
	res, stream := s.ProcessEncoder(&bufctrl.EncoderCommand{PictureTag: 5, FrameInsertion: InsertIFrame}, []byte("abc"))
	if res.PictureTag != 5 || res.FrameType != FrameTypeI || res.StreamSize != uint32(len(stream)) {
		t.Errorf("encoder result = %+v", res)
	}
	if len(s.Snapshot()) != 0 {
		t.Error("queued processing touched registers")
	}

	dres := s.ProcessDecoder(&bufctrl.DecoderCommand{PictureTag: 6}, stream)
	if dres.PictureTag != 6 || dres.ErrorCode != 0 {
		t.Errorf("decoder result = %+v", dres)
	}
}

func TestSimulatorDrivesSyncEngine(t *testing.T) {
	s := newTestSimulator()
	ctl := bufctrl.New(bufctrl.Options{})
	c := bufctrl.NewContext("enc0", bufctrl.KindEncoder, bufctrl.CodecH264)

	ctl.SetControl(c, bufctrl.IDFrameTag, 0x2A)
	ctl.SetControl(c, bufctrl.IDFrameType, 0)
	ctl.SetControl(c, bufctrl.IDForceKeyFrame, InsertIFrame)
	if err := ctl.ApplyControls(c, bufctrl.ModeSynchronous, s); err != nil {
		t.Fatal(err)
	}
	s.ExecuteEncode([]byte("x"))

	seq, err := ctl.CollectControls(c, bufctrl.ModeSynchronous, s)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[bufctrl.ID]int32)
	for id, v := range seq {
		got[id] = v
	}
	if got[bufctrl.IDFrameTag] != 0x2A || got[bufctrl.IDFrameType] != int32(FrameTypeI) {
		t.Errorf("collected %v", got)
	}
}
