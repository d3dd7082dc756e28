package bufctrl

import (
	"fmt"
	"strings"
)

// Codec is the bitstream format of a context.
type Codec uint8

// Codecs.
const (
	CodecH264 Codec = iota
	CodecHEVC
	CodecVP8
	CodecVP9
	CodecH263
	CodecMPEG4
)

var codecNames = []string{"h264", "hevc", "vp8", "vp9", "h263", "mpeg4"}

func (c Codec) String() string {
	if int(c) < len(codecNames) {
		return codecNames[c]
	}
	return fmt.Sprintf("codec(%d)", uint8(c))
}

// ParseCodec parses a codec name as printed by Codec.String.
func ParseCodec(s string) (Codec, error) {
	for i, name := range codecNames {
		if strings.EqualFold(name, s) {
			return Codec(i), nil
		}
	}
	return 0, fmt.Errorf("unknown codec %q", s)
}

// ParseKind parses "encoder" or "decoder".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "encoder", "enc":
		return KindEncoder, nil
	case "decoder", "dec":
		return KindDecoder, nil
	}
	return 0, fmt.Errorf("unknown context kind %q", s)
}

// MaxTemporalLayers is the size of the temporal layer bitrate table.
const MaxTemporalLayers = 7

// TemporalLayers is the temporal layer configuration shared with the caller.
type TemporalLayers struct {
	Count   uint32
	BitRate [MaxTemporalLayers]uint32
}

// ROIBuffer is one region-of-interest map buffer.
type ROIBuffer struct {
	DMAAddr uint32
}

// EncoderParams is the encoder parameter block the resolvers read and update.
type EncoderParams struct {
	// SharedLayers is filled by the caller before a hierarchical layer change.
	SharedLayers TemporalLayers
	// Layers is the last accepted temporal layer configuration.
	Layers       TemporalLayers
	BasePriority uint32
	// FirmwareBitrate marks rate control as driven by firmware, which keeps
	// the bitrate-changed flag raised on layer changes.
	FirmwareBitrate bool

	ROIBuffers []ROIBuffer
	// ROIIndex selects the ROI buffer used by the next ROI control set.
	ROIIndex int

	Profile   uint32
	Level     uint32
	ConfigQP  uint32
	FrameRate uint32 // fps x 1000
}

// DecoderState is the decoder-side state virtual controls report from.
type DecoderState struct {
	ColorRange uint32
	ColorSpace uint32
}

// Context is a codec instance with its own control list. A context must not
// be used from more than one goroutine at a time.
type Context struct {
	ID    string
	Kind  Kind
	Codec Codec

	Enc *EncoderParams
	Dec DecoderState

	// StoredFrameTag is the frame tag of the last applied submission.
	StoredFrameTag int32

	Controls *List

	// registers is the register bank that received the last synchronous
	// apply; synchronous recovery writes to it.
	registers RegisterBackend
}

// NewContext creates an empty context. Encoder contexts get a parameter block.
func NewContext(id string, kind Kind, codec Codec) *Context {
	c := &Context{
		ID:       id,
		Kind:     kind,
		Codec:    codec,
		Controls: &List{},
	}
	if kind == KindEncoder {
		c.Enc = &EncoderParams{}
	}
	return c
}
