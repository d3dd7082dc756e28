package bufctrl

import (
	"fmt"
	"strings"
)

// Field names one hardware-visible control word. The same field is reachable
// as a register (synchronous mode) or as a member of a command descriptor
// (queued mode).
type Field uint16

// Encoder fields.
const (
	FieldNone Field = iota
	FieldEPictureTag
	FieldERetPictureTag
	FieldERetFrameType
	FieldEFrameInsertion
	FieldEGOPConfig
	FieldEFrameRate
	FieldERCBitRate
	FieldERCQPBound
	FieldERCQPBoundPB
	FieldEFixedPictureQP
	FieldEPictureProfile
	FieldENumTLayer
	FieldEH264HDSVCExt0
	FieldEH264HDSVCExt1
	FieldEROICtrl
	FieldEROIBufferAddr
	FieldEParamChange
)

// Decoder fields.
const (
	FieldDPictureTag Field = 0x40 + iota
	FieldDRetPictureTag
	FieldDDisplayStatus
	FieldDLumaCRC
	FieldDChromaCRC
	FieldDErrorCode
)

// FieldEHierBitRateLayer0 is the first of MaxTemporalLayers consecutive
// per-layer bitrate fields.
const FieldEHierBitRateLayer0 Field = 0x80

// HierBitRateField returns the bitrate field of temporal layer i.
func HierBitRateField(i int) Field {
	return FieldEHierBitRateLayer0 + Field(i)
}

// register offsets

const (
	regEPictureTag      = 0xF500 // picture tag in (W)
	regERetPictureTag   = 0xF504 // picture tag out (R)
	regERetFrameType    = 0xF508 // encoded slice type (R)
	regEFrameInsertion  = 0xF510 // forced frame type (W)
	regEGOPConfig       = 0xF514 // I period (RW)
	regEFrameRate       = 0xF518 // [31:16] resolution, [15:0] delta (RW)
	regERCBitRate       = 0xF51C // target bitrate (RW)
	regERCQPBound       = 0xF520 // [7:0] min, [15:8] max, I slices (RW)
	regERCQPBoundPB     = 0xF524 // [7:0] min, [15:8] max, P/B slices (RW)
	regEFixedPictureQP  = 0xF528 // config QP (RW)
	regEPictureProfile  = 0xF52C // [7:0] profile, [15:8] level (RW)
	regENumTLayer       = 0xF530 // [2:0] temporal layer count (RW)
	regEH264HDSVCExt0   = 0xF534 // layer priorities 0..4 (W)
	regEH264HDSVCExt1   = 0xF538 // layer priorities 5..6 (W)
	regEROICtrl         = 0xF53C // ROI enable (RW)
	regEROIBufferAddr   = 0xF540 // ROI map DMA address (W)
	regEParamChange     = 0xF544 // parameter-changed flags (RW)
	regEHierBitRateBase = 0xF560 // 7 words, one per temporal layer (W)

	regDPictureTag    = 0xD100 // picture tag in (W)
	regDRetPictureTag = 0xD104 // picture tag of displayed frame (R)
	regDDisplayStatus = 0xD108 // display status (R)
	regDLumaCRC       = 0xD10C // luma plane CRC (R)
	regDChromaCRC     = 0xD110 // chroma plane CRC (R)
	regDErrorCode     = 0xD114 // [15:0] error, [31:16] warning (R)
)

var registerMap = map[Field]uint32{
	FieldEPictureTag:     regEPictureTag,
	FieldERetPictureTag:  regERetPictureTag,
	FieldERetFrameType:   regERetFrameType,
	FieldEFrameInsertion: regEFrameInsertion,
	FieldEGOPConfig:      regEGOPConfig,
	FieldEFrameRate:      regEFrameRate,
	FieldERCBitRate:      regERCBitRate,
	FieldERCQPBound:      regERCQPBound,
	FieldERCQPBoundPB:    regERCQPBoundPB,
	FieldEFixedPictureQP: regEFixedPictureQP,
	FieldEPictureProfile: regEPictureProfile,
	FieldENumTLayer:      regENumTLayer,
	FieldEH264HDSVCExt0:  regEH264HDSVCExt0,
	FieldEH264HDSVCExt1:  regEH264HDSVCExt1,
	FieldEROICtrl:        regEROICtrl,
	FieldEROIBufferAddr:  regEROIBufferAddr,
	FieldEParamChange:    regEParamChange,

	FieldDPictureTag:    regDPictureTag,
	FieldDRetPictureTag: regDRetPictureTag,
	FieldDDisplayStatus: regDDisplayStatus,
	FieldDLumaCRC:       regDLumaCRC,
	FieldDChromaCRC:     regDChromaCRC,
	FieldDErrorCode:     regDErrorCode,
}

// Register returns the register address backing f.
func (f Field) Register() (uint32, bool) {
	if f >= FieldEHierBitRateLayer0 && f < FieldEHierBitRateLayer0+MaxTemporalLayers {
		return regEHierBitRateBase + 4*uint32(f-FieldEHierBitRateLayer0), true
	}
	addr, ok := registerMap[f]
	return addr, ok
}

var fieldNames = map[Field]string{
	FieldEPictureTag:     "E_PICTURE_TAG",
	FieldERetPictureTag:  "E_RET_PICTURE_TAG",
	FieldERetFrameType:   "E_RET_FRAME_TYPE",
	FieldEFrameInsertion: "E_FRAME_INSERTION",
	FieldEGOPConfig:      "E_GOP_CONFIG",
	FieldEFrameRate:      "E_FRAME_RATE",
	FieldERCBitRate:      "E_RC_BIT_RATE",
	FieldERCQPBound:      "E_RC_QP_BOUND",
	FieldERCQPBoundPB:    "E_RC_QP_BOUND_PB",
	FieldEFixedPictureQP: "E_FIXED_PICTURE_QP",
	FieldEPictureProfile: "E_PICTURE_PROFILE",
	FieldENumTLayer:      "E_NUM_T_LAYER",
	FieldEH264HDSVCExt0:  "E_H264_HD_SVC_EXTENSION_0",
	FieldEH264HDSVCExt1:  "E_H264_HD_SVC_EXTENSION_1",
	FieldEROICtrl:        "E_ROI_CTRL",
	FieldEROIBufferAddr:  "E_ROI_BUFFER_ADDR",
	FieldEParamChange:    "E_PARAM_CHANGE",
	FieldDPictureTag:     "D_PICTURE_TAG",
	FieldDRetPictureTag:  "D_RET_PICTURE_TAG",
	FieldDDisplayStatus:  "D_DISPLAY_STATUS",
	FieldDLumaCRC:        "D_LUMA_CRC",
	FieldDChromaCRC:      "D_CHROMA_CRC",
	FieldDErrorCode:      "D_ERROR_CODE",
}

func (f Field) String() string {
	if f >= FieldEHierBitRateLayer0 && f < FieldEHierBitRateLayer0+MaxTemporalLayers {
		return fmt.Sprintf("E_HIERARCHICAL_BIT_RATE_LAYER%d", f-FieldEHierBitRateLayer0)
	}
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FIELD_%d", uint16(f))
}

// FieldAt returns the field backed by register addr, or FieldNone.
func FieldAt(addr uint32) Field {
	if addr >= regEHierBitRateBase && addr < regEHierBitRateBase+4*MaxTemporalLayers && addr%4 == 0 {
		return HierBitRateField(int(addr-regEHierBitRateBase) / 4)
	}
	for f, a := range registerMap {
		if a == addr {
			return f
		}
	}
	return FieldNone
}

// ParseField parses a field name as printed by Field.String.
func ParseField(s string) (Field, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i := range MaxTemporalLayers {
		if f := HierBitRateField(i); f.String() == s {
			return f, nil
		}
	}
	for f, name := range fieldNames {
		if name == s {
			return f, nil
		}
	}
	return FieldNone, fmt.Errorf("unknown field %q", s)
}
