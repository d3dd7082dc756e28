package bufctrl

// EncoderCommand is the encoder input descriptor of a queued submission.
type EncoderCommand struct {
	PictureTag         uint32
	FrameInsertion     uint32
	GOPConfig          uint32
	RCFrameRate        uint32
	RCBitRate          uint32
	RCQPBound          uint32
	RCQPBoundPB        uint32
	FixedPictureQP     uint32
	PictureProfile     uint32
	NumTLayer          uint32
	HierBitRateLayer   [MaxTemporalLayers]uint32
	H264HDSVCExtension [2]uint32
	ROICtrl            uint32
	ROIBufferAddr      uint32
	ParamChange        uint32
}

func (c *EncoderCommand) field(f Field) *uint32 {
	if f >= FieldEHierBitRateLayer0 && f < FieldEHierBitRateLayer0+MaxTemporalLayers {
		return &c.HierBitRateLayer[f-FieldEHierBitRateLayer0]
	}
	switch f {
	case FieldEPictureTag:
		return &c.PictureTag
	case FieldEFrameInsertion:
		return &c.FrameInsertion
	case FieldEGOPConfig:
		return &c.GOPConfig
	case FieldEFrameRate:
		return &c.RCFrameRate
	case FieldERCBitRate:
		return &c.RCBitRate
	case FieldERCQPBound:
		return &c.RCQPBound
	case FieldERCQPBoundPB:
		return &c.RCQPBoundPB
	case FieldEFixedPictureQP:
		return &c.FixedPictureQP
	case FieldEPictureProfile:
		return &c.PictureProfile
	case FieldENumTLayer:
		return &c.NumTLayer
	case FieldEH264HDSVCExt0:
		return &c.H264HDSVCExtension[0]
	case FieldEH264HDSVCExt1:
		return &c.H264HDSVCExtension[1]
	case FieldEROICtrl:
		return &c.ROICtrl
	case FieldEROIBufferAddr:
		return &c.ROIBufferAddr
	case FieldEParamChange:
		return &c.ParamChange
	}
	return nil
}

// EncoderResult is the encoder output descriptor of a queued submission.
type EncoderResult struct {
	PictureTag uint32
	FrameType  uint32
	StreamSize uint32
}

func (r *EncoderResult) field(f Field) *uint32 {
	switch f {
	case FieldERetPictureTag:
		return &r.PictureTag
	case FieldERetFrameType:
		return &r.FrameType
	}
	return nil
}

// DecoderCommand is the decoder input descriptor of a queued submission.
type DecoderCommand struct {
	PictureTag uint32
}

func (c *DecoderCommand) field(f Field) *uint32 {
	if f == FieldDPictureTag {
		return &c.PictureTag
	}
	return nil
}

// DecoderResult is the decoder output descriptor of a queued submission.
type DecoderResult struct {
	PictureTag    uint32
	DisplayStatus uint32
	LumaCRC       uint32
	ChromaCRC     uint32
	ErrorCode     uint32
}

func (r *DecoderResult) field(f Field) *uint32 {
	switch f {
	case FieldDRetPictureTag:
		return &r.PictureTag
	case FieldDDisplayStatus:
		return &r.DisplayStatus
	case FieldDLumaCRC:
		return &r.LumaCRC
	case FieldDChromaCRC:
		return &r.ChromaCRC
	case FieldDErrorCode:
		return &r.ErrorCode
	}
	return nil
}
