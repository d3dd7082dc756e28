package device

import (
	"github.com/sigurn/crc16"
	"github.com/sigurn/crc8"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// EncodeResult is what one encoded frame produced.
type EncodeResult struct {
	FrameTag  uint32
	FrameType uint32
	Stream    []byte
}

// DecodeResult is what one decoded frame reported.
type DecodeResult struct {
	FrameTag      uint32
	DisplayStatus uint32
	LumaCRC       uint32
	ChromaCRC     uint32
	ErrorCode     uint32
}

type encodeInput struct {
	tag       uint32
	insertion uint32
	gop       uint32
}

// encode produces a stream of frame type, payload and CRC-8 trailer.
// Callers hold mu.
func (s *Simulator) encode(in encodeInput, raw []byte) EncodeResult {
	frameType := FrameTypeP
	switch {
	case in.insertion&0x3 == InsertNotCoded:
		frameType = FrameTypeNotCoded
	case in.insertion&0x3 == InsertIFrame, s.encoded == 0:
		frameType = FrameTypeI
	case in.gop > 0 && s.encoded%uint64(in.gop) == 0:
		frameType = FrameTypeI
	}
	s.encoded++

	var stream []byte
	if frameType != FrameTypeNotCoded {
		stream = make([]byte, 0, len(raw)+2)
		stream = append(stream, byte(frameType))
		stream = append(stream, raw...)
		stream = append(stream, s.streamChecksum(stream))
	}
	s.logger.Debug("frame encoded", "tag", in.tag, "type", frameType, "bytes", len(stream))
	return EncodeResult{FrameTag: in.tag, FrameType: frameType, Stream: stream}
}

func (s *Simulator) streamChecksum(b []byte) byte {
	return crc8.Checksum(b, s.streamTable)
}

// decode checks the stream trailer and computes plane CRCs over the payload,
// two thirds luma and one third chroma. Callers hold mu.
func (s *Simulator) decode(tag uint32, stream []byte) DecodeResult {
	res := DecodeResult{FrameTag: tag, DisplayStatus: DisplayDecodeAndShow}
	switch {
	case len(stream) == 0:
		res.DisplayStatus = DisplayEmpty
		res.ErrorCode = bufctrl.HWErrNoSyncPoint
	case len(stream) < 2 || s.streamChecksum(stream[:len(stream)-1]) != stream[len(stream)-1]:
		res.ErrorCode = ErrCorruptStream
	default:
		payload := stream[1 : len(stream)-1]
		split := len(payload) * 2 / 3
		res.LumaCRC = uint32(crc16.Checksum(payload[:split], s.planeTable))
		res.ChromaCRC = uint32(crc16.Checksum(payload[split:], s.planeTable))
	}
	if s.inject != nil {
		res.ErrorCode = *s.inject
		s.inject = nil
	}
	s.logger.Debug("frame decoded", "tag", tag, "status", res.DisplayStatus, "error", res.ErrorCode)
	return res
}

// ExecuteEncode runs one encoder frame against the register bank: it reads
// the programmed tag and frame controls, reports the returned tag and frame
// type, and consumes the one-shot insertion and parameter-change words.
func (s *Simulator) ExecuteEncode(raw []byte) EncodeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.encode(encodeInput{
		tag:       s.field(bufctrl.FieldEPictureTag),
		insertion: s.field(bufctrl.FieldEFrameInsertion),
		gop:       s.field(bufctrl.FieldEGOPConfig) & 0xFFFF,
	}, raw)

	s.setField(bufctrl.FieldERetPictureTag, res.FrameTag)
	s.setField(bufctrl.FieldERetFrameType, res.FrameType)
	s.setField(bufctrl.FieldEFrameInsertion, InsertNone)
	s.setField(bufctrl.FieldEParamChange, 0)
	return res
}

// ExecuteDecode runs one decoder frame against the register bank.
func (s *Simulator) ExecuteDecode(stream []byte) DecodeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.decode(s.field(bufctrl.FieldDPictureTag), stream)
	s.setField(bufctrl.FieldDRetPictureTag, res.FrameTag)
	s.setField(bufctrl.FieldDDisplayStatus, res.DisplayStatus)
	s.setField(bufctrl.FieldDLumaCRC, res.LumaCRC)
	s.setField(bufctrl.FieldDChromaCRC, res.ChromaCRC)
	s.setField(bufctrl.FieldDErrorCode, res.ErrorCode)
	return res
}

// ProcessEncoder runs one queued encoder command and fills a result
// descriptor. Registers are not touched.
func (s *Simulator) ProcessEncoder(cmd *bufctrl.EncoderCommand, raw []byte) (*bufctrl.EncoderResult, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.encode(encodeInput{
		tag:       cmd.PictureTag,
		insertion: cmd.FrameInsertion,
		gop:       cmd.GOPConfig & 0xFFFF,
	}, raw)
	return &bufctrl.EncoderResult{
		PictureTag: res.FrameTag,
		FrameType:  res.FrameType,
		StreamSize: uint32(len(res.Stream)),
	}, res.Stream
}

// ProcessDecoder runs one queued decoder command.
func (s *Simulator) ProcessDecoder(cmd *bufctrl.DecoderCommand, stream []byte) *bufctrl.DecoderResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.decode(cmd.PictureTag, stream)
	return &bufctrl.DecoderResult{
		PictureTag:    res.FrameTag,
		DisplayStatus: res.DisplayStatus,
		LumaCRC:       res.LumaCRC,
		ChromaCRC:     res.ChromaCRC,
		ErrorCode:     res.ErrorCode,
	}
}
