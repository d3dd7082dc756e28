package bufctrl

// FrameErrorType is the reported class of a decoded frame's error status.
type FrameErrorType int32

// Frame error types.
const (
	FrameErrorNone FrameErrorType = iota
	FrameErrorConcealed
	FrameErrorBrokenLink
	FrameErrorNoSyncPoint
	FrameErrorUnsupported
	FrameErrorCorrupted
)

func (t FrameErrorType) String() string {
	switch t {
	case FrameErrorNone:
		return "none"
	case FrameErrorConcealed:
		return "concealed"
	case FrameErrorBrokenLink:
		return "broken_link"
	case FrameErrorNoSyncPoint:
		return "no_sync_point"
	case FrameErrorUnsupported:
		return "unsupported"
	default:
		return "corrupted"
	}
}

// Hardware error codes in the low half of FieldDErrorCode.
const (
	HWErrNone            = 0x0000
	HWErrBrokenLink      = 0x00A0
	HWErrNoSyncPoint     = 0x00A1
	HWErrUnsupportedLow  = 0x0110
	HWErrUnsupportedHigh = 0x011F
)

var frameErrorTable = []struct {
	lo, hi uint32
	typ    FrameErrorType
}{
	{HWErrNone, HWErrNone, FrameErrorNone},
	{HWErrBrokenLink, HWErrBrokenLink, FrameErrorBrokenLink},
	{HWErrNoSyncPoint, HWErrNoSyncPoint, FrameErrorNoSyncPoint},
	{0x0001, 0x00FF, FrameErrorConcealed},
	{HWErrUnsupportedLow, HWErrUnsupportedHigh, FrameErrorUnsupported},
}

// FrameErrorFromCode maps a raw error register value to a FrameErrorType.
// A set warning half with no error reports as concealed.
func FrameErrorFromCode(raw uint32) FrameErrorType {
	code := raw & 0xFFFF
	if code == HWErrNone && raw>>16 != 0 {
		return FrameErrorConcealed
	}
	for _, e := range frameErrorTable {
		if code >= e.lo && code <= e.hi {
			return e.typ
		}
	}
	return FrameErrorCorrupted
}
