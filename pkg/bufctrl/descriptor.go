package bufctrl

// Direction selects which engine operations a control takes part in.
type Direction uint8

// Directions.
const (
	DirSet Direction = 1 << iota
	DirGet
	DirSetGet = DirSet | DirGet
)

func (d Direction) String() string {
	switch d {
	case DirSet:
		return "set"
	case DirGet:
		return "get"
	case DirSetGet:
		return "set_get"
	default:
		return "none"
	}
}

// LocationKind tags how a descriptor's value reaches the hardware.
type LocationKind uint8

// Location kinds.
const (
	// LocField is a generic masked field write (and read).
	LocField LocationKind = iota
	// LocCustom values are written only by an exception resolver. The field,
	// if any, still names what gets snapshotted for rollback.
	LocCustom
	// LocVirtual values are derived from context state on collect.
	LocVirtual
)

func (k LocationKind) String() string {
	switch k {
	case LocField:
		return "field"
	case LocCustom:
		return "custom"
	case LocVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// Parameter-changed flag bits in FieldEParamChange.
const (
	FlagGOPChange       = 0
	FlagFrameRateChange = 1
	FlagBitRateChange   = 2
	FlagFrameQPChange   = 3
	FlagQPBoundChange   = 4
	FlagQPBoundPBChange = 5
	FlagProfileChange   = 6
	FlagNumLayerChange  = 10
	FlagPriorityChange  = 12
)

// Span is a bit range inside a field.
type Span struct {
	Field Field
	Width uint8
	Shift uint8
}

// Mask returns the unshifted mask of the span.
func (s Span) Mask() uint32 {
	return uint32(1)<<s.Width - 1
}

func (s Span) extract(word uint32) uint32 {
	return (word >> s.Shift) & s.Mask()
}

func (s Span) insert(word, v uint32) uint32 {
	mask := s.Mask() << s.Shift
	return (word &^ mask) | ((v << s.Shift) & mask)
}

// Flag is a companion parameter-changed bit.
type Flag struct {
	Field Field
	Bit   uint8
}

// Descriptor is the static description of one control.
type Descriptor struct {
	ID        ID
	Direction Direction
	Location  LocationKind
	// Span is written on apply and snapshotted for volatile controls.
	Span Span
	// Secondary is a second field touched by the control; its prior value
	// goes to the second snapshot slot.
	Secondary *Span
	// Get, when set, is read back on collect instead of Span.
	Get      *Span
	Flag     *Flag
	Volatile bool
}

// readSpan returns the span collect reads.
func (d *Descriptor) readSpan() Span {
	if d.Get != nil {
		return *d.Get
	}
	return d.Span
}

func field(f Field, width, shift uint8) Span {
	return Span{Field: f, Width: width, Shift: shift}
}

func fieldPtr(f Field, width, shift uint8) *Span {
	s := field(f, width, shift)
	return &s
}

func paramFlag(bit uint8) *Flag {
	return &Flag{Field: FieldEParamChange, Bit: bit}
}
