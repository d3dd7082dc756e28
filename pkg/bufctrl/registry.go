package bufctrl

import (
	"cmp"
	"slices"
	"sync"
)

// Kind is the context type a descriptor table applies to.
type Kind uint8

// Context kinds.
const (
	KindDecoder Kind = iota
	KindEncoder
)

func (k Kind) String() string {
	if k == KindEncoder {
		return "encoder"
	}
	return "decoder"
}

var encoderControls = []Descriptor{
	{ID: IDFrameTag, Direction: DirSetGet, Span: field(FieldEPictureTag, 32, 0),
		Get: fieldPtr(FieldERetPictureTag, 32, 0)},
	{ID: IDFrameType, Direction: DirGet, Span: field(FieldERetFrameType, 3, 0)},
	{ID: IDForceKeyFrame, Direction: DirSet, Span: field(FieldEFrameInsertion, 2, 0), Volatile: true},
	{ID: IDGOPSize, Direction: DirSet, Span: field(FieldEGOPConfig, 16, 0), Flag: paramFlag(FlagGOPChange)},
	{ID: IDFrameRateChange, Direction: DirSet, Location: LocCustom, Span: field(FieldEFrameRate, 16, 0),
		Secondary: fieldPtr(FieldEFrameRate, 16, 16), Flag: paramFlag(FlagFrameRateChange), Volatile: true},
	{ID: IDDropControl, Direction: DirSet, Location: LocCustom, Span: field(FieldEFrameRate, 16, 0),
		Secondary: fieldPtr(FieldEFrameRate, 16, 16), Flag: paramFlag(FlagFrameRateChange), Volatile: true},
	{ID: IDBitRate, Direction: DirSet, Span: field(FieldERCBitRate, 32, 0), Flag: paramFlag(FlagBitRateChange)},
	{ID: IDH264MinQP, Direction: DirSet, Span: field(FieldERCQPBound, 8, 0), Flag: paramFlag(FlagQPBoundChange)},
	{ID: IDH264MaxQP, Direction: DirSet, Span: field(FieldERCQPBound, 8, 8), Flag: paramFlag(FlagQPBoundChange)},
	{ID: IDH264MinQPP, Direction: DirSet, Span: field(FieldERCQPBoundPB, 8, 0), Flag: paramFlag(FlagQPBoundPBChange)},
	{ID: IDH264MaxQPP, Direction: DirSet, Span: field(FieldERCQPBoundPB, 8, 8), Flag: paramFlag(FlagQPBoundPBChange)},
	{ID: IDConfigQP, Direction: DirSet, Span: field(FieldEFixedPictureQP, 8, 0), Flag: paramFlag(FlagFrameQPChange)},
	{ID: IDH264Profile, Direction: DirSet, Location: LocCustom, Span: field(FieldEPictureProfile, 8, 0),
		Secondary: fieldPtr(FieldEPictureProfile, 8, 8), Flag: paramFlag(FlagProfileChange), Volatile: true},
	{ID: IDH264Level, Direction: DirSet, Location: LocCustom, Span: field(FieldEPictureProfile, 8, 8),
		Secondary: fieldPtr(FieldEPictureProfile, 8, 0), Flag: paramFlag(FlagProfileChange), Volatile: true},
	{ID: IDHierarchicalLayers, Direction: DirSet, Location: LocCustom, Flag: paramFlag(FlagNumLayerChange)},
	{ID: IDH264BasePriority, Direction: DirSet, Location: LocCustom},
	{ID: IDROIControl, Direction: DirSet, Span: field(FieldEROICtrl, 1, 0), Volatile: true},
}

var decoderControls = []Descriptor{
	{ID: IDFrameTag, Direction: DirSetGet, Span: field(FieldDPictureTag, 32, 0),
		Get: fieldPtr(FieldDRetPictureTag, 32, 0)},
	{ID: IDDisplayStatus, Direction: DirGet, Span: field(FieldDDisplayStatus, 3, 0)},
	{ID: IDLumaCRC, Direction: DirGet, Span: field(FieldDLumaCRC, 32, 0)},
	{ID: IDChromaCRC, Direction: DirGet, Span: field(FieldDChromaCRC, 32, 0)},
	{ID: IDFrameErrorType, Direction: DirGet, Location: LocVirtual, Span: field(FieldDErrorCode, 32, 0)},
	{ID: IDColorRange, Direction: DirGet, Location: LocVirtual},
	{ID: IDColorSpace, Direction: DirGet, Location: LocVirtual},
}

// Registry maps control ids to descriptors, per context kind. It is never
// mutated after construction and is safe to share between contexts.
type Registry struct {
	tables map[Kind]map[ID]*Descriptor
}

// NewRegistry builds a registry from descriptor tables.
func NewRegistry(encoder, decoder []Descriptor) *Registry {
	r := &Registry{tables: map[Kind]map[ID]*Descriptor{
		KindEncoder: make(map[ID]*Descriptor, len(encoder)),
		KindDecoder: make(map[ID]*Descriptor, len(decoder)),
	}}
	for i := range encoder {
		d := encoder[i]
		r.tables[KindEncoder][d.ID] = &d
	}
	for i := range decoder {
		d := decoder[i]
		r.tables[KindDecoder][d.ID] = &d
	}
	return r
}

// DefaultRegistry returns the compiled-in registry.
var DefaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(encoderControls, decoderControls)
})

// Lookup returns the descriptor of id for a context kind.
func (r *Registry) Lookup(kind Kind, id ID) (*Descriptor, bool) {
	d, ok := r.tables[kind][id]
	return d, ok
}

// Descriptors returns a copy of the descriptors of a kind ordered by id.
func (r *Registry) Descriptors(kind Kind) []Descriptor {
	out := make([]Descriptor, 0, len(r.tables[kind]))
	for _, d := range r.tables[kind] {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b Descriptor) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
