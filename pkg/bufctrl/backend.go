package bufctrl

// RegisterBackend is memory-mapped register access. Accesses are assumed to
// always succeed.
type RegisterBackend interface {
	Read(addr uint32) uint32
	Write(addr, value uint32)
}

// fieldIO is the field-level view an engine pass works against.
type fieldIO interface {
	load(f Field) (uint32, bool)
	store(f Field, v uint32) bool
}

type registerIO struct {
	regs RegisterBackend
}

func (r registerIO) load(f Field) (uint32, bool) {
	addr, ok := f.Register()
	if !ok {
		return 0, false
	}
	return r.regs.Read(addr), true
}

func (r registerIO) store(f Field, v uint32) bool {
	addr, ok := f.Register()
	if !ok {
		return false
	}
	r.regs.Write(addr, v)
	return true
}

// commandIO adapts a command descriptor's field dispatch.
type commandIO func(f Field) *uint32

func (c commandIO) load(f Field) (uint32, bool) {
	p := c(f)
	if p == nil {
		return 0, false
	}
	return *p, true
}

func (c commandIO) store(f Field, v uint32) bool {
	p := c(f)
	if p == nil {
		return false
	}
	*p = v
	return true
}

func readSpan(io fieldIO, s Span) (uint32, bool) {
	word, ok := io.load(s.Field)
	if !ok {
		return 0, false
	}
	return s.extract(word), true
}

func writeSpan(io fieldIO, s Span, v uint32) bool {
	word, ok := io.load(s.Field)
	if !ok {
		return false
	}
	return io.store(s.Field, s.insert(word, v))
}

func setFlag(io fieldIO, f Flag) {
	if word, ok := io.load(f.Field); ok {
		io.store(f.Field, word|1<<f.Bit)
	}
}

func clearFlag(io fieldIO, f Flag) {
	if word, ok := io.load(f.Field); ok {
		io.store(f.Field, word&^(1<<f.Bit))
	}
}

// tracedIO reports every store to a Tracer.
type tracedIO struct {
	fieldIO
	tracer Tracer
	ctx    string
	mode   Mode
}

func (t tracedIO) store(f Field, v uint32) bool {
	ok := t.fieldIO.store(f, v)
	if ok {
		t.tracer.Trace(Write{Context: t.ctx, Mode: t.mode, Field: f, Value: v})
	}
	return ok
}
