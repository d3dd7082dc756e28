package bufctrl

// Mode selects the engine of a submission.
type Mode uint8

// Execution modes.
const (
	ModeSynchronous Mode = iota
	ModeQueued
)

func (m Mode) String() string {
	if m == ModeQueued {
		return "queued"
	}
	return "sync"
}

// ParseMode parses "sync" or "queued".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sync", "synchronous", "":
		return ModeSynchronous, nil
	case "queued", "queue":
		return ModeQueued, nil
	}
	return 0, &Error{Code: ErrCodeInvalidValue, Message: "unknown mode " + s}
}

// Rejection describes a control the engine skipped or cut short.
type Rejection struct {
	ID     ID
	Value  int32
	Code   ErrorCode
	Reason string
}

// Observer receives control plane activity. Calls happen on the goroutine
// driving the context.
type Observer interface {
	Applied(c *Context, mode Mode, inst *Instance)
	Collected(c *Context, mode Mode, id ID, value int32)
	Recovered(c *Context, mode Mode, inst *Instance)
	Rejected(c *Context, r Rejection)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) Applied(*Context, Mode, *Instance)   {}
func (NopObserver) Collected(*Context, Mode, ID, int32) {}
func (NopObserver) Recovered(*Context, Mode, *Instance) {}
func (NopObserver) Rejected(*Context, Rejection)        {}

// Observers fans out to several observers.
type Observers []Observer

func (o Observers) Applied(c *Context, mode Mode, inst *Instance) {
	for _, ob := range o {
		ob.Applied(c, mode, inst)
	}
}

func (o Observers) Collected(c *Context, mode Mode, id ID, value int32) {
	for _, ob := range o {
		ob.Collected(c, mode, id, value)
	}
}

func (o Observers) Recovered(c *Context, mode Mode, inst *Instance) {
	for _, ob := range o {
		ob.Recovered(c, mode, inst)
	}
}

func (o Observers) Rejected(c *Context, r Rejection) {
	for _, ob := range o {
		ob.Rejected(c, r)
	}
}

// Write is one field store performed by an engine pass.
type Write struct {
	Context string
	Mode    Mode
	Field   Field
	Value   uint32
}

// Tracer records field stores.
type Tracer interface {
	Trace(w Write)
}
