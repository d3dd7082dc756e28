// Package trace records every field store of the control plane as a CBOR
// stream and reads it back.
package trace

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// Record is one traced field store. Integer keys keep the stream compact.
type Record struct {
	Seq       uint64        `cbor:"1,keyasint"`
	Timestamp time.Time     `cbor:"2,keyasint"`
	Context   string        `cbor:"3,keyasint"`
	Mode      bufctrl.Mode  `cbor:"4,keyasint"`
	Field     bufctrl.Field `cbor:"5,keyasint"`
	Value     uint32        `cbor:"6,keyasint"`
}

func (r Record) String() string {
	return fmt.Sprintf("#%d %s %s %-6s %-24s = 0x%08x",
		r.Seq, r.Timestamp.Format(time.RFC3339Nano), r.Context, r.Mode, r.Field, r.Value)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decoder mode: %v", err))
	}
}

func newEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

func newDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
