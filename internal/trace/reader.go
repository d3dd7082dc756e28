package trace

import (
	"errors"
	"io"
	"iter"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// Filter selects records; zero fields match everything.
type Filter struct {
	Context string
	Mode    *bufctrl.Mode
	Field   *bufctrl.Field
}

func (f Filter) matches(r Record) bool {
	if f.Context != "" && r.Context != f.Context {
		return false
	}
	if f.Mode != nil && r.Mode != *f.Mode {
		return false
	}
	if f.Field != nil && r.Field != *f.Field {
		return false
	}
	return true
}

// Reader streams records back from a trace.
type Reader struct {
	dec    *cbor.Decoder
	closer io.Closer
	filter Filter
}

// NewReader reads records from r.
func NewReader(r io.Reader, filter Filter) *Reader {
	return &Reader{dec: newDecoder(r), filter: filter}
}

// Open reads the trace file at path.
func Open(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(f, filter)
	r.closer = f
	return r, nil
}

// Next returns the next matching record, or io.EOF at the end.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.dec.Decode(&rec); err != nil {
			return Record{}, err
		}
		if r.filter.matches(rec) {
			return rec, nil
		}
	}
}

// All iterates the remaining matching records. A decode error is yielded
// once and ends the iteration; io.EOF ends it silently.
func (r *Reader) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the file of a reader made by Open.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Replay writes the synchronous-mode records of a trace into a register
// bank, reconstructing the register state the trace left behind. It returns
// the number of records replayed.
func Replay(r *Reader, regs bufctrl.RegisterBackend) (int, error) {
	n := 0
	for rec, err := range r.All() {
		if err != nil {
			return n, err
		}
		if rec.Mode != bufctrl.ModeSynchronous {
			continue
		}
		if addr, ok := rec.Field.Register(); ok {
			regs.Write(addr, rec.Value)
			n++
		}
	}
	return n, nil
}
