package trace

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/smazurov/mfcctl/internal/metrics"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// Recorder appends traced stores to a CBOR stream. It implements
// bufctrl.Tracer and is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *cbor.Encoder
	seq    uint64
	closed bool
	logger *slog.Logger
	now    func() time.Time
}

var _ bufctrl.Tracer = (*Recorder)(nil)

// NewRecorder writes records to w.
func NewRecorder(w io.Writer, logger *slog.Logger) *Recorder {
	return &Recorder{w: w, enc: newEncoder(w), logger: logger, now: time.Now}
}

// NewFileRecorder appends records to the file at path, creating it if needed.
func NewFileRecorder(path string, logger *slog.Logger) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	r := NewRecorder(f, logger)
	r.closer = f
	return r, nil
}

// Trace records one store. Encoding errors are logged, never returned, so
// tracing cannot disturb the control plane.
func (r *Recorder) Trace(w bufctrl.Write) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.seq++
	rec := Record{
		Seq:       r.seq,
		Timestamp: r.now(),
		Context:   w.Context,
		Mode:      w.Mode,
		Field:     w.Field,
		Value:     w.Value,
	}
	if err := r.enc.Encode(rec); err != nil {
		r.logger.Warn("trace write failed", "seq", rec.Seq, "error", err)
		return
	}
	metrics.TraceWrite()
}

// Count returns the number of records written.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Close stops recording and closes the file of a file recorder. Further
// Trace calls are ignored.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
