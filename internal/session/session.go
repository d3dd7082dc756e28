// Package session drives the control-plane frame cycle of codec contexts
// against the simulated device: set controls, submit a frame, then either
// complete it and collect results or abort it and roll back.
package session

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/mfcctl/internal/device"
	"github.com/smazurov/mfcctl/internal/events"
	"github.com/smazurov/mfcctl/internal/metrics"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// Setting is one control assignment.
type Setting struct {
	ID    bufctrl.ID
	Value int32
}

// Frame is the outcome of a completed submission.
type Frame struct {
	Context  string
	Mode     bufctrl.Mode
	FrameTag int32
	Values   map[bufctrl.ID]int32
	// Stream is the encoded bitstream of an encoder frame.
	Stream []byte
}

type submission struct {
	mode bufctrl.Mode
	tag  int32
	enc  *bufctrl.EncoderCommand
	dec  *bufctrl.DecoderCommand
}

type entry struct {
	mu       sync.Mutex
	ctx      *bufctrl.Context
	inflight *submission
	created  time.Time
}

// Options configures a Session.
type Options struct {
	Controller *bufctrl.Controller
	Device     *device.Simulator
	Bus        *events.Bus
	Logger     *slog.Logger
}

// Session owns a set of contexts sharing one device.
type Session struct {
	ctl    *bufctrl.Controller
	dev    *device.Simulator
	bus    *events.Bus
	logger *slog.Logger

	mu       sync.RWMutex
	contexts map[string]*entry
}

// New creates a session.
func New(opts Options) *Session {
	return &Session{
		ctl:      opts.Controller,
		dev:      opts.Device,
		bus:      opts.Bus,
		logger:   opts.Logger,
		contexts: make(map[string]*entry),
	}
}

// Controller returns the engine the session drives.
func (s *Session) Controller() *bufctrl.Controller {
	return s.ctl
}

// Device returns the simulated device.
func (s *Session) Device() *device.Simulator {
	return s.dev
}

// Create opens a context with a fresh id.
func (s *Session) Create(kind bufctrl.Kind, codec bufctrl.Codec) *bufctrl.Context {
	return s.CreateWithID(uuid.NewString(), kind, codec)
}

// CreateWithID opens a context under a caller-chosen id, replacing any
// context of that id.
func (s *Session) CreateWithID(id string, kind bufctrl.Kind, codec bufctrl.Codec) *bufctrl.Context {
	c := bufctrl.NewContext(id, kind, codec)
	s.mu.Lock()
	s.contexts[id] = &entry{ctx: c, created: time.Now()}
	s.mu.Unlock()
	s.logger.Info("context created", "context", id, "kind", kind, "codec", codec)
	return c
}

// Delete closes a context and drops its controls.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.contexts[id]
	delete(s.contexts, id)
	s.mu.Unlock()
	if !ok {
		return notFound(id)
	}
	e.mu.Lock()
	e.ctx.Controls.Reset()
	e.mu.Unlock()
	metrics.DeleteContext(id)
	s.logger.Info("context deleted", "context", id)
	return nil
}

// IDs lists context ids in creation order.
func (s *Session) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Collect(maps.Keys(s.contexts))
	slices.SortFunc(ids, func(a, b string) int {
		return s.contexts[a].created.Compare(s.contexts[b].created)
	})
	return ids
}

// With runs fn with exclusive use of the context.
func (s *Session) With(id string, fn func(c *bufctrl.Context) error) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.ctx)
}

func (s *Session) entry(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.contexts[id]
	if !ok {
		return nil, notFound(id)
	}
	return e, nil
}

func notFound(id string) error {
	return newError(ErrCodeContextNotFound, fmt.Sprintf("context %q not found", id), nil)
}

// Set records control values for the next submission.
func (s *Session) Set(id string, settings ...Setting) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, st := range settings {
		s.ctl.SetControl(e.ctx, st.ID, st.Value)
	}
	metrics.SetPending(id, pendingCount(e.ctx))
	return nil
}

func pendingCount(c *bufctrl.Context) int {
	n := 0
	for range c.Controls.Pending(bufctrl.DirSet) {
		n++
	}
	return n
}

// Submit applies the pending controls of a context for one frame.
func (s *Session) Submit(id string, mode bufctrl.Mode) (int32, error) {
	e, err := s.entry(id)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight != nil {
		return 0, newError(ErrCodeBusy, fmt.Sprintf("context %q already has a frame in flight", id), nil)
	}

	c := e.ctx
	applied := pendingCount(c)
	sub := &submission{mode: mode}
	var backend any
	switch {
	case mode == bufctrl.ModeSynchronous:
		backend = s.dev
	case c.Kind == bufctrl.KindEncoder:
		sub.enc = &bufctrl.EncoderCommand{}
		backend = sub.enc
	default:
		sub.dec = &bufctrl.DecoderCommand{}
		backend = sub.dec
	}
	if err := s.ctl.ApplyControls(c, mode, backend); err != nil {
		return 0, newError(ErrCodeBackend, "apply failed", err)
	}
	sub.tag = c.StoredFrameTag
	e.inflight = sub
	metrics.SetPending(id, 0)

	s.publish(events.FrameSubmittedEvent{
		Context:   id,
		Mode:      mode.String(),
		FrameTag:  sub.tag,
		Controls:  applied,
		Timestamp: stamp(),
	})
	s.logger.Debug("frame submitted", "context", id, "mode", mode, "tag", sub.tag, "controls", applied)
	return sub.tag, nil
}

// Complete runs the in-flight frame on the device and collects its results.
// For an encoder payload is the raw picture, for a decoder the bitstream.
func (s *Session) Complete(id string, payload []byte) (*Frame, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := e.inflight
	if sub == nil {
		return nil, newError(ErrCodeIdle, fmt.Sprintf("context %q has no frame in flight", id), nil)
	}
	e.inflight = nil

	c := e.ctx
	frame := &Frame{Context: id, Mode: sub.mode, Values: make(map[bufctrl.ID]int32)}
	var backend any
	result := "ok"
	switch {
	case sub.mode == bufctrl.ModeSynchronous && c.Kind == bufctrl.KindEncoder:
		res := s.dev.ExecuteEncode(payload)
		frame.Stream = res.Stream
		backend = s.dev
	case sub.mode == bufctrl.ModeSynchronous:
		res := s.dev.ExecuteDecode(payload)
		result = frameResult(res.ErrorCode)
		backend = s.dev
	case c.Kind == bufctrl.KindEncoder:
		res, stream := s.dev.ProcessEncoder(sub.enc, payload)
		frame.Stream = stream
		backend = res
	default:
		res := s.dev.ProcessDecoder(sub.dec, payload)
		result = frameResult(res.ErrorCode)
		backend = res
	}
	metrics.FrameExecuted(c.Kind.String(), sub.mode.String(), result)

	seq, err := s.ctl.CollectControls(c, sub.mode, backend)
	if err != nil {
		return nil, newError(ErrCodeBackend, "collect failed", err)
	}
	for cid, v := range seq {
		frame.Values[cid] = v
	}
	frame.FrameTag = sub.tag
	if tag, ok := frame.Values[bufctrl.IDFrameTag]; ok {
		frame.FrameTag = tag
		if tag != sub.tag {
			metrics.FrameTagMismatch()
			s.logger.Warn("frame tag mismatch", "context", id, "submitted", sub.tag, "returned", tag)
		}
	}

	values := make(map[string]int32, len(frame.Values))
	for cid, v := range frame.Values {
		values[cid.String()] = v
	}
	s.publish(events.FrameCompletedEvent{
		Context:   id,
		Mode:      sub.mode.String(),
		FrameTag:  frame.FrameTag,
		Values:    values,
		Timestamp: stamp(),
	})
	return frame, nil
}

func frameResult(code uint32) string {
	return bufctrl.FrameErrorFromCode(code).String()
}

// Abort rolls back the in-flight frame of a context without running it.
func (s *Session) Abort(id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := e.inflight
	if sub == nil {
		return newError(ErrCodeIdle, fmt.Sprintf("context %q has no frame in flight", id), nil)
	}
	e.inflight = nil

	s.ctl.RecoverControls(e.ctx, sub.mode)
	metrics.SetPending(id, pendingCount(e.ctx))
	s.publish(events.FrameAbortedEvent{
		Context:   id,
		Mode:      sub.mode.String(),
		FrameTag:  sub.tag,
		Timestamp: stamp(),
	})
	s.logger.Info("frame aborted", "context", id, "mode", sub.mode, "tag", sub.tag)
	return nil
}

// Run submits and completes one frame.
func (s *Session) Run(id string, mode bufctrl.Mode, payload []byte) (*Frame, error) {
	if _, err := s.Submit(id, mode); err != nil {
		return nil, err
	}
	return s.Complete(id, payload)
}

func (s *Session) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
