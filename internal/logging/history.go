package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one record kept in the log history.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Module  string         `json:"module"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// History is a fixed-size ring of recent log entries.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewHistory creates a history holding up to size entries.
func NewHistory(size int) *History {
	return &History{entries: make([]Entry, size)}
}

// Add appends e, dropping the oldest entry when full.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Entries returns the kept entries oldest first.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.full {
		return append([]Entry(nil), h.entries[:h.next]...)
	}
	out := make([]Entry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	return append(out, h.entries[:h.next]...)
}

// Len returns the number of kept entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}

// HistoryHandler is a slog.Handler writing into a History.
type HistoryHandler struct {
	history *History
	level   slog.Leveler
	attrs   []boundAttr
	groups  []string
}

// boundAttr is an attribute added by WithAttrs with the groups open at the
// time.
type boundAttr struct {
	groups []string
	attr   slog.Attr
}

func bind(dst []boundAttr, groups []string, attrs []slog.Attr) []boundAttr {
	out := append([]boundAttr(nil), dst...)
	for _, a := range attrs {
		out = append(out, boundAttr{groups: groups, attr: a})
	}
	return out
}

// NewHistoryHandler creates a handler feeding h.
func NewHistoryHandler(h *History, level slog.Leveler) *HistoryHandler {
	return &HistoryHandler{history: h, level: level}
}

func (h *HistoryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *HistoryHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{
		Time:    r.Time,
		Level:   levelName(r.Level),
		Module:  "main",
		Message: r.Message,
		Attrs:   make(map[string]any),
	}
	add := func(groups []string, a slog.Attr) {
		if a.Key == "module" && len(groups) == 0 {
			e.Module = a.Value.String()
			return
		}
		flatten(e.Attrs, groups, a)
	}
	for _, b := range h.attrs {
		add(b.groups, b.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(h.groups, a)
		return true
	})
	h.history.Add(e)
	return nil
}

func (h *HistoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = bind(h.attrs, h.groups, attrs)
	return &c
}

func (h *HistoryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string(nil), h.groups...), name)
	return &c
}

// flatten stores a under a dotted key built from groups.
func flatten(dst map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}
	switch a.Value.Kind() {
	case slog.KindGroup:
		sub := append(append([]string(nil), groups...), a.Key)
		for _, ga := range a.Value.Group() {
			flatten(dst, sub, ga)
		}
	case slog.KindTime:
		dst[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			dst[key] = err.Error()
		} else {
			dst[key] = a.Value.Any()
		}
	default:
		dst[key] = a.Value.Any()
	}
}
