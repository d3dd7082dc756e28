package presets

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/mfcctl/internal/config"
	"github.com/smazurov/mfcctl/internal/events"
)

// Store holds the current preset collection and swaps it in when the file
// changes on disk.
type Store struct {
	path   string
	bus    *events.Bus
	logger *slog.Logger

	mu   sync.RWMutex
	file *File

	watcher *config.Watcher[*File]
}

// NewStore loads path and returns a store serving it.
func NewStore(path string, bus *events.Bus, logger *slog.Logger) (*Store, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, bus: bus, logger: logger, file: f}, nil
}

// Path returns the preset file path.
func (s *Store) Path() string {
	return s.path
}

// Get finds a preset in the current collection.
func (s *Store) Get(name string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Get(name)
}

// List returns the current presets.
func (s *Store) List() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Preset, len(s.file.Presets))
	copy(out, s.file.Presets)
	return out
}

// Replace installs f and announces it.
func (s *Store) Replace(f *File) {
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
	names := f.Names()
	s.logger.Info("presets loaded", "path", s.path, "count", len(names))
	if s.bus != nil {
		s.bus.Publish(events.PresetsReloadedEvent{
			Path:      s.path,
			Presets:   names,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// Watch reloads the collection whenever the file changes until ctx ends or
// Stop is called. A file that fails to load leaves the current collection in
// place.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}
	w := config.NewWatcher(s.path, Load, s.logger, config.WithDebounce[*File](debounce))
	w.OnReload(s.Replace)
	if err := w.Start(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	return nil
}

// Stop ends watching.
func (s *Store) Stop() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}
