// Package presets loads named control sets and frame scenarios from TOML.
package presets

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/mfcctl/internal/session"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// Control is one control assignment, named by control name or numeric id.
type Control struct {
	Control string `toml:"control" json:"control" doc:"Control name or numeric id"`
	Value   int32  `toml:"value" json:"value" doc:"Control value"`
}

// Preset is a named set of controls applied together to one frame.
type Preset struct {
	Name        string    `toml:"name" json:"name" doc:"Preset name"`
	Description string    `toml:"description" json:"description,omitempty" doc:"What the preset does"`
	Controls    []Control `toml:"controls" json:"controls" doc:"Controls in apply order"`
}

// File is the on-disk preset collection.
type File struct {
	Presets []Preset `toml:"presets"`
}

// Settings resolves the preset's control names.
func (p Preset) Settings() ([]session.Setting, error) {
	return resolve(p.Controls)
}

func resolve(controls []Control) ([]session.Setting, error) {
	out := make([]session.Setting, 0, len(controls))
	for _, c := range controls {
		id, err := bufctrl.ParseID(c.Control)
		if err != nil {
			return nil, err
		}
		out = append(out, session.Setting{ID: id, Value: c.Value})
	}
	return out, nil
}

// Names lists the preset names in file order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Presets))
	for _, p := range f.Presets {
		names = append(names, p.Name)
	}
	return names
}

// Get finds a preset by name.
func (f *File) Get(name string) (Preset, bool) {
	for _, p := range f.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Validate rejects nameless or duplicate presets and unknown control names.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Presets))
	for i, p := range f.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
		if _, err := p.Settings(); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}

// Parse decodes and validates a preset file.
func Parse(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads a preset file. A missing file yields an empty collection.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return Parse(data)
}

// Save writes a preset file.
func Save(path string, f *File) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal presets: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
