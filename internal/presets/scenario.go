package presets

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

// ContextSpec declares a context a scenario drives.
type ContextSpec struct {
	Name  string `toml:"name"`
	Kind  string `toml:"kind"`
	Codec string `toml:"codec"`
}

// FrameSpec is one frame of a scenario. Controls of the named preset are
// set first, then the frame's own controls. An aborted frame is submitted
// and rolled back instead of executed.
type FrameSpec struct {
	Context  string    `toml:"context"`
	Mode     string    `toml:"mode"`
	Preset   string    `toml:"preset"`
	Controls []Control `toml:"controls"`
	Abort    bool      `toml:"abort"`
	// Payload is the raw picture of an encoder frame or the bitstream of a
	// decoder frame.
	Payload string `toml:"payload"`
	// StreamFrom feeds a decoder frame the last stream encoded by the named
	// context.
	StreamFrom string `toml:"stream_from"`
}

// Scenario is a scripted sequence of frames.
type Scenario struct {
	Name     string        `toml:"name"`
	Presets  []Preset      `toml:"presets"`
	Contexts []ContextSpec `toml:"contexts"`
	Frames   []FrameSpec   `toml:"frames"`
}

// Validate checks context declarations and frame references.
func (s *Scenario) Validate() error {
	if err := (&File{Presets: s.Presets}).Validate(); err != nil {
		return err
	}
	kinds := make(map[string]bufctrl.Kind, len(s.Contexts))
	for _, c := range s.Contexts {
		if c.Name == "" {
			return fmt.Errorf("context with no name")
		}
		if _, dup := kinds[c.Name]; dup {
			return fmt.Errorf("duplicate context %q", c.Name)
		}
		kind, err := bufctrl.ParseKind(c.Kind)
		if err != nil {
			return fmt.Errorf("context %q: %w", c.Name, err)
		}
		if _, err := bufctrl.ParseCodec(c.Codec); err != nil {
			return fmt.Errorf("context %q: %w", c.Name, err)
		}
		kinds[c.Name] = kind
	}
	for i, f := range s.Frames {
		kind, ok := kinds[f.Context]
		if !ok {
			return fmt.Errorf("frame %d: unknown context %q", i, f.Context)
		}
		if _, err := bufctrl.ParseMode(f.Mode); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if _, err := resolve(f.Controls); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if f.StreamFrom != "" {
			src, ok := kinds[f.StreamFrom]
			if !ok || src != bufctrl.KindEncoder || kind != bufctrl.KindDecoder {
				return fmt.Errorf("frame %d: stream_from %q must name an encoder feeding a decoder", i, f.StreamFrom)
			}
		}
	}
	return nil
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return &s, nil
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}
