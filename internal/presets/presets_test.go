package presets

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/mfcctl/internal/events"
	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const presetFile = `
[[presets]]
name = "keyframe"
description = "Force an IDR frame"

[[presets.controls]]
control = "force_key_frame"
value = 1

[[presets]]
name = "short-gop"

[[presets.controls]]
control = "gop_size"
value = 10

[[presets.controls]]
control = "0x00990a08"
value = 2
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(presetFile))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(f.Names(), ","); got != "keyframe,short-gop" {
		t.Errorf("Names = %s", got)
	}
	p, ok := f.Get("short-gop")
	if !ok {
		t.Fatal("short-gop missing")
	}
	settings, err := p.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 2 || settings[0].ID != bufctrl.IDGOPSize || settings[0].Value != 10 {
		t.Errorf("settings = %+v", settings)
	}
	if settings[1].ID != bufctrl.ID(0x00990a08) {
		t.Errorf("numeric control id = %#x", uint32(settings[1].ID))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no name", "[[presets]]\ndescription = \"x\"\n", "no name"},
		{"duplicate", "[[presets]]\nname = \"a\"\n[[presets]]\nname = \"a\"\n", "duplicate"},
		{"bad control", "[[presets]]\nname = \"a\"\n[[presets.controls]]\ncontrol = \"bogus\"\nvalue = 1\n", "unknown control"},
		{"unknown key", "[[presets]]\nname = \"a\"\ncolour = 1\n", "parse presets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Presets) != 0 {
		t.Errorf("presets = %v", f.Presets)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	in := &File{Presets: []Preset{{Name: "tag", Controls: []Control{{Control: "frame_tag", Value: 9}}}}}
	if err := Save(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := out.Get("tag")
	if !ok || len(p.Controls) != 1 || p.Controls[0].Value != 9 {
		t.Errorf("loaded %+v", out)
	}
}

func TestStoreReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.toml")
	if err := os.WriteFile(path, []byte(presetFile), 0o644); err != nil {
		t.Fatal(err)
	}

	bus := events.New()
	ch := make(chan any, 4)
	defer events.SubscribeToChannel[events.PresetsReloadedEvent](bus, ch)()

	store, err := NewStore(path, bus, discard())
	if err != nil {
		t.Fatal(err)
	}
	if len(store.List()) != 2 {
		t.Fatalf("List = %v", store.List())
	}
	if err := store.Watch(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	defer store.Stop()

	next := "[[presets]]\nname = \"only\"\n"
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-ch:
		ev := e.(events.PresetsReloadedEvent)
		if len(ev.Presets) != 1 || ev.Presets[0] != "only" {
			t.Errorf("event presets = %v", ev.Presets)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload event")
	}
	if _, ok := store.Get("only"); !ok {
		t.Error("reloaded preset missing")
	}
	if _, ok := store.Get("keyframe"); ok {
		t.Error("old preset still served")
	}
}

func TestStoreKeepsPresetsOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	if err := os.WriteFile(path, []byte(presetFile), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := NewStore(path, nil, discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Watch(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[[presets]]\nname = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := store.Stop(); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("keyframe"); !ok {
		t.Error("presets lost after a failed reload")
	}
	if err := store.Stop(); err != nil {
		t.Errorf("second Stop = %v", err)
	}
}
