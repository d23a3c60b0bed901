package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hatstand/sound-switcheroo/audio"
)

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope", "device_config.json"))
	states, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected empty state, got %v", states)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "device_config.json")
	s := NewStore(path)

	devices := []audio.Device{
		{ID: "{0.0.0.00000000}.{aaaa}", FriendlyName: "Speakers", Selectable: true},
		{ID: "{0.0.0.00000000}.{bbbb}", FriendlyName: "Headphones", Selectable: false},
	}
	if err := s.Save(devices); err != nil {
		t.Fatalf("Save: %v", err)
	}

	states, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d entries, want 2", len(states))
	}
	if !states["{0.0.0.00000000}.{aaaa}"] || states["{0.0.0.00000000}.{bbbb}"] {
		t.Errorf("selectable flags not round-tripped: %v", states)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Error("expected error for corrupt state file")
	}
}

func TestApply(t *testing.T) {
	devices := []audio.Device{
		{ID: "a", Selectable: true},
		{ID: "b", Selectable: true},
		{ID: "c", Selectable: false},
	}
	Apply(devices, map[string]bool{"b": false, "unknown": true})

	if !devices[0].Selectable {
		t.Error("device without persisted entry should keep its flag")
	}
	if devices[1].Selectable {
		t.Error("persisted false flag not applied")
	}
	if devices[2].Selectable {
		t.Error("device c should stay unselectable")
	}
}
