// Package config persists which devices take part in the rotation.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hatstand/sound-switcheroo/audio"
)

// Store reads and writes the device-selectable state file: a JSON map of
// endpoint ID to whether the device is included in the rotation.
type Store struct {
	path string
}

// DefaultPath returns the state file location under the user's config
// directory (roaming AppData on Windows).
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving user config dir")
	}
	return filepath.Join(base, "PurpleHatstands", "AudioSwitch", "device_config.json"), nil
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted state. A missing file is an empty state, not an
// error.
func (s *Store) Load() (map[string]bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", s.path)
	}
	states := map[string]bool{}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", s.path)
	}
	return states, nil
}

// Save writes the selectable state of every device, creating the parent
// directory if needed.
func (s *Store) Save(devices []audio.Device) error {
	states := make(map[string]bool, len(devices))
	for _, d := range devices {
		states[d.ID] = d.Selectable
	}
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding device state")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(s.path))
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", s.path)
	}
	return nil
}

// Apply overlays persisted selectable flags onto devices in place. Devices
// with no persisted entry keep their current flag.
func Apply(devices []audio.Device, states map[string]bool) {
	for i := range devices {
		if selectable, ok := states[devices[i].ID]; ok {
			devices[i].Selectable = selectable
		}
	}
}
