// Package switcher implements the device rotation policy: which render
// endpoint becomes the default next, and which devices take part.
package switcher

import (
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hatstand/sound-switcheroo/audio"
)

var (
	// ErrNoSelectableDevices means every device has been excluded from the
	// rotation.
	ErrNoSelectableDevices = errors.New("no selectable devices")
	// ErrDeviceNotFound means an endpoint or menu ID matched no known
	// device.
	ErrDeviceNotFound = errors.New("device not found")
)

const cacheKeyDefault = "default-endpoint"

// Enumerator lists render endpoints. Implemented by audio.Enumerator.
type Enumerator interface {
	Devices() ([]audio.Device, error)
	DefaultDeviceID(role audio.Role) (string, error)
}

// Policy changes the default endpoint. Implemented by audio.PolicyConfig.
type Policy interface {
	SetDefaultEndpoint(deviceID string, role audio.Role) error
}

// Store persists the selectable state. Implemented by config.Store.
type Store interface {
	Load() (map[string]bool, error)
	Save(devices []audio.Device) error
}

// Option configures a Switcher.
type Option func(*Switcher) error

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Switcher) error {
		if log == nil {
			return errors.New("logger cannot be nil")
		}
		s.log = log
		return nil
	}
}

// WithRole sets the endpoint role to manage. Defaults to the console role.
func WithRole(role audio.Role) Option {
	return func(s *Switcher) error {
		s.role = role
		return nil
	}
}

// WithCacheTTL sets how long a default-endpoint lookup is reused. The tray
// asks for the current default on every click and menu-open.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Switcher) error {
		if ttl <= 0 {
			return errors.New("cache TTL must be positive")
		}
		s.cacheTTL = ttl
		return nil
	}
}

// WithRetryAttempts sets how many times device enumeration is attempted.
// Enumeration can fail transiently right after session start while the
// audio service is still coming up.
func WithRetryAttempts(attempts uint) Option {
	return func(s *Switcher) error {
		if attempts == 0 {
			return errors.New("retry attempts must be at least 1")
		}
		s.attempts = attempts
		return nil
	}
}

// Switcher owns the device list and rotation state.
type Switcher struct {
	enum   Enumerator
	policy Policy
	store  Store
	log    *zap.Logger

	role     audio.Role
	cacheTTL time.Duration
	attempts uint

	cache *ttlcache.Cache[string, string]

	mu      sync.Mutex
	devices []audio.Device
}

// New enumerates devices (retrying transient failures), applies persisted
// selectable state, and returns a ready Switcher.
func New(enum Enumerator, policy Policy, store Store, opts ...Option) (*Switcher, error) {
	s := &Switcher{
		enum:     enum,
		policy:   policy,
		store:    store,
		log:      zap.NewNop(),
		role:     audio.Console,
		cacheTTL: 2 * time.Second,
		attempts: 3,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.cache = ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](s.cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh re-enumerates devices and re-applies persisted state.
func (s *Switcher) Refresh() error {
	var devices []audio.Device
	err := retry.Do(func() error {
		var err error
		devices, err = s.enum.Devices()
		return err
	},
		retry.Attempts(s.attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return errors.Wrap(err, "enumerating devices")
	}

	states, err := s.store.Load()
	if err != nil {
		// A broken state file should not keep the app from starting.
		s.log.Warn("ignoring persisted device state", zap.Error(err))
		states = map[string]bool{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range devices {
		if selectable, ok := states[devices[i].ID]; ok {
			devices[i].Selectable = selectable
		}
	}
	s.devices = devices
	s.log.Info("enumerated devices", zap.Int("count", len(devices)))
	return nil
}

// Devices returns a copy of the known devices.
func (s *Switcher) Devices() []audio.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audio.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

func (s *Switcher) defaultID() (string, error) {
	if item := s.cache.Get(cacheKeyDefault); item != nil {
		return item.Value(), nil
	}
	id, err := s.enum.DefaultDeviceID(s.role)
	if err != nil {
		return "", errors.Wrap(err, "querying default endpoint")
	}
	s.cache.Set(cacheKeyDefault, id, ttlcache.DefaultTTL)
	return id, nil
}

// Current returns the device record for the current default endpoint.
func (s *Switcher) Current() (audio.Device, error) {
	id, err := s.defaultID()
	if err != nil {
		return audio.Device{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return audio.Device{}, errors.Wrapf(ErrDeviceNotFound, "default endpoint %q", id)
}

// Next makes the next selectable device the default endpoint and returns
// it: the first selectable device after the current one, wrapping around to
// the first selectable device. An unknown current device rotates from the
// top of the list.
func (s *Switcher) Next() (audio.Device, error) {
	currentID, err := s.defaultID()
	if err != nil {
		return audio.Device{}, err
	}

	s.mu.Lock()
	currentIndex := 0
	for i, d := range s.devices {
		if d.ID == currentID {
			currentIndex = i
			break
		}
	}
	var candidate *audio.Device
	var first *audio.Device
	for i := range s.devices {
		if !s.devices[i].Selectable {
			continue
		}
		if first == nil {
			first = &s.devices[i]
		}
		if i > currentIndex {
			candidate = &s.devices[i]
			break
		}
	}
	if candidate == nil {
		candidate = first
	}
	if candidate == nil {
		s.mu.Unlock()
		return audio.Device{}, ErrNoSelectableDevices
	}
	next := *candidate
	s.mu.Unlock()

	s.log.Info("switching default endpoint",
		zap.String("device", next.FriendlyName),
		zap.Stringer("form_factor", next.FormFactor))
	if err := s.policy.SetDefaultEndpoint(next.ID, s.role); err != nil {
		return audio.Device{}, err
	}
	s.cache.Delete(cacheKeyDefault)
	return next, nil
}

// Toggle flips whether the device behind a menu ID takes part in the
// rotation and persists the new state. Returns the device and its new flag.
func (s *Switcher) Toggle(menuID uint32) (audio.Device, bool, error) {
	s.mu.Lock()
	var toggled *audio.Device
	for i := range s.devices {
		if MenuID(s.devices[i].ID) == menuID {
			s.devices[i].Selectable = !s.devices[i].Selectable
			toggled = &s.devices[i]
			break
		}
	}
	if toggled == nil {
		s.mu.Unlock()
		return audio.Device{}, false, errors.Wrapf(ErrDeviceNotFound, "menu ID %d", menuID)
	}
	device := *toggled
	devices := make([]audio.Device, len(s.devices))
	copy(devices, s.devices)
	s.mu.Unlock()

	if err := s.store.Save(devices); err != nil {
		return device, device.Selectable, errors.Wrap(err, "persisting device state")
	}
	return device, device.Selectable, nil
}

// Save persists the current selectable state. Called on shutdown.
func (s *Switcher) Save() error {
	return s.store.Save(s.Devices())
}
