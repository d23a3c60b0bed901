//go:build windows

package tray

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/hatstand/sound-switcheroo/audio"
	"github.com/hatstand/sound-switcheroo/wstr"
)

// AdaptiveIcon is a pair of icon handles, one per system theme.
type AdaptiveIcon struct {
	light windows.Handle
	dark  windows.Handle
}

// LoadAdaptiveIcon loads the named icon resources from the executable. If a
// resource is missing the stock application icon is used instead, so the
// tray still works from a plain `go build` binary without embedded
// resources.
func LoadAdaptiveIcon(lightName, darkName string) (AdaptiveIcon, error) {
	light, err := loadIcon(lightName)
	if err != nil {
		return AdaptiveIcon{}, err
	}
	dark, err := loadIcon(darkName)
	if err != nil {
		return AdaptiveIcon{}, err
	}
	return AdaptiveIcon{light: light, dark: dark}, nil
}

// Handle picks the variant for the current system theme.
func (a AdaptiveIcon) Handle() windows.Handle {
	if DarkMode() {
		return a.dark
	}
	return a.light
}

func loadIcon(name string) (windows.Handle, error) {
	hinstance, err := windows.GetModuleHandle(nil)
	if err != nil {
		return 0, errors.Wrap(err, "getting module handle")
	}
	icon, err := wstr.WithResult(name, func(p *uint16) (uintptr, error) {
		h, _, _ := procLoadIconW.Call(uintptr(hinstance), uintptr(unsafe.Pointer(p)))
		return h, nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "loading icon %q", name)
	}
	if icon == 0 {
		// No such resource; fall back to the stock icon.
		icon, _, _ = procLoadIconW.Call(0, idiApplication)
		if icon == 0 {
			return 0, errors.Errorf("no icon %q and no stock fallback", name)
		}
	}
	return windows.Handle(icon), nil
}

// DarkMode reports whether apps should use the dark theme. Defaults to
// light when the registry value is missing.
func DarkMode() bool {
	key, err := registry.OpenKey(registry.CURRENT_USER,
		`Software\Microsoft\Windows\CurrentVersion\Themes\Personalize`,
		registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer key.Close()
	lightTheme, _, err := key.GetIntegerValue("AppsUseLightTheme")
	if err != nil {
		return false
	}
	return lightTheme == 0
}

// Icons maps endpoint form factors to adaptive icons.
type Icons struct {
	Default    AdaptiveIcon
	Headphones AdaptiveIcon
	Headset    AdaptiveIcon
	Speakers   AdaptiveIcon
}

// For returns the themed icon handle for a form factor.
func (ic *Icons) For(form audio.FormFactor) windows.Handle {
	switch form {
	case audio.Headphones:
		return ic.Headphones.Handle()
	case audio.Headset:
		return ic.Headset.Handle()
	case audio.Speakers:
		return ic.Speakers.Handle()
	default:
		return ic.Default.Handle()
	}
}

// LoadIcons loads all form-factor icons by their resource naming convention.
func LoadIcons() (*Icons, error) {
	var (
		icons Icons
		err   error
	)
	if icons.Default, err = LoadAdaptiveIcon("audio_icon", "audio_icon"); err != nil {
		return nil, err
	}
	if icons.Headphones, err = LoadAdaptiveIcon("headphones_icon", "headphones_icon_dark"); err != nil {
		return nil, err
	}
	if icons.Headset, err = LoadAdaptiveIcon("headset_icon", "headset_icon_dark"); err != nil {
		return nil, err
	}
	if icons.Speakers, err = LoadAdaptiveIcon("speaker_icon", "speaker_icon_dark"); err != nil {
		return nil, err
	}
	return &icons, nil
}
