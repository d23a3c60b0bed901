//go:build windows

// Command sound-switcheroo is a tray utility that rotates the default audio
// render endpoint. A primary click on the icon switches to the next
// selectable device; the context menu picks which devices take part.
package main

import (
	"os"
	"runtime"
	"time"

	ole "github.com/go-ole/go-ole"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hatstand/sound-switcheroo/audio"
	"github.com/hatstand/sound-switcheroo/config"
	"github.com/hatstand/sound-switcheroo/switcher"
	"github.com/hatstand/sound-switcheroo/tray"
)

// Fixed menu IDs. Device items use CRC-derived IDs; technically these could
// collide with one but it's unlikely.
const (
	menuIDExit    = 1
	menuIDCurrent = 2
)

var (
	debug      = pflag.Bool("debug", false, "verbose logging")
	configPath = pflag.String("config", "", "path to the device state file (defaults to the user config dir)")
	cacheTTL   = pflag.Duration("cache-ttl", 2*time.Second, "how long default-endpoint lookups are reused")
)

func main() {
	pflag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("exiting", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(log *zap.Logger) error {
	// COM apartment-threaded objects and the message loop both belong to
	// this one thread.
	runtime.LockOSThread()
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return err
	}
	defer ole.CoUninitialize()

	enum, err := audio.NewEnumerator()
	if err != nil {
		return err
	}
	defer enum.Close()

	policy, err := audio.NewPolicyConfig()
	if err != nil {
		return err
	}
	defer policy.Close()

	path := *configPath
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	store := config.NewStore(path)

	sw, err := switcher.New(enum, policy, store,
		switcher.WithLogger(log),
		switcher.WithCacheTTL(*cacheTTL),
	)
	if err != nil {
		return err
	}

	icons, err := tray.LoadIcons()
	if err != nil {
		return err
	}

	tooltip := "Sound Switcheroo"
	icon := icons.For(audio.UnknownFormFactor)
	currentName := "(unknown device)"
	if current, err := sw.Current(); err == nil {
		tooltip = current.FriendlyName
		icon = icons.For(current.FormFactor)
		currentName = current.FriendlyName
	} else {
		log.Warn("current default endpoint not found", zap.Error(err))
	}

	var t *tray.Tray
	t, err = tray.New(tray.Config{
		Tooltip:    tooltip,
		Icon:       icon,
		Items:      menuItems(sw.Devices(), currentName),
		Logger:     log,
		OnMenuOpen: func() { refreshCurrent(log, sw, t) },
		OnSelect: func() {
			next, err := sw.Next()
			if err != nil {
				log.Error("failed to switch device", zap.Error(err))
				return
			}
			if err := t.SetStatus(next.FriendlyName, icons.For(next.FormFactor)); err != nil {
				log.Error("failed to update tray icon", zap.Error(err))
			}
		},
		OnCommand: func(id uint32) {
			switch id {
			case menuIDExit:
				t.Quit()
			case menuIDCurrent:
				// Informational row.
			default:
				device, checked, err := sw.Toggle(id)
				if err != nil {
					log.Debug("ignoring unknown menu selection", zap.Uint32("id", id), zap.Error(err))
					return
				}
				log.Info("toggled device",
					zap.String("device", device.FriendlyName),
					zap.Bool("selectable", checked))
				if err := t.SetChecked(id, checked); err != nil {
					log.Error("failed to update menu item", zap.Error(err))
				}
			}
		},
	})
	if err != nil {
		return err
	}
	defer t.Close()

	log.Info("running", zap.Int("devices", len(sw.Devices())))
	if err := t.Run(); err != nil {
		return err
	}
	return sw.Save()
}

func refreshCurrent(log *zap.Logger, sw *switcher.Switcher, t *tray.Tray) {
	current, err := sw.Current()
	if err != nil {
		log.Warn("current default endpoint not found", zap.Error(err))
		return
	}
	if err := t.SetItemText(menuIDCurrent, current.FriendlyName); err != nil {
		log.Error("failed to update current device row", zap.Error(err))
	}
}

func menuItems(devices []audio.Device, currentName string) []tray.Item {
	items := []tray.Item{
		{Text: "Sound Switcheroo", Disabled: true},
		{ID: menuIDCurrent, Text: currentName, Disabled: true},
		{Separator: true},
	}
	for _, d := range devices {
		items = append(items, tray.Item{
			ID:      switcher.MenuID(d.ID),
			Text:    d.FriendlyName,
			Checked: d.Selectable,
		})
	}
	items = append(items,
		tray.Item{Separator: true},
		tray.Item{ID: menuIDExit, Text: "Exit"},
	)
	return items
}
