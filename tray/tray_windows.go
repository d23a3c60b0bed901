//go:build windows

package tray

import (
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/hatstand/sound-switcheroo/wstr"
)

// Identifies the notify icon across restarts so Windows keeps its position
// and visibility preferences.
var notifyIconGUID = windows.GUID{
	Data1: 0x8fc84650,
	Data2: 0x4bca,
	Data3: 0x4125,
	Data4: [8]byte{0xb7, 0x78, 0x10, 0x31, 0x3f, 0x96, 0x23, 0xdf},
}

// Item describes one popup menu entry.
type Item struct {
	ID        uint32
	Text      string
	Checked   bool
	Disabled  bool
	Separator bool
}

// Config wires a Tray to the application.
type Config struct {
	// ClassName is the window class registered for the hidden message
	// window. Defaults to "SoundSwitcheroo".
	ClassName string
	Tooltip   string
	Icon      windows.Handle
	Items     []Item

	// OnSelect fires on a primary click on the icon.
	OnSelect func()
	// OnCommand fires with the menu item ID when an entry is chosen.
	OnCommand func(id uint32)
	// OnMenuOpen fires right before the popup menu is shown.
	OnMenuOpen func()

	Logger *zap.Logger
}

// Tray is a Win32 notify icon with a popup menu, driven by a hidden window
// and its message loop. All methods must be called from the thread running
// Run, except Quit.
type Tray struct {
	log        *zap.Logger
	hinstance  windows.Handle
	classAtom  uintptr
	hwnd       windows.HWND
	menu       windows.Handle
	iconAdded  bool
	onSelect   func()
	onCommand  func(uint32)
	onMenuOpen func()
}

// New registers the window class, creates the hidden window and popup menu,
// and adds the notify icon.
func New(cfg Config) (*Tray, error) {
	if cfg.ClassName == "" {
		cfg.ClassName = "SoundSwitcheroo"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	hinstance, err := windows.GetModuleHandle(nil)
	if err != nil {
		return nil, errors.Wrap(err, "getting module handle")
	}

	t := &Tray{
		log:        cfg.Logger,
		hinstance:  hinstance,
		onSelect:   cfg.OnSelect,
		onCommand:  cfg.OnCommand,
		onMenuOpen: cfg.OnMenuOpen,
	}

	wndProc := windows.NewCallback(t.wndProc)
	err = wstr.With(cfg.ClassName, func(className *uint16) error {
		wc := wndClassEx{
			cbSize:        uint32(unsafe.Sizeof(wndClassEx{})),
			lpfnWndProc:   wndProc,
			hInstance:     hinstance,
			lpszClassName: className,
		}
		atom, _, callErr := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))
		if atom == 0 {
			return errors.Wrap(callErr, "registering window class")
		}
		t.classAtom = atom
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The window is never shown; it exists to receive notify icon and menu
	// messages. It must not be message-only or shell callbacks misbehave.
	err = wstr.With("Sound Switcheroo", func(title *uint16) error {
		hwnd, _, callErr := procCreateWindowExW.Call(
			0,
			t.classAtom, // class atom stands in for the name
			uintptr(unsafe.Pointer(title)),
			0,
			0, 0, 0, 0,
			0,
			0,
			uintptr(hinstance),
			0,
		)
		if hwnd == 0 {
			return errors.Wrap(callErr, "creating message window")
		}
		t.hwnd = windows.HWND(hwnd)
		return nil
	})
	if err != nil {
		t.unregisterClass()
		return nil, err
	}

	if t.menu, err = buildMenu(cfg.Items); err != nil {
		t.destroyWindow()
		t.unregisterClass()
		return nil, err
	}

	if err := t.addIcon(cfg.Tooltip, cfg.Icon); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// Run pumps messages until the window is destroyed.
func (t *Tray) Run() error {
	for {
		var m winMsg
		r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case 0:
			return nil
		case -1:
			t.log.Error("failed to get message", zap.Error(err))
		default:
			_, _, _ = procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		}
	}
}

// Quit asks the message window to close, ending Run. Safe to call from any
// thread.
func (t *Tray) Quit() {
	_, _, _ = procPostMessageW.Call(uintptr(t.hwnd), wmClose, 0, 0)
}

// Close tears down the icon, menu, window, and class. Idempotent.
func (t *Tray) Close() {
	t.removeIcon()
	if t.menu != 0 {
		_, _, _ = procDestroyMenu.Call(uintptr(t.menu))
		t.menu = 0
	}
	t.destroyWindow()
	t.unregisterClass()
}

func (t *Tray) destroyWindow() {
	if t.hwnd != 0 {
		_, _, _ = procDestroyWindow.Call(uintptr(t.hwnd))
		t.hwnd = 0
	}
}

func (t *Tray) unregisterClass() {
	if t.classAtom != 0 {
		_, _, _ = procUnregisterClassW.Call(t.classAtom, uintptr(t.hinstance))
		t.classAtom = 0
	}
}

func (t *Tray) wndProc(hwnd, msg, wParam, lParam uintptr) uintptr {
	switch uint32(msg) {
	case wmTrayCallback:
		switch loword(lParam) {
		case wmRButtonUp:
			if err := t.showMenu(); err != nil {
				t.log.Error("failed to show popup menu", zap.Error(err))
			}
			return 0
		case ninSelect:
			if t.onSelect != nil {
				t.onSelect()
			}
			return 0
		}
	case wmCommand:
		if t.onCommand != nil {
			t.onCommand(loword(wParam))
		}
		return 0
	case wmDestroy:
		t.removeIcon()
		_, _, _ = procPostQuitMessage.Call(0)
		return 0
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, msg, wParam, lParam)
	return r
}

func (t *Tray) showMenu() error {
	if t.onMenuOpen != nil {
		t.onMenuOpen()
	}
	var pos point
	if r, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pos))); r == 0 {
		return errors.Wrap(err, "getting cursor position")
	}
	// Without this the menu does not dismiss when the user clicks away.
	_, _, _ = procSetForegroundWnd.Call(uintptr(t.hwnd))
	r, _, err := procTrackPopupMenuEx.Call(
		uintptr(t.menu),
		tpmLeftAlign|tpmBottomAlign|tpmRightButton,
		uintptr(pos.x),
		uintptr(pos.y),
		uintptr(t.hwnd),
		0,
	)
	if r == 0 {
		return errors.Wrap(err, "tracking popup menu")
	}
	return nil
}

func (t *Tray) baseNID() notifyIconData {
	return notifyIconData{
		cbSize:   uint32(unsafe.Sizeof(notifyIconData{})),
		hWnd:     t.hwnd,
		uFlags:   nifGUID,
		guidItem: notifyIconGUID,
	}
}

func (t *Tray) notify(action uintptr, nid *notifyIconData) error {
	r, _, err := procShellNotifyIconW.Call(action, uintptr(unsafe.Pointer(nid)))
	if r == 0 {
		return errors.Wrap(err, "Shell_NotifyIconW")
	}
	return nil
}

func (t *Tray) addIcon(tooltip string, icon windows.Handle) error {
	nid := t.baseNID()
	// Both NIF_TIP and NIF_SHOWTIP are required for the tooltip to appear.
	nid.uFlags |= nifIcon | nifMessage | nifTip | nifShowTip
	nid.uCallbackMessage = wmTrayCallback
	nid.hIcon = icon
	if _, err := wstr.CopyEncode(nid.szTip[:], tooltip); err != nil {
		return errors.Wrap(err, "encoding tooltip")
	}
	if err := t.notify(nimAdd, &nid); err != nil {
		return err
	}
	t.iconAdded = true
	// Opt in to the version 4 callback protocol (NIN_SELECT etc.).
	nid.uVersion = notifyIconVersion4
	return t.notify(nimSetVersion, &nid)
}

// SetStatus updates the icon and tooltip in place.
func (t *Tray) SetStatus(tooltip string, icon windows.Handle) error {
	nid := t.baseNID()
	nid.uFlags |= nifIcon | nifMessage | nifTip | nifShowTip
	nid.uCallbackMessage = wmTrayCallback
	nid.hIcon = icon
	if _, err := wstr.CopyEncode(nid.szTip[:], tooltip); err != nil {
		return errors.Wrap(err, "encoding tooltip")
	}
	return t.notify(nimModify, &nid)
}

func (t *Tray) removeIcon() {
	if !t.iconAdded {
		return
	}
	nid := t.baseNID()
	if err := t.notify(nimDelete, &nid); err != nil {
		t.log.Warn("failed to remove notify icon", zap.Error(err))
	}
	t.iconAdded = false
}
