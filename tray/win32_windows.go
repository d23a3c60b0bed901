//go:build windows

package tray

import (
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procRegisterClassExW = user32.NewProc("RegisterClassExW")
	procUnregisterClassW = user32.NewProc("UnregisterClassW")
	procCreateWindowExW  = user32.NewProc("CreateWindowExW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procDefWindowProcW   = user32.NewProc("DefWindowProcW")
	procGetMessageW      = user32.NewProc("GetMessageW")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")
	procPostMessageW     = user32.NewProc("PostMessageW")
	procPostQuitMessage  = user32.NewProc("PostQuitMessage")
	procCreatePopupMenu  = user32.NewProc("CreatePopupMenu")
	procDestroyMenu      = user32.NewProc("DestroyMenu")
	procInsertMenuItemW  = user32.NewProc("InsertMenuItemW")
	procGetMenuItemInfoW = user32.NewProc("GetMenuItemInfoW")
	procSetMenuItemInfoW = user32.NewProc("SetMenuItemInfoW")
	procTrackPopupMenuEx = user32.NewProc("TrackPopupMenuEx")
	procSetForegroundWnd = user32.NewProc("SetForegroundWindow")
	procGetCursorPos     = user32.NewProc("GetCursorPos")
	procLoadIconW        = user32.NewProc("LoadIconW")

	shell32              = windows.NewLazySystemDLL("shell32.dll")
	procShellNotifyIconW = shell32.NewProc("Shell_NotifyIconW")
)

const (
	wmDestroy   = 0x0002
	wmClose     = 0x0010
	wmQuit      = 0x0012
	wmCommand   = 0x0111
	wmRButtonUp = 0x0205
	wmUser      = 0x0400
	wmApp       = 0x8000

	// NIN_SELECT: primary click on the notify icon (version 4 callbacks).
	ninSelect = wmUser

	// Private callback message for notify icon events.
	wmTrayCallback = wmApp + 0x42

	nifMessage = 0x01
	nifIcon    = 0x02
	nifTip     = 0x04
	nifGUID    = 0x20
	nifShowTip = 0x80

	nimAdd        = 0
	nimModify     = 1
	nimDelete     = 2
	nimSetVersion = 4

	notifyIconVersion4 = 4

	miimState  = 0x01
	miimID     = 0x02
	miimString = 0x40
	miimFType  = 0x100

	mftString    = 0x0
	mftSeparator = 0x800

	mfsDisabled  = 0x3
	mfsChecked   = 0x8
	mfsUnchecked = 0x0

	tpmLeftAlign   = 0x0
	tpmRightButton = 0x2
	tpmBottomAlign = 0x20

	idiApplication = 32512
)

type point struct {
	x int32
	y int32
}

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     windows.Handle
	hIcon         windows.Handle
	hCursor       windows.Handle
	hbrBackground windows.Handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       windows.Handle
}

type winMsg struct {
	hwnd    windows.HWND
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      point
}

type notifyIconData struct {
	cbSize           uint32
	hWnd             windows.HWND
	uID              uint32
	uFlags           uint32
	uCallbackMessage uint32
	hIcon            windows.Handle
	szTip            [128]uint16
	dwState          uint32
	dwStateMask      uint32
	szInfo           [256]uint16
	uVersion         uint32
	szInfoTitle      [64]uint16
	dwInfoFlags      uint32
	guidItem         windows.GUID
	hBalloonIcon     windows.Handle
}

type menuItemInfo struct {
	cbSize        uint32
	fMask         uint32
	fType         uint32
	fState        uint32
	wID           uint32
	hSubMenu      windows.Handle
	hbmpChecked   windows.Handle
	hbmpUnchecked windows.Handle
	dwItemData    uintptr
	dwTypeData    *uint16
	cch           uint32
	hbmpItem      windows.Handle
}

func loword(v uintptr) uint32 {
	return uint32(v & 0xffff)
}
