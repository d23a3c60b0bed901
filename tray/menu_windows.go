//go:build windows

package tray

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/hatstand/sound-switcheroo/wstr"
)

func buildMenu(items []Item) (windows.Handle, error) {
	h, _, err := procCreatePopupMenu.Call()
	if h == 0 {
		return 0, errors.Wrap(err, "creating popup menu")
	}
	menu := windows.Handle(h)
	for i, item := range items {
		if err := insertItem(menu, uint32(i), item); err != nil {
			_, _, _ = procDestroyMenu.Call(uintptr(menu))
			return 0, errors.Wrapf(err, "inserting menu item %d", i)
		}
	}
	return menu, nil
}

func insertItem(menu windows.Handle, pos uint32, item Item) error {
	if item.Separator {
		mii := menuItemInfo{
			cbSize: uint32(unsafe.Sizeof(menuItemInfo{})),
			fMask:  miimFType,
			fType:  mftSeparator,
		}
		r, _, err := procInsertMenuItemW.Call(uintptr(menu), uintptr(pos), 1, uintptr(unsafe.Pointer(&mii)))
		if r == 0 {
			return errors.Wrap(err, "inserting separator")
		}
		return nil
	}

	return wstr.WithMut(item.Text, func(text *uint16) error {
		mii := menuItemInfo{
			cbSize:     uint32(unsafe.Sizeof(menuItemInfo{})),
			fMask:      miimFType | miimID | miimString | miimState,
			fType:      mftString,
			fState:     itemState(item),
			wID:        item.ID,
			dwTypeData: text,
		}
		r, _, err := procInsertMenuItemW.Call(uintptr(menu), uintptr(pos), 1, uintptr(unsafe.Pointer(&mii)))
		if r == 0 {
			return errors.Wrap(err, "inserting menu item")
		}
		return nil
	})
}

func itemState(item Item) uint32 {
	var state uint32
	if item.Checked {
		state |= mfsChecked
	}
	if item.Disabled {
		state |= mfsDisabled
	}
	return state
}

// SetChecked updates the check mark of the menu item with the given command
// ID, preserving its other state bits.
func (t *Tray) SetChecked(id uint32, checked bool) error {
	mii := menuItemInfo{
		cbSize: uint32(unsafe.Sizeof(menuItemInfo{})),
		fMask:  miimState,
	}
	r, _, err := procGetMenuItemInfoW.Call(uintptr(t.menu), uintptr(id), 0, uintptr(unsafe.Pointer(&mii)))
	if r == 0 {
		return errors.Wrapf(err, "reading state of menu item %d", id)
	}
	if checked {
		mii.fState |= mfsChecked
	} else {
		mii.fState &^= mfsChecked
	}
	r, _, err = procSetMenuItemInfoW.Call(uintptr(t.menu), uintptr(id), 0, uintptr(unsafe.Pointer(&mii)))
	if r == 0 {
		return errors.Wrapf(err, "updating state of menu item %d", id)
	}
	return nil
}

// SetItemText replaces the text of the menu item with the given command ID.
func (t *Tray) SetItemText(id uint32, text string) error {
	return wstr.WithMut(text, func(p *uint16) error {
		mii := menuItemInfo{
			cbSize:     uint32(unsafe.Sizeof(menuItemInfo{})),
			fMask:      miimString,
			dwTypeData: p,
		}
		r, _, err := procSetMenuItemInfoW.Call(uintptr(t.menu), uintptr(id), 0, uintptr(unsafe.Pointer(&mii)))
		if r == 0 {
			return errors.Wrapf(err, "setting text of menu item %d", id)
		}
		return nil
	})
}
