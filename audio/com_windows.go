//go:build windows

package audio

import (
	"unsafe"

	"github.com/ebitengine/purego"
	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	ole32                = windows.NewLazySystemDLL("ole32.dll")
	procPropVariantClear = ole32.NewProc("PropVariantClear")
)

// comCall dispatches a COM vtable method and converts a failure HRESULT to
// an *ole.OleError.
func comCall(fn uintptr, args ...uintptr) error {
	hr, _, _ := purego.SyscallN(fn, args...)
	if int32(hr) < 0 {
		return ole.NewError(hr)
	}
	return nil
}

func ifacePtr(unk *ole.IUnknown) uintptr {
	return uintptr(unsafe.Pointer(unk))
}

// propertyKey mirrors PROPERTYKEY.
type propertyKey struct {
	fmtid ole.GUID
	pid   uint32
}

var (
	pkeyDeviceFriendlyName = propertyKey{
		fmtid: *ole.NewGUID("{A45C254E-DF1C-4EFD-8020-67D146A850E0}"),
		pid:   14,
	}
	pkeyAudioEndpointFormFactor = propertyKey{
		fmtid: *ole.NewGUID("{1DA5D803-D492-4EDD-8C23-E0C0FFEE7F0E}"),
		pid:   0,
	}
)

const (
	vtUI4    = 19
	vtLPWSTR = 31
)

// propVariant mirrors PROPVARIANT: variant tag, three reserved words, then a
// 16-byte value union.
type propVariant struct {
	vt        uint16
	reserved1 uint16
	reserved2 uint16
	reserved3 uint16
	data      [16]byte
}

func (pv *propVariant) pwsz() *uint16 {
	return *(**uint16)(unsafe.Pointer(&pv.data[0]))
}

func (pv *propVariant) uint32Val() uint32 {
	return *(*uint32)(unsafe.Pointer(&pv.data[0]))
}

func (pv *propVariant) clear() {
	// Frees any memory the variant owns (the LPWSTR case here).
	_, _, _ = procPropVariantClear.Call(uintptr(unsafe.Pointer(pv)))
}
