//go:build windows

package audio

import (
	"runtime"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/pkg/errors"

	"github.com/hatstand/sound-switcheroo/wstr"
)

var (
	clsidMMDeviceEnumerator = ole.NewGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator  = ole.NewGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
)

const (
	dataFlowRender    = 0 // eRender
	deviceStateActive = 0x1
	stgmRead          = 0
)

type immDeviceEnumeratorVtbl struct {
	ole.IUnknownVtbl
	EnumAudioEndpoints                     uintptr
	GetDefaultAudioEndpoint                uintptr
	GetDevice                              uintptr
	RegisterEndpointNotificationCallback   uintptr
	UnregisterEndpointNotificationCallback uintptr
}

type immDeviceCollectionVtbl struct {
	ole.IUnknownVtbl
	GetCount uintptr
	Item     uintptr
}

type immDeviceVtbl struct {
	ole.IUnknownVtbl
	Activate          uintptr
	OpenPropertyStore uintptr
	GetId             uintptr
	GetState          uintptr
}

type iPropertyStoreVtbl struct {
	ole.IUnknownVtbl
	GetCount uintptr
	GetAt    uintptr
	GetValue uintptr
	SetValue uintptr
	Commit   uintptr
}

// Enumerator lists active render endpoints through IMMDeviceEnumerator. It
// must be used on the thread that initialized COM.
type Enumerator struct {
	unk *ole.IUnknown
}

// NewEnumerator creates the MMDeviceEnumerator COM object. COM must already
// be initialized on the calling thread.
func NewEnumerator() (*Enumerator, error) {
	unk, err := ole.CreateInstance(clsidMMDeviceEnumerator, iidIMMDeviceEnumerator)
	if err != nil {
		return nil, errors.Wrap(err, "creating MMDeviceEnumerator")
	}
	e := &Enumerator{unk: unk}
	runtime.SetFinalizer(e, func(e *Enumerator) {
		e.Close()
	})
	return e, nil
}

// Close releases the underlying COM object. Safe to call more than once.
func (e *Enumerator) Close() {
	if e.unk != nil {
		e.unk.Release()
		e.unk = nil
		runtime.SetFinalizer(e, nil)
	}
}

func (e *Enumerator) vtbl() *immDeviceEnumeratorVtbl {
	return (*immDeviceEnumeratorVtbl)(unsafe.Pointer(e.unk.RawVTable))
}

// Devices returns all active render endpoints with their friendly names and
// form factors. Selectable is true on every returned device; persisted state
// is applied by the caller.
func (e *Enumerator) Devices() ([]Device, error) {
	var coll *ole.IUnknown
	err := comCall(e.vtbl().EnumAudioEndpoints, ifacePtr(e.unk),
		uintptr(dataFlowRender), uintptr(deviceStateActive),
		uintptr(unsafe.Pointer(&coll)))
	if err != nil {
		return nil, errors.Wrap(err, "enumerating render endpoints")
	}
	defer coll.Release()
	collVtbl := (*immDeviceCollectionVtbl)(unsafe.Pointer(coll.RawVTable))

	var count uint32
	if err := comCall(collVtbl.GetCount, ifacePtr(coll), uintptr(unsafe.Pointer(&count))); err != nil {
		return nil, errors.Wrap(err, "reading endpoint count")
	}

	devices := make([]Device, 0, count)
	for i := uint32(0); i < count; i++ {
		var item *ole.IUnknown
		if err := comCall(collVtbl.Item, ifacePtr(coll), uintptr(i), uintptr(unsafe.Pointer(&item))); err != nil {
			return nil, errors.Wrapf(err, "fetching endpoint %d", i)
		}
		device, err := describeDevice(item)
		item.Release()
		if err != nil {
			return nil, errors.Wrapf(err, "describing endpoint %d", i)
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// DefaultDeviceID returns the endpoint ID of the current default render
// device for the given role.
func (e *Enumerator) DefaultDeviceID(role Role) (string, error) {
	var item *ole.IUnknown
	err := comCall(e.vtbl().GetDefaultAudioEndpoint, ifacePtr(e.unk),
		uintptr(dataFlowRender), uintptr(role), uintptr(unsafe.Pointer(&item)))
	if err != nil {
		return "", errors.Wrap(err, "getting default render endpoint")
	}
	defer item.Release()
	return deviceID(item)
}

// deviceID reads IMMDevice::GetId and frees the returned LPWSTR. The string
// is decoded before the COM-owned buffer is released.
func deviceID(item *ole.IUnknown) (string, error) {
	vtbl := (*immDeviceVtbl)(unsafe.Pointer(item.RawVTable))
	var p *uint16
	if err := comCall(vtbl.GetId, ifacePtr(item), uintptr(unsafe.Pointer(&p))); err != nil {
		return "", errors.Wrap(err, "reading endpoint ID")
	}
	id := wstr.Decode(p)
	ole.CoTaskMemFree(uintptr(unsafe.Pointer(p)))
	return id, nil
}

func describeDevice(item *ole.IUnknown) (Device, error) {
	id, err := deviceID(item)
	if err != nil {
		return Device{}, err
	}

	vtbl := (*immDeviceVtbl)(unsafe.Pointer(item.RawVTable))
	var store *ole.IUnknown
	err = comCall(vtbl.OpenPropertyStore, ifacePtr(item), uintptr(stgmRead), uintptr(unsafe.Pointer(&store)))
	if err != nil {
		return Device{}, errors.Wrap(err, "opening property store")
	}
	defer store.Release()

	name, err := propString(store, &pkeyDeviceFriendlyName)
	if err != nil {
		return Device{}, errors.Wrap(err, "reading friendly name")
	}
	form, err := propUint32(store, &pkeyAudioEndpointFormFactor)
	if err != nil {
		return Device{}, errors.Wrap(err, "reading form factor")
	}

	return Device{
		ID:           id,
		FriendlyName: name,
		FormFactor:   FormFactor(form),
		Selectable:   true,
	}, nil
}

func propValue(store *ole.IUnknown, key *propertyKey, pv *propVariant) error {
	vtbl := (*iPropertyStoreVtbl)(unsafe.Pointer(store.RawVTable))
	return comCall(vtbl.GetValue, ifacePtr(store),
		uintptr(unsafe.Pointer(key)), uintptr(unsafe.Pointer(pv)))
}

func propString(store *ole.IUnknown, key *propertyKey) (string, error) {
	var pv propVariant
	if err := propValue(store, key, &pv); err != nil {
		return "", err
	}
	defer pv.clear()
	if pv.vt != vtLPWSTR {
		return "", errors.Errorf("unexpected PROPVARIANT type %d, want LPWSTR", pv.vt)
	}
	return wstr.Decode(pv.pwsz()), nil
}

func propUint32(store *ole.IUnknown, key *propertyKey) (uint32, error) {
	var pv propVariant
	if err := propValue(store, key, &pv); err != nil {
		return 0, err
	}
	defer pv.clear()
	if pv.vt != vtUI4 {
		return 0, errors.Errorf("unexpected PROPVARIANT type %d, want UI4", pv.vt)
	}
	return pv.uint32Val(), nil
}
