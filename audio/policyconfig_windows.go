//go:build windows

package audio

import (
	"runtime"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/pkg/errors"

	"github.com/hatstand/sound-switcheroo/wstr"
)

// The PolicyConfig COM class is undocumented but stable; it is what the
// Sound control panel itself uses to change the default endpoint. Interface
// layout per AudioEndPointLibrary's DefSound/PolicyConfig.h.
var (
	clsidPolicyConfig = ole.NewGUID("{870AF99C-171D-4F9E-AF0D-E63DF40C2BC9}")
	iidIPolicyConfig  = ole.NewGUID("{F8679F50-850A-41CF-9C72-430F290290C8}")
)

type iPolicyConfigVtbl struct {
	ole.IUnknownVtbl
	GetMixFormat          uintptr
	GetDeviceFormat       uintptr
	ResetDeviceFormat     uintptr
	SetDeviceFormat       uintptr
	GetProcessingPeriod   uintptr
	SetProcessingPeriod   uintptr
	GetShareMode          uintptr
	SetShareMode          uintptr
	GetPropertyValue      uintptr
	SetPropertyValue      uintptr
	SetDefaultEndpoint    uintptr
	SetEndpointVisibility uintptr
}

// PolicyConfig changes endpoint policy through the undocumented
// IPolicyConfig interface. It must be used on the thread that initialized
// COM.
type PolicyConfig struct {
	unk *ole.IUnknown
}

// NewPolicyConfig creates the PolicyConfig COM object. COM must already be
// initialized on the calling thread.
func NewPolicyConfig() (*PolicyConfig, error) {
	unk, err := ole.CreateInstance(clsidPolicyConfig, iidIPolicyConfig)
	if err != nil {
		return nil, errors.Wrap(err, "creating PolicyConfig")
	}
	pc := &PolicyConfig{unk: unk}
	runtime.SetFinalizer(pc, func(pc *PolicyConfig) {
		pc.Close()
	})
	return pc, nil
}

// Close releases the underlying COM object. Safe to call more than once.
func (pc *PolicyConfig) Close() {
	if pc.unk != nil {
		pc.unk.Release()
		pc.unk = nil
		runtime.SetFinalizer(pc, nil)
	}
}

func (pc *PolicyConfig) vtbl() *iPolicyConfigVtbl {
	return (*iPolicyConfigVtbl)(unsafe.Pointer(pc.unk.RawVTable))
}

// SetDefaultEndpoint makes the device the default render endpoint for the
// given role.
func (pc *PolicyConfig) SetDefaultEndpoint(deviceID string, role Role) error {
	err := wstr.With(deviceID, func(p *uint16) error {
		return comCall(pc.vtbl().SetDefaultEndpoint, ifacePtr(pc.unk),
			uintptr(unsafe.Pointer(p)), uintptr(role))
	})
	return errors.Wrapf(err, "setting default endpoint %q", deviceID)
}

// SetEndpointVisibility shows or hides the device in the sound UI.
func (pc *PolicyConfig) SetEndpointVisibility(deviceID string, visible bool) error {
	var flag uintptr
	if visible {
		flag = 1
	}
	err := wstr.With(deviceID, func(p *uint16) error {
		return comCall(pc.vtbl().SetEndpointVisibility, ifacePtr(pc.unk),
			uintptr(unsafe.Pointer(p)), flag)
	})
	return errors.Wrapf(err, "setting visibility of endpoint %q", deviceID)
}
