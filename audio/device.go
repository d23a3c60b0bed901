// Package audio binds the Windows MMDevice and PolicyConfig COM interfaces
// needed to enumerate render endpoints and change the default one.
package audio

// Role is an audio endpoint role (ERole).
type Role int32

const (
	Console Role = iota
	Multimedia
	Communications
)

// FormFactor is an endpoint's physical form factor (EndpointFormFactor).
type FormFactor uint32

const (
	RemoteNetworkDevice FormFactor = iota
	Speakers
	LineLevel
	Headphones
	Microphone
	Headset
	Handset
	UnknownDigitalPassthrough
	SPDIF
	DigitalAudioDisplayDevice
	UnknownFormFactor
)

func (f FormFactor) String() string {
	switch f {
	case RemoteNetworkDevice:
		return "remote network device"
	case Speakers:
		return "speakers"
	case LineLevel:
		return "line level"
	case Headphones:
		return "headphones"
	case Microphone:
		return "microphone"
	case Headset:
		return "headset"
	case Handset:
		return "handset"
	case UnknownDigitalPassthrough:
		return "digital passthrough"
	case SPDIF:
		return "S/PDIF"
	case DigitalAudioDisplayDevice:
		return "digital audio display"
	default:
		return "unknown"
	}
}

// Device is a render endpoint as the switcher sees it.
type Device struct {
	// ID is the endpoint ID string (stable across sessions for a given
	// device, of the form "{0.0.0.00000000}.{guid}").
	ID string
	// FriendlyName is the endpoint's display name from the property store.
	FriendlyName string
	FormFactor   FormFactor
	// Selectable marks whether the device takes part in the rotation.
	Selectable bool
}
