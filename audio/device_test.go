package audio

import "testing"

func TestFormFactorString(t *testing.T) {
	tests := []struct {
		form FormFactor
		want string
	}{
		{Speakers, "speakers"},
		{Headphones, "headphones"},
		{Headset, "headset"},
		{SPDIF, "S/PDIF"},
		{UnknownFormFactor, "unknown"},
		{FormFactor(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.form.String(); got != tt.want {
			t.Errorf("FormFactor(%d).String() = %q, want %q", tt.form, got, tt.want)
		}
	}
}

func TestRoleValues(t *testing.T) {
	// ERole is passed raw into COM calls; the values must match the SDK.
	if Console != 0 || Multimedia != 1 || Communications != 2 {
		t.Errorf("Role constants drifted from ERole: %d %d %d", Console, Multimedia, Communications)
	}
}
