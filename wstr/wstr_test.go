package wstr

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf16"
	"unsafe"
)

// trackReleases swaps in buffer hooks that record every buffer handed out
// and require each to be released exactly once. Restores the hooks on
// cleanup.
func trackReleases(t *testing.T) (allocated *int, released *int) {
	t.Helper()
	origAcquire, origRelease := acquireBuffer, releaseBuffer
	t.Cleanup(func() {
		acquireBuffer, releaseBuffer = origAcquire, origRelease
	})
	var allocs, releases int
	acquireBuffer = func(buf []uint16) {
		allocs++
	}
	releaseBuffer = func(buf []uint16) {
		releases++
	}
	return &allocs, &releases
}

func TestWithBufferContents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []uint16
	}{
		{"speakers", "Speakers", []uint16{'S', 'p', 'e', 'a', 'k', 'e', 'r', 's', 0}},
		{"empty", "", []uint16{0}},
		{"ascii", "hello", []uint16{'h', 'e', 'l', 'l', 'o', 0}},
		{"bmp unicode", "héllo", append(utf16.Encode([]rune("héllo")), 0)},
		{"surrogate pair", "a\U0001F50Ab", append(utf16.Encode([]rune("a\U0001F50Ab")), 0)},
		{"literal replacement char", "a�b", append(utf16.Encode([]rune("a�b")), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := With(tt.input, func(p *uint16) error {
				got := unsafe.Slice(p, len(tt.want))
				for i, u := range tt.want {
					if got[i] != u {
						t.Errorf("unit %d: got %#x, want %#x", i, got[i], u)
					}
				}
				// Exactly one terminator, at the end.
				for i, u := range got[:len(got)-1] {
					if u == 0 {
						t.Errorf("unexpected NUL unit at %d", i)
					}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("With returned error: %v", err)
			}
		})
	}
}

func TestWithRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"a",
		"Speakers",
		"Headphones (USB Audio)",
		"héllo wörld",
		"динамики",
		"スピーカー",
		"a\U0001F50Ab",
		strings.Repeat("x", 1000),
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			err := With(input, func(p *uint16) error {
				if got := Decode(p); got != input {
					t.Errorf("Decode = %q, want %q", got, input)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("With returned error: %v", err)
			}
		})
	}
}

func TestWithPassesThroughOperationError(t *testing.T) {
	sentinel := errors.New("foreign call failed")
	allocs, releases := trackReleases(t)

	err := With("Speakers", func(p *uint16) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want sentinel error unchanged", err)
	}
	if *allocs != 1 || *releases != 1 {
		t.Errorf("allocs=%d releases=%d, want 1/1: buffer must be released on the error path", *allocs, *releases)
	}
}

func TestWithReleasesAfterOperation(t *testing.T) {
	origRelease := releaseBuffer
	t.Cleanup(func() { releaseBuffer = origRelease })

	var opDone, releasedEarly bool
	releaseBuffer = func(buf []uint16) {
		if !opDone {
			releasedEarly = true
		}
	}

	err := With("Speakers", func(p *uint16) error {
		opDone = true
		return nil
	})
	if err != nil {
		t.Fatalf("With returned error: %v", err)
	}
	if releasedEarly {
		t.Error("buffer released before the operation returned")
	}
}

func TestWithInvokesOperationExactlyOnce(t *testing.T) {
	var calls int
	err := With("x", func(p *uint16) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("With returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}
}

func TestWithEncodingError(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantOffset int
	}{
		{"embedded NUL", "abc\x00def", 3},
		{"leading NUL", "\x00", 0},
		{"invalid UTF-8", "ab\xffcd", 2},
		{"truncated sequence", "ab\xe2\x82", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoked := false
			err := With(tt.input, func(p *uint16) error {
				invoked = true
				return nil
			})
			var encErr *EncodingError
			if !errors.As(err, &encErr) {
				t.Fatalf("got %v, want *EncodingError", err)
			}
			if encErr.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", encErr.Offset, tt.wantOffset)
			}
			if invoked {
				t.Error("operation invoked despite encoding error")
			}
		})
	}
}

func TestWithResultPassesThroughValue(t *testing.T) {
	got, err := WithResult("Speakers", func(p *uint16) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("WithResult returned error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}

	sentinel := errors.New("status E_FAIL")
	_, err = WithResult("Speakers", func(p *uint16) (string, error) {
		return "", sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("got %v, want sentinel error unchanged", err)
	}
}

func TestWithBufferReadsBackMutation(t *testing.T) {
	allocs, releases := trackReleases(t)

	got, err := WithBuffer("old", 64, func(p *uint16, n uint32) error {
		if n != 64 {
			t.Errorf("capacity = %d, want 64", n)
		}
		buf := unsafe.Slice(p, n)
		if DecodeSlice(buf) != "old" {
			t.Errorf("buffer not seeded with text: %q", DecodeSlice(buf))
		}
		written, err := CopyEncode(buf, "replacement")
		if err != nil {
			return err
		}
		if written != len("replacement") {
			t.Errorf("CopyEncode wrote %d units", written)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBuffer returned error: %v", err)
	}
	if got != "replacement" {
		t.Errorf("read-back = %q, want %q", got, "replacement")
	}
	if *allocs < 1 || *releases != *allocs {
		t.Errorf("allocs=%d releases=%d, want every buffer released", *allocs, *releases)
	}
}

func TestWithBufferGrowsToFitText(t *testing.T) {
	// Requested capacity smaller than the text still yields a valid buffer.
	got, err := WithBuffer("longer than two", 2, func(p *uint16, n uint32) error {
		if int(n) < len("longer than two")+1 {
			t.Errorf("capacity %d too small for seeded text", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBuffer returned error: %v", err)
	}
	if got != "longer than two" {
		t.Errorf("read-back = %q", got)
	}
}

func TestCopyEncode(t *testing.T) {
	t.Run("fits with zero fill", func(t *testing.T) {
		var tip [128]uint16
		for i := range tip {
			tip[i] = 0xAAAA
		}
		n, err := CopyEncode(tip[:], "Speakers")
		if err != nil {
			t.Fatalf("CopyEncode: %v", err)
		}
		if n != 8 {
			t.Errorf("n = %d, want 8", n)
		}
		if DecodeSlice(tip[:]) != "Speakers" {
			t.Errorf("decoded %q", DecodeSlice(tip[:]))
		}
		for i := n; i < len(tip); i++ {
			if tip[i] != 0 {
				t.Fatalf("unit %d not zeroed: %#x", i, tip[i])
			}
		}
	})

	t.Run("too long", func(t *testing.T) {
		var tip [4]uint16
		if _, err := CopyEncode(tip[:], "Speakers"); err == nil {
			t.Error("expected error for oversized text")
		}
	})

	t.Run("encoding error", func(t *testing.T) {
		var tip [16]uint16
		_, err := CopyEncode(tip[:], "a\x00b")
		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("got %v, want *EncodingError", err)
		}
	})
}

func TestDecodeNil(t *testing.T) {
	if got := Decode(nil); got != "" {
		t.Errorf("Decode(nil) = %q, want empty", got)
	}
}

func TestDecodeSliceStopsAtNUL(t *testing.T) {
	units := []uint16{'a', 'b', 0, 'c', 'd'}
	if got := DecodeSlice(units); got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}
}

func BenchmarkWith(b *testing.B) {
	tests := []struct {
		name  string
		input string
	}{
		{"short", "Speakers"},
		{"medium", strings.Repeat("a", 100)},
		{"long", strings.Repeat("b", 1000)},
	}

	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = With(tt.input, func(p *uint16) error { return nil })
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	units := append(utf16.Encode([]rune(strings.Repeat("x", 100))), 0)
	p := &units[0]
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Decode(p)
	}
}
