// Package wstr converts Go strings to null-terminated UTF-16 buffers for
// Win32 and COM calls without exposing the buffer's lifetime to the caller.
//
// The scoped functions (With, WithResult, WithMut, WithBuffer) encode the
// text, hand the operation a pointer that is valid for exactly the duration
// of the operation, and release the buffer only after the operation returns.
// The pointer must not be stored, returned, or handed to anything that
// retains it past the operation; any foreign call made synchronously inside
// the operation sees a valid pointer for its entire execution.
//
// Encoding is strict: text containing an embedded NUL or bytes that are not
// valid UTF-8 fails with *EncodingError before the operation is invoked.
// There is no replacement-character substitution, so decoding an accepted
// buffer always reproduces the input exactly.
package wstr

import (
	"fmt"
	"runtime"
	"unicode/utf16"
	"unicode/utf8"
)

// EncodingError reports text that cannot be represented as a null-terminated
// UTF-16 string. Offset is the byte position of the offending input.
type EncodingError struct {
	Offset int
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("wstr: cannot encode text at byte %d: %s", e.Offset, e.Reason)
}

// Every scoped buffer passes through these hooks at the start and end of its
// life so tests can verify that each conversion releases its buffer exactly
// once, after the operation returns. They are not safe to swap while
// conversions are in flight.
var (
	acquireBuffer = func(buf []uint16) {}
	releaseBuffer = func(buf []uint16) {}
)

func release(buf []uint16) {
	releaseBuffer(buf)
	// The pointer handed to the operation is derived from buf without the
	// garbage collector's knowledge. Keep the backing array reachable until
	// here, which is after the operation has returned.
	runtime.KeepAlive(buf)
}

// encode produces the UTF-16 units of s followed by a single terminating
// zero unit.
func encode(s string) ([]uint16, error) {
	// A rune's UTF-16 encoding never takes more units than its UTF-8
	// encoding takes bytes, so this capacity always suffices.
	buf := make([]uint16, 0, len(s)+1)
	for i, r := range s {
		if r == 0 {
			return nil, &EncodingError{Offset: i, Reason: "embedded NUL"}
		}
		if r == utf8.RuneError {
			// Ranging over a string yields RuneError both for a literal
			// U+FFFD (which decodes with size 3) and for each invalid byte
			// (size 1). Only the latter is an error.
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return nil, &EncodingError{Offset: i, Reason: "invalid UTF-8"}
			}
		}
		buf = utf16.AppendRune(buf, r)
	}
	return append(buf, 0), nil
}

// With encodes text as a null-terminated UTF-16 buffer and invokes op
// exactly once with a pointer to its first unit. The pointer is valid for
// the duration of op and no longer; the buffer is released after op returns
// on every path, including error returns and panics. op's error is returned
// unchanged.
func With(text string, op func(p *uint16) error) error {
	buf, err := encode(text)
	if err != nil {
		return err
	}
	acquireBuffer(buf)
	defer release(buf)
	return op(&buf[0])
}

// WithResult is With for operations that produce a value alongside their
// error. The value and error are passed through untouched.
func WithResult[R any](text string, op func(p *uint16) (R, error)) (R, error) {
	buf, err := encode(text)
	if err != nil {
		var zero R
		return zero, err
	}
	acquireBuffer(buf)
	defer release(buf)
	return op(&buf[0])
}

// WithMut is With for foreign calls whose prototype takes a mutable wide
// string (PWSTR) and may rewrite units in place. The contents are discarded
// when op returns; use WithBuffer to read them back.
func WithMut(text string, op func(p *uint16) error) error {
	return With(text, op)
}

// WithBuffer invokes op with a writable buffer of capacity units (at least
// enough for text and its terminator), seeded with text. After op returns
// successfully the buffer's contents up to the first NUL are decoded and
// returned as a string, since the buffer itself does not survive the call.
// op additionally receives the buffer's capacity in units.
func WithBuffer(text string, capacity int, op func(p *uint16, n uint32) error) (string, error) {
	encoded, err := encode(text)
	if err != nil {
		return "", err
	}
	if capacity < len(encoded) {
		capacity = len(encoded)
	}
	buf := make([]uint16, capacity)
	copy(buf, encoded)
	acquireBuffer(buf)
	defer release(buf)
	if err := op(&buf[0], uint32(capacity)); err != nil {
		return "", err
	}
	return DecodeSlice(buf), nil
}

// CopyEncode encodes text with a terminating NUL into dst, for fixed-width
// string fields in Win32 structs (e.g. NOTIFYICONDATAW.szTip). Unused
// trailing units are zeroed. Returns the number of units written excluding
// the terminator. Fails if the encoded text does not fit.
func CopyEncode(dst []uint16, text string) (int, error) {
	encoded, err := encode(text)
	if err != nil {
		return 0, err
	}
	if len(encoded) > len(dst) {
		return 0, fmt.Errorf("wstr: encoded text needs %d units, destination holds %d", len(encoded), len(dst))
	}
	n := copy(dst, encoded)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return n - 1, nil
}
