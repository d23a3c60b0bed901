package wstr

import (
	"unicode/utf16"
	"unsafe"
)

// Foreign strings are NUL-terminated with no length, so decoding has to
// scan. Cap the scan so a missing terminator in corrupt memory cannot walk
// the whole address space; Windows device IDs and property strings are tiny.
const maxDecodeLen = 1 << 20

// Decode converts a foreign null-terminated UTF-16 string to a Go string,
// copying the data. The pointer must remain valid for the duration of the
// call; a nil pointer decodes to "".
func Decode(p *uint16) string {
	if p == nil {
		return ""
	}
	n := 0
	for ptr := unsafe.Pointer(p); *(*uint16)(ptr) != 0; ptr = unsafe.Add(ptr, unsafe.Sizeof(uint16(0))) {
		n++
		if n >= maxDecodeLen {
			break
		}
	}
	return string(utf16.Decode(unsafe.Slice(p, n)))
}

// DecodeSlice converts UTF-16 units to a Go string, stopping at the first
// NUL if one is present.
func DecodeSlice(s []uint16) string {
	for i, u := range s {
		if u == 0 {
			s = s[:i]
			break
		}
	}
	return string(utf16.Decode(s))
}
