// Package utf16le converts UTF-16LE pak names to UTF-8.
//
// Each 16-bit code unit is encoded on its own; surrogate pairs are not
// combined, so a supplementary-plane character becomes two 3-byte sequences.
// Existing extracted trees depend on this exact output.
package utf16le

import "errors"

var (
	// ErrIncompleteSequence is returned for input with an odd number of bytes.
	ErrIncompleteSequence = errors.New("utf16le: incomplete UTF-16 sequence")

	// ErrShortBuffer is returned when dst cannot hold the converted bytes.
	ErrShortBuffer = errors.New("utf16le: output buffer too small")
)

// MaxLen returns the largest UTF-8 length n bytes of UTF-16LE can produce.
func MaxLen(n int) int {
	return n / 2 * 3
}

// Convert writes the UTF-8 form of src into dst and returns the number of
// bytes written.
func Convert(dst, src []byte) (int, error) {
	if len(src)%2 != 0 {
		return 0, ErrIncompleteSequence
	}

	j := 0
	for i := 0; i < len(src); i += 2 {
		u := uint32(src[i]) | uint32(src[i+1])<<8
		switch {
		case u <= 0x7F:
			if j >= len(dst) {
				return j, ErrShortBuffer
			}
			dst[j] = byte(u)
			j++
		case u <= 0x7FF:
			if j+1 >= len(dst) {
				return j, ErrShortBuffer
			}
			dst[j] = 0xC0 | byte(u>>6)
			dst[j+1] = 0x80 | byte(u&0x3F)
			j += 2
		default:
			if j+2 >= len(dst) {
				return j, ErrShortBuffer
			}
			dst[j] = 0xE0 | byte(u>>12)
			dst[j+1] = 0x80 | byte((u>>6)&0x3F)
			dst[j+2] = 0x80 | byte(u&0x3F)
			j += 3
		}
	}
	return j, nil
}

// ToUTF8 returns the UTF-8 form of src, truncated to the bytes written.
func ToUTF8(src []byte) ([]byte, error) {
	dst := make([]byte, MaxLen(len(src)))
	n, err := Convert(dst, src)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}
