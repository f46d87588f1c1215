// Package xorkey holds the XOR keys that obfuscate pak trailers, indexes and payloads.
//
// Every transform is its own inverse.
package xorkey

const (
	// Stream is applied to every byte of an encrypted index block or payload.
	Stream byte = 0x79

	// EncryptedFlag is applied to the trailer's encrypted byte.
	EncryptedFlag byte = 0x6C

	// IndexOffset is applied to the trailer's index offset in both dialects.
	IndexOffset uint64 = 0xD74AF37FAA6B020D

	// IndexSize is applied to the trailer's index size in avatar paks.
	IndexSize uint64 = 0x8924B0E3298B7069
)

// Hash is applied to the trailer's 20-byte hash in avatar paks.
var Hash = [20]byte{
	0x9B, 0x31, 0x24, 0x61, 0xCB, 0xD3, 0xF5, 0x18, 0x20, 0xA1,
	0x1B, 0xFB, 0xFD, 0x40, 0xB6, 0x00, 0x1E, 0x53, 0x5C, 0x24,
}

// Bytes XORs every byte of b with key in place.
func Bytes(b []byte, key byte) {
	for i := range b {
		b[i] ^= key
	}
}

// HashBytes XORs h with the avatar hash key in place.
func HashBytes(h *[20]byte) {
	for i := range h {
		h[i] ^= Hash[i]
	}
}
