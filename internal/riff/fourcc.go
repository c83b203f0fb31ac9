package riff

import (
	"encoding/binary"
)

// FourCC is the 4-byte identifier that tags every chunk.
type FourCC [4]byte

// Well-known chunk identifiers
var (
	IDRIFF = FourCC{'R', 'I', 'F', 'F'}
	IDList = FourCC{'L', 'I', 'S', 'T'}
)

// NewFourCC builds a FourCC from the first four bytes of s.
// Shorter strings are padded with spaces, so "fmt" and "fmt " are the same code.
func NewFourCC(s string) FourCC {
	f := FourCC{' ', ' ', ' ', ' '}
	copy(f[:], s)
	return f
}

// Equals reports whether f matches the code built from s.
func (f FourCC) Equals(s string) bool {
	return f == NewFourCC(s)
}

// IsList reports whether chunks with this id carry a sub-type and nested chunks.
func (f FourCC) IsList() bool {
	return f == IDRIFF || f == IDList
}

func (f FourCC) String() string {
	return string(f[:])
}

// Little-endian field access. All on-disk integers go through these helpers
// so host byte order never leaks into the container format.

// Uint16 decodes a little-endian 16-bit value.
func Uint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// Uint32 decodes a little-endian 32-bit value.
func Uint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// PutUint16 encodes v as little-endian into b.
func PutUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// PutUint32 encodes v as little-endian into b.
func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
