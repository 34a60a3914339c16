// Package testutil builds little-endian PDB and CodeView byte images for
// tests. It depends on nothing else in this module so that any package's
// internal tests can use it.
package testutil

import (
	"encoding/binary"
)

// U8 encodes a byte.
func U8(v uint8) []byte { return []byte{v} }

// U16 encodes a little-endian uint16.
func U16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

// U32 encodes a little-endian uint32.
func U32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// I32 encodes a little-endian int32.
func I32(v int32) []byte { return U32(uint32(v)) }

// Str encodes a NUL-terminated string.
func Str(s string) []byte {
	return append([]byte(s), 0)
}

// Cat concatenates byte slices.
func Cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Numeric encodes a CodeView numeric leaf, choosing the smallest encoding.
func Numeric(v int64) []byte {
	switch {
	case v >= 0 && v < 0x8000:
		return U16(uint16(v))
	case v >= -128 && v < 0:
		return Cat(U16(0x8000), []byte{byte(int8(v))})
	case v >= -32768 && v < 0:
		return Cat(U16(0x8001), U16(uint16(int16(v))))
	case v >= 0 && v <= 0xffff:
		return Cat(U16(0x8002), U16(uint16(v)))
	case v >= -1<<31 && v < 0:
		return Cat(U16(0x8003), U32(uint32(int32(v))))
	case v >= 0 && v <= 0xffffffff:
		return Cat(U16(0x8004), U32(uint32(v)))
	default:
		return Cat(U16(0x8009), binary.LittleEndian.AppendUint64(nil, uint64(v)))
	}
}

// Pad4 appends LF_PAD bytes until len(b) is a multiple of four.
func Pad4(b []byte) []byte {
	for rem := 4 - len(b)%4; rem > 0 && rem < 4; rem-- {
		b = append(b, byte(0xf0|rem))
	}
	return b
}
