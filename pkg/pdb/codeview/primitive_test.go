package codeview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPrimitive(t *testing.T) {
	for kind, info := range primitives {
		got, err := LookupPrimitive(uint32(kind))
		require.NoError(t, err, "code 0x%02x", uint8(kind))
		assert.Equal(t, kind, got)
		assert.Equal(t, info.name, got.Name())
	}

	tests := []struct {
		code uint32
		name string
		size uint64
	}{
		{0x03, "void", 0},
		{0x10, "signed char", 1},
		{0x30, "bool", 1},
		{0x41, "double", 8},
		{0x70, "char", 1},
		{0x71, "wchar_t", 2},
		{0x74, "int", 4},
		{0x77, "unsigned __int64", 8},
		{0x7b, "char32_t", 4},
	}
	for _, tt := range tests {
		k, err := LookupPrimitive(tt.code)
		require.NoError(t, err)
		assert.Equal(t, tt.name, k.Name())
		assert.Equal(t, tt.size, k.Size())
	}
}

func TestLookupPrimitiveUnknown(t *testing.T) {
	for _, code := range []uint32{0x09, 0x15, 0x25, 0x47, 0x6a, 0x7d, 0xef, 0x1ff} {
		k, err := LookupPrimitive(code)
		assert.ErrorIs(t, err, ErrUnknownPrimitive, "code 0x%x", code)
		assert.Equal(t, PrimitiveUnknown, k)
		assert.Zero(t, k.Size())
	}
}
