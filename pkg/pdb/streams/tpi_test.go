package streams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtang613/pdbview/internal/testutil"
	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
)

func TestReadTPIStream(t *testing.T) {
	img := testutil.TPIImage(0x1000,
		testutil.Ptr64(0x1001),
		testutil.Struct(0, testutil.PropForwardRef, 0, 0, "Node", ""),
		testutil.ArgList(0x74, 0x1000),
	)

	tpi, err := ReadTPIStream(img)
	require.NoError(t, err)

	assert.Equal(t, TypeIndex(0x1000), tpi.IndexBegin())
	assert.Equal(t, TypeIndex(0x1003), tpi.IndexEnd())
	assert.Equal(t, 3, tpi.NumTypes())

	rec := tpi.TypeRecord(0x1001)
	require.NotNil(t, rec)
	assert.Equal(t, uint16(LF_STRUCTURE), rec.Kind)
	assert.Equal(t, TypeIndex(0x1001), rec.Index)

	assert.Nil(t, tpi.TypeRecord(0x1003))
	assert.Nil(t, tpi.TypeRecord(0x0074))
}

func TestReadTPIStreamRejectsMalformed(t *testing.T) {
	good := testutil.TPIImage(0x1000, testutil.Ptr64(0x74), testutil.Ptr64(0x75))

	t.Run("record overruns buffer", func(t *testing.T) {
		img := append([]byte(nil), good...)
		img[56] = 0xff // first record length
		_, err := ReadTPIStream(img)
		assert.ErrorIs(t, err, pdberr.ErrMalformedType)
	})

	t.Run("count mismatch", func(t *testing.T) {
		img := append([]byte(nil), good...)
		img[12] = 0x05 // TypeIndexEnd = 0x1005
		_, err := ReadTPIStream(img)
		assert.ErrorIs(t, err, pdberr.ErrMalformedType)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := ReadTPIStream(good[:20])
		assert.Error(t, err)
	})

	t.Run("bad version", func(t *testing.T) {
		img := append([]byte(nil), good...)
		img[0] = 0
		_, err := ReadTPIStream(img)
		assert.Error(t, err)
	})
}

func TestTPIStreamMerge(t *testing.T) {
	base, err := SplitTypeRecords(testutil.Records(testutil.Ptr64(0x74)), 0x1000)
	require.NoError(t, err)

	tpi, err := NewTPIStream(0x1000, base)
	require.NoError(t, err)

	// Identical re-delivery is ignored.
	require.NoError(t, tpi.Merge(base))
	assert.Equal(t, 1, tpi.NumTypes())

	// New records extend the stream.
	more := []TypeRecord{{Index: 0x1001, Kind: LF_MODIFIER, Data: testutil.Modifier(0x74, 1).Payload}}
	require.NoError(t, tpi.Merge(more))
	assert.Equal(t, TypeIndex(0x1002), tpi.IndexEnd())

	// A different record under a known index is a conflict.
	conflict := []TypeRecord{{Index: 0x1000, Kind: LF_POINTER, Data: testutil.Ptr64(0x75).Payload}}
	err = tpi.Merge(conflict)
	require.ErrorIs(t, err, pdberr.ErrMalformedType)
	assert.Equal(t, uint16(LF_POINTER), tpi.TypeRecord(0x1000).Kind)
	assert.Equal(t, testutil.Ptr64(0x74).Payload, tpi.TypeRecord(0x1000).Data)

	// Same payload under another kind is also a conflict.
	err = tpi.Merge([]TypeRecord{{Index: 0x1001, Kind: LF_POINTER, Data: testutil.Modifier(0x74, 1).Payload}})
	assert.ErrorIs(t, err, pdberr.ErrMalformedType)

	err = tpi.Merge([]TypeRecord{{Index: 0x0fff, Kind: LF_POINTER}})
	assert.ErrorIs(t, err, pdberr.ErrMalformedType)

	// A batch with a conflict late in it adds nothing.
	batch := []TypeRecord{
		{Index: 0x1002, Kind: LF_POINTER, Data: testutil.Ptr64(0x1001).Payload},
		{Index: 0x1000, Kind: LF_POINTER, Data: testutil.Ptr64(0x75).Payload},
	}
	err = tpi.Merge(batch)
	require.ErrorIs(t, err, pdberr.ErrMalformedType)
	assert.Nil(t, tpi.TypeRecord(0x1002))
	assert.Equal(t, 2, tpi.NumTypes())
	assert.Equal(t, TypeIndex(0x1002), tpi.IndexEnd())

	// Two different records for one new index in the same batch conflict.
	err = tpi.Merge([]TypeRecord{
		{Index: 0x1003, Kind: LF_POINTER, Data: testutil.Ptr64(0x74).Payload},
		{Index: 0x1003, Kind: LF_POINTER, Data: testutil.Ptr64(0x75).Payload},
	})
	require.ErrorIs(t, err, pdberr.ErrMalformedType)
	assert.Nil(t, tpi.TypeRecord(0x1003))
}

func TestSameRecord(t *testing.T) {
	a := &TypeRecord{Index: 0x1000, Kind: LF_POINTER, Data: testutil.Ptr64(0x74).Payload}
	b := &TypeRecord{Index: 0x1000, Kind: LF_POINTER, Data: testutil.Ptr64(0x74).Payload}
	assert.True(t, sameRecord(a, b))

	b.Data = testutil.Ptr64(0x75).Payload
	assert.False(t, sameRecord(a, b))

	b = &TypeRecord{Index: 0x1000, Kind: LF_MODIFIER, Data: a.Data}
	assert.False(t, sameRecord(a, b))
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name     string
		value    int64
		consumed int
	}{
		{"immediate", 0x1234, 2},
		{"char", -5, 3},
		{"short", -300, 4},
		{"ushort", 0x9000, 4},
		{"long", -100000, 6},
		{"ulong", 0x80000000, 6},
		{"quad", -1 << 40, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, n := ParseNumeric(testutil.Numeric(tt.value))
			assert.Equal(t, tt.consumed, n)
			assert.Equal(t, tt.value, int64(v))
		})
	}

	_, n := ParseNumeric([]byte{0x04, 0x80, 0x01})
	assert.Zero(t, n, "truncated ulong")
	_, n = ParseNumeric([]byte{0x7f, 0x80})
	assert.Zero(t, n, "unsupported encoding")
}

func TestIsTypeLeaf(t *testing.T) {
	assert.True(t, IsTypeLeaf(LF_STRUCTURE))
	assert.True(t, IsTypeLeaf(LF_POINTER))
	assert.False(t, IsTypeLeaf(LF_FIELDLIST))
	assert.False(t, IsTypeLeaf(LF_ARGLIST))
	assert.Equal(t, "LF_ONEMETHOD", LeafKindName(LF_ONEMETHOD))
	assert.Equal(t, "LF_0x1234", LeafKindName(0x1234))
}
