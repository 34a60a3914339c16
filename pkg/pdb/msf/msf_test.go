package msf

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtang613/pdbview/internal/testutil"
)

func TestNewReaderRoundTrip(t *testing.T) {
	big := bytes.Repeat([]byte("0123456789abcdef"), 100) // spans several 512-byte blocks
	img := testutil.MSFImage(512, []byte("old directory"), []byte("info"), nil, big, []byte{})

	m, err := NewReader(bytes.NewReader(img))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, uint32(512), m.BlockSize())
	require.Equal(t, 5, m.NumStreams())

	tests := []struct {
		index int
		want  []byte
	}{
		{0, []byte("old directory")},
		{1, []byte("info")},
		{2, []byte{}},
		{3, big},
		{4, []byte{}},
	}
	for _, tt := range tests {
		got, err := m.ReadStream(tt.index)
		require.NoError(t, err, "stream %d", tt.index)
		assert.Equal(t, tt.want, got, "stream %d", tt.index)
	}

	_, err = m.ReadStream(5)
	assert.Error(t, err)
}

func TestStreamReadAtAcrossBlocks(t *testing.T) {
	data := make([]byte, 1500)
	for i := range data {
		data[i] = byte(i % 251)
	}
	m, err := NewReader(bytes.NewReader(testutil.MSFImage(512, data)))
	require.NoError(t, err)

	s, err := m.Stream(0)
	require.NoError(t, err)
	assert.Len(t, s.Blocks(), 3)

	buf := make([]byte, 100)
	n, err := s.ReadAt(buf, 480)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[480:580], buf)

	n, err = s.ReadAt(buf, 1450)
	assert.Equal(t, 50, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, data[1450:], buf[:50])
}

func TestOpenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pdb")
	require.NoError(t, os.WriteFile(path, testutil.MSFImage(1024, []byte("hello")), 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	got, err := m.ReadStream(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestReadSuperBlockRejects(t *testing.T) {
	valid := testutil.MSFImage(512, []byte("x"))

	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"bad magic", func(b []byte) { b[0] = 'X' }},
		{"bad block size", func(b []byte) { b[32] = 0x01 }},
		{"bad free block map", func(b []byte) { b[36] = 7 }},
		{"block map beyond file", func(b []byte) { b[52], b[53] = 0xff, 0xff }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := bytes.Clone(valid)
			tt.mutate(img)
			_, err := NewReader(bytes.NewReader(img))
			assert.Error(t, err)
		})
	}

	_, err := NewReader(bytes.NewReader(valid[:20]))
	assert.Error(t, err)
}
