package pdb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtang613/pdbview/internal/testutil"
	"github.com/jtang613/pdbview/pkg/pdb/codeview"
)

func TestFileBuild(t *testing.T) {
	f, err := NewFile(bytes.NewReader(testutil.SamplePDB()))
	require.NoError(t, err)
	defer f.Close()

	assert.Nil(t, f.IDs())
	require.NotNil(t, f.Names())
	require.NotNil(t, f.AddressMap())
	assert.Equal(t, "12345678123456789ABCDEF001020304", f.Info().GUIDString())

	info, err := Build(f, Options{BaseAddress: 0x140000000})
	require.NoError(t, err)

	bi := info.BuildInfo
	assert.Equal(t, uuid.MustParse("12345678-1234-5678-9abc-def001020304"), bi.GUID)
	assert.Equal(t, uint32(testutil.SampleTimestamp), bi.Timestamp)
	assert.Equal(t, uint32(1), bi.Age, "DBI age")
	assert.Equal(t, "x64", bi.Machine)
	require.NotNil(t, bi.Compiler)
	assert.Equal(t, "MSVC", bi.Compiler.VersionString)

	require.Len(t, info.Modules, 1)
	mod := info.Modules[0]
	assert.Equal(t, "main.obj", mod.Name)
	assert.Equal(t, testutil.SampleObject, mod.ObjectFile)
	require.Len(t, mod.SourceFiles, 1)
	assert.Equal(t, ChecksumSHA1, mod.SourceFiles[0].ChecksumKind)
	assert.Len(t, mod.SourceFiles[0].Checksum, 20)

	require.Len(t, info.Procedures, 1)
	assert.Equal(t, uint64(0x140001010), info.Procedures[0].Offset)
	require.Len(t, info.Publics, 1)
	assert.Equal(t, uint64(0x140001010), info.Publics[0].Offset)
	assert.Equal(t, "main.obj", info.Publics[0].Module)

	require.Len(t, info.Globals, 1)
	g := info.Globals[0]
	assert.Equal(t, uint64(0x140003008), g.Offset)
	node, ok := g.Type.(*codeview.Class)
	require.True(t, ok)
	assert.Equal(t, "Node", node.Name)
	assert.Same(t, node, node.Fields[0].Type.(*codeview.Pointer).Pointee)
}

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.pdb")
	require.NoError(t, os.WriteFile(path, testutil.SamplePDB(), 0o644))

	info, err := Parse(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, info.BuildInfo.Path)
	assert.Equal(t, uint64(0x1010), info.Procedures[0].Offset)
	assert.Equal(t, 4, info.Types.Len())

	_, err = Parse(filepath.Join(t.TempDir(), "missing.pdb"), Options{})
	assert.Error(t, err)
}

func TestNewFileRejectsGarbage(t *testing.T) {
	_, err := NewFile(bytes.NewReader(bytes.Repeat([]byte{0xcc}, 4096)))
	assert.Error(t, err)
}
