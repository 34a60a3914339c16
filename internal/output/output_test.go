package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jtang613/pdbview/internal/config"
	"github.com/jtang613/pdbview/pkg/pdb"
	"github.com/jtang613/pdbview/pkg/pdb/codeview"
)

// sampleInfo describes struct Node { Node* next; int value; } with one
// procedure int walk(Node*) and one global Node g_head.
func sampleInfo() *pdb.AssemblyInfo {
	i32 := &codeview.Primitive{Index: 0x74, Kind: codeview.PrimitiveInt32, Code: 0x74}
	node := &codeview.Class{Index: 0x1003, Kind: codeview.KindStruct, Name: "Node", Size: 16}
	ptr := &codeview.Pointer{Index: 0x1001, Target: 0x1003, Pointee: node, Kind: codeview.PointerNear64, Size: 8}
	node.Fields = []codeview.Field{
		{Name: "next", Type: ptr, Access: codeview.AccessPublic},
		{Name: "value", Offset: 8, Type: i32, Access: codeview.AccessPublic},
	}
	fn := &codeview.Function{Index: 0x1005, Return: i32, Params: []codeview.TypeNode{ptr}}

	return &pdb.AssemblyInfo{
		BuildInfo: pdb.BuildInfo{
			Path:    "app.pdb",
			GUID:    uuid.MustParse("12345678-1234-5678-9abc-def001020304"),
			Age:     1,
			Machine: "x64",
		},
		Modules: []pdb.Module{{
			Name:        "main.obj",
			ObjectFile:  `C:\obj\main.obj`,
			SourceFiles: []pdb.SourceFile{{Path: `C:\src\main.cpp`, ChecksumKind: pdb.ChecksumMD5, Checksum: []byte{0xde, 0xad}}},
		}},
		Procedures: []pdb.Procedure{{
			Name:      "?walk@@YAHPEAUNode@@@Z",
			Offset:    0x1010,
			Length:    0x20,
			TypeIndex: 0x1005,
			Signature: fn,
			Module:    "main.obj",
		}},
		Publics: []pdb.PublicSymbol{{Name: "walk", Offset: 0x1010, Function: true}},
		Globals: []pdb.GlobalVariable{{Name: "g_head", Offset: 0x3000, TypeIndex: 0x1003, Type: node}},
	}
}

func TestNewDocumentFlattensCycles(t *testing.T) {
	doc := NewDocument(sampleInfo())

	var indices []codeview.TypeIndex
	for _, e := range doc.Types {
		indices = append(indices, e.Index)
	}
	assert.Equal(t, []codeview.TypeIndex{0x74, 0x1001, 0x1003, 0x1005}, indices)

	node, ok := doc.Type(0x1003)
	require.True(t, ok)
	assert.Equal(t, "struct", node.Kind)
	assert.Equal(t, uint64(16), node.Size)
	require.Len(t, node.Members, 2)
	assert.Equal(t, codeview.TypeIndex(0x1001), node.Members[0].Type)
	assert.Equal(t, "Node*", node.Members[0].TypeName)

	ptr, ok := doc.Type(0x1001)
	require.True(t, ok)
	assert.Equal(t, codeview.TypeIndex(0x1003), ptr.Pointee)

	fn, ok := doc.Type(0x1005)
	require.True(t, ok)
	assert.Equal(t, "int (Node*)", fn.Signature)
	assert.Equal(t, codeview.TypeIndex(0x74), fn.Return)
	assert.Equal(t, []codeview.TypeIndex{0x1001}, fn.Params)

	_, ok = doc.Type(0x2000)
	assert.False(t, ok)
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, config.FormatJSON, sampleInfo(), Options{}))

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	for _, key := range []string{"build_info", "modules", "procedures", "publics", "globals", "types"} {
		assert.Contains(t, out, key)
	}
	assert.Contains(t, string(out["build_info"]), `"guid":"12345678-1234-5678-9abc-def001020304"`)
	assert.Contains(t, string(out["modules"]), `"checksum_kind":"md5"`)
	assert.NotContains(t, string(out["procedures"]), "Signature")
}

func TestRenderJSONSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, config.FormatJSON, sampleInfo(), Options{
		Sections: SectionProcedures | SectionGlobals,
		Indent:   true,
	}))

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 2)
	assert.Contains(t, out, "procedures")
	assert.Contains(t, out, "globals")
	assert.Contains(t, buf.String(), "\n  \"globals\"")
}

func TestRenderMsgpack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, config.FormatMsgpack, sampleInfo(), Options{}))

	var out map[string]any
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &out))

	procs, ok := out["procedures"].([]any)
	require.True(t, ok)
	require.Len(t, procs, 1)
	proc, ok := procs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "?walk@@YAHPEAUNode@@@Z", proc["name"])
	assert.NotContains(t, proc, "Signature")
	assert.NotContains(t, proc, "demangled_name", "omitempty applies")

	types, ok := out["types"].([]any)
	require.True(t, ok)
	assert.Len(t, types, 4)
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, config.FormatPlain, sampleInfo(), Options{}))
	out := buf.String()

	assert.NotContains(t, out, "\x1b[")
	for _, want := range []string{
		"Build info",
		"12345678-1234-5678-9abc-def001020304",
		"Modules (1)",
		"md5:dead",
		"Procedures (1)",
		"0x0000000000001010",
		"int (Node*)",
		"Public symbols (1)",
		"Globals (1)",
		"Types (1)",
		"struct Node",
		"Node* next",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Labels", "empty label list is omitted")
}

func TestRenderPlainColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, config.FormatPlain, sampleInfo(), Options{
		Sections: SectionInfo,
		Color:    true,
	}))
	assert.True(t, strings.HasPrefix(buf.String(), "\x1b["))
	assert.NotContains(t, buf.String(), "Procedures")
}

func TestRenderType(t *testing.T) {
	doc := NewDocument(sampleInfo())
	node, _ := doc.Type(0x1003)

	var buf bytes.Buffer
	require.NoError(t, RenderType(&buf, config.FormatJSON, node, Options{}))
	var e TypeEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	assert.Equal(t, node, e)

	buf.Reset()
	require.NoError(t, RenderType(&buf, config.FormatPlain, node, Options{}))
	assert.Contains(t, buf.String(), "0x1003")
	assert.Contains(t, buf.String(), "int value")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, config.Format("xml"), sampleInfo(), Options{}))
}

func TestParseSections(t *testing.T) {
	s, err := ParseSections(nil)
	require.NoError(t, err)
	assert.Equal(t, AllSections, s)

	s, err = ParseSections([]string{"functions", " Types "})
	require.NoError(t, err)
	assert.Equal(t, SectionProcedures|SectionTypes, s)
	assert.True(t, s.Has(SectionTypes))
	assert.False(t, s.Has(SectionInfo))

	_, err = ParseSections([]string{"bogus"})
	assert.Error(t, err)
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, ColorEnabled(config.ColorAlways, nil))
	assert.False(t, ColorEnabled(config.ColorNever, nil))
	assert.False(t, ColorEnabled(config.ColorAuto, nil))
}
