package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtang613/pdbview/internal/testutil"
	"github.com/jtang613/pdbview/pkg/pdb"
)

func samplePath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, testutil.SamplePDB(), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	cmd := a.command()
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type jsonDoc struct {
	BuildInfo struct {
		Path    string `json:"path"`
		Machine string `json:"machine"`
	} `json:"build_info"`
	Procedures []struct {
		Name   string `json:"name"`
		Offset uint64 `json:"offset"`
	} `json:"procedures"`
	Types []struct {
		Index uint32 `json:"index"`
		Name  string `json:"name"`
	} `json:"types"`
}

func TestRunPlain(t *testing.T) {
	out, _, err := execute(t, "--color", "never", samplePath(t, "app.pdb"))
	require.NoError(t, err)

	for _, want := range []string{"Build info", "x64", "Modules (1)", "Procedures (1)", "0x0000000000001010", "main", "g_list", "struct Node"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "==>")
}

func TestRunJSONWithBase(t *testing.T) {
	path := samplePath(t, "app.pdb")
	out, _, err := execute(t, "-f", "json", "-b", "0x140000000", path)
	require.NoError(t, err)

	var doc jsonDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, path, doc.BuildInfo.Path)
	require.Len(t, doc.Procedures, 1)
	assert.Equal(t, uint64(0x140001010), doc.Procedures[0].Offset)

	out, _, err = execute(t, "-f", "json", "-b", "0xfffff80000000000", path)
	require.NoError(t, err)
	doc = jsonDoc{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Procedures, 1)
	assert.Equal(t, uint64(0xfffff80000001010), doc.Procedures[0].Offset, "kernel-space base")
}

func TestRunMultipleFilesKeepOrder(t *testing.T) {
	paths := []string{samplePath(t, "a.pdb"), samplePath(t, "b.pdb"), samplePath(t, "c.pdb")}
	out, _, err := execute(t, append([]string{"-f", "json", "-j", "2", "--only", "info"}, paths...)...)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader([]byte(out)))
	for _, want := range paths {
		var doc jsonDoc
		require.NoError(t, dec.Decode(&doc))
		assert.Equal(t, want, doc.BuildInfo.Path)
		assert.Empty(t, doc.Procedures, "only the info section is printed")
	}
	var extra jsonDoc
	assert.ErrorIs(t, dec.Decode(&extra), io.EOF)
}

func TestRunPlainMultipleFilesHeaders(t *testing.T) {
	a, b := samplePath(t, "a.pdb"), samplePath(t, "b.pdb")
	out, _, err := execute(t, "--only", "procedures", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("==> %s <==", a))
	assert.Contains(t, out, fmt.Sprintf("==> %s <==", b))
	assert.Less(t, bytes.Index([]byte(out), []byte(a)), bytes.Index([]byte(out), []byte(b)))
}

func TestRunType(t *testing.T) {
	path := samplePath(t, "app.pdb")

	out, _, err := execute(t, "-f", "json", "--type", "0x1003", path)
	require.NoError(t, err)
	var entry struct {
		Index uint32 `json:"index"`
		Kind  string `json:"kind"`
		Name  string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, uint32(0x1003), entry.Index)
	assert.Equal(t, "struct", entry.Kind)
	assert.Equal(t, "Node", entry.Name)

	_, _, err = execute(t, "--type", "0x9999", path)
	assert.ErrorContains(t, err, "not found")

	_, _, err = execute(t, "--type", "node", path)
	assert.Error(t, err)
}

func TestRunConfigPrecedence(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "pdbview.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format: msgpack\nbase_address: \"0x1000\"\n"), 0o600))
	t.Setenv("PDBVIEW_FORMAT", "json")

	out, _, err := execute(t, "--config", cfgPath, samplePath(t, "app.pdb"))
	require.NoError(t, err)
	var doc jsonDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc), "environment beats the file")
	assert.Equal(t, uint64(0x2010), doc.Procedures[0].Offset, "base address from the file")

	out, _, err = execute(t, "--config", cfgPath, "-f", "plain", "--color", "never", samplePath(t, "app.pdb"))
	require.NoError(t, err)
	assert.Contains(t, out, "Procedures (1)", "flags beat the environment")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no files", nil},
		{"bad format", []string{"-f", "xml", "x.pdb"}},
		{"bad base", []string{"-b", "zz", "x.pdb"}},
		{"bad color", []string{"--color", "rainbow", "x.pdb"}},
		{"bad section", []string{"--only", "bogus", "x.pdb"}},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.pdb")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRunCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdb")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xcc}, 4096), 0o600))

	_, _, err := execute(t, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestPrintError(t *testing.T) {
	err := fmt.Errorf("app.pdb: %w", fmt.Errorf("procedure main: %w", pdb.ErrUnresolvedIndex))

	var buf bytes.Buffer
	printError(&buf, err, false)
	assert.Equal(t, "Error: "+err.Error()+"\n", buf.String())

	buf.Reset()
	printError(&buf, err, true)
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "caused by: procedure main")
	assert.Contains(t, string(lines[2]), "caused by: "+pdb.ErrUnresolvedIndex.Error())
	assert.True(t, errors.Is(err, pdb.ErrUnresolvedIndex))
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pdbview "+version)
	assert.Contains(t, out, "go: ")
}
