package codeview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtang613/pdbview/internal/testutil"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

func TestFunctionType(t *testing.T) {
	ids := newSource(t,
		testutil.FuncID(0, 0x1234, "main"),
		testutil.MFuncID(0x1010, 0x1235, "run"),
		testutil.StringID(0, "x"),
	)

	typ, err := FunctionType(ids, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, TypeIndex(0x1234), typ)

	typ, err = FunctionType(ids, 0x1001)
	require.NoError(t, err)
	assert.Equal(t, TypeIndex(0x1235), typ)

	_, err = FunctionType(ids, 0x1002)
	assert.ErrorIs(t, err, ErrMalformedType)
	_, err = FunctionType(ids, 0x1003)
	assert.ErrorIs(t, err, ErrUnresolvedIndex)
	_, err = FunctionType(nil, 0x1000)
	assert.ErrorIs(t, err, ErrUnresolvedIndex)
}

func TestBuildInfoArgs(t *testing.T) {
	substrings := testutil.Record{Kind: streams.LF_SUBSTR_LIST, Payload: testutil.Cat(testutil.U32(2), testutil.U32(0x1000), testutil.U32(0x1001))}
	ids := newSource(t,
		testutil.StringID(0, "-c -Zi "),                  // 0x1000
		testutil.StringID(0, "-O2 "),                     // 0x1001
		substrings,                                       // 0x1002
		testutil.StringID(0x1002, "-MD"),                 // 0x1003
		testutil.StringID(0, `C:\src`),                   // 0x1004
		testutil.StringID(0, "cl.exe"),                   // 0x1005
		testutil.BuildInfo(0x1004, 0x1005, 0, 0, 0x1003), // 0x1006
	)

	args, err := BuildInfoArgs(ids, 0x1006)
	require.NoError(t, err)
	require.Len(t, args, 5)
	assert.Equal(t, `C:\src`, args[BuildInfoCurrentDirectory])
	assert.Equal(t, "cl.exe", args[BuildInfoBuildTool])
	assert.Empty(t, args[BuildInfoSourceFile])
	assert.Equal(t, "-c -Zi -O2 -MD", args[BuildInfoCommandLine])

	_, err = BuildInfoArgs(ids, 0x1005)
	assert.ErrorIs(t, err, ErrMalformedType)
}
