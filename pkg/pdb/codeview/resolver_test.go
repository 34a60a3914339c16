package codeview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtang613/pdbview/internal/testutil"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

const (
	tInt32  = 0x74
	tUInt32 = 0x75
	tVoid   = 0x03
	tUQuad  = 0x23
)

func newSource(t *testing.T, recs ...testutil.Record) *streams.TPIStream {
	t.Helper()
	tpi, err := streams.ReadTPIStream(testutil.TPIImage(0x1000, recs...))
	require.NoError(t, err)
	return tpi
}

func TestResolveSelfReferentialStruct(t *testing.T) {
	src := newSource(t,
		testutil.Struct(0, testutil.PropForwardRef, 0, 0, "Node", ""), // 0x1000
		testutil.Ptr64(0x1000),                                        // 0x1001
		testutil.FieldList(                                            // 0x1002
			testutil.Member(testutil.AccessPublic, 0x1001, 0, "next"),
			testutil.Member(testutil.AccessPublic, tInt32, 8, "value"),
		),
		testutil.Struct(2, 0, 0x1002, 16, "Node", ""), // 0x1003
	)
	r := NewTypeResolver(src)

	node, err := r.Resolve(0x1003)
	require.NoError(t, err)

	node2, err := r.Resolve(0x1003)
	require.NoError(t, err)
	assert.Same(t, node, node2)

	cls, ok := node.(*Class)
	require.True(t, ok)
	assert.Equal(t, "Node", cls.Name)
	assert.Equal(t, KindStruct, cls.Kind)
	assert.Equal(t, uint64(16), cls.Size)
	assert.False(t, cls.Forward)
	require.Len(t, cls.Fields, 2)

	next := cls.Fields[0]
	assert.Equal(t, "next", next.Name)
	ptr, ok := next.Type.(*Pointer)
	require.True(t, ok)
	assert.Same(t, cls, ptr.Pointee, "next points back at the Node returned to the caller")
	assert.Equal(t, PointerNear64, ptr.Kind)
	assert.Equal(t, uint8(8), ptr.Size)

	value := cls.Fields[1]
	assert.Equal(t, uint64(8), value.Offset)
	prim, ok := value.Type.(*Primitive)
	require.True(t, ok)
	assert.Equal(t, PrimitiveInt32, prim.Kind)

	// The forward declaration resolves to the definition node.
	fwd, err := r.Resolve(0x1000)
	require.NoError(t, err)
	assert.Same(t, node, fwd)
}

func TestResolveMutualRecursion(t *testing.T) {
	src := newSource(t,
		testutil.Ptr64(0x1003),                                                     // 0x1000 B*
		testutil.FieldList(testutil.Member(testutil.AccessPublic, 0x1000, 0, "b")), // 0x1001
		testutil.Struct(1, 0, 0x1001, 8, "A", ""),                                  // 0x1002
		testutil.Struct(1, 0, 0x1005, 8, "B", ""),                                  // 0x1003
		testutil.Ptr64(0x1002),                                                     // 0x1004 A*
		testutil.FieldList(testutil.Member(testutil.AccessPublic, 0x1004, 0, "a")), // 0x1005
	)
	r := NewTypeResolver(src)

	a, err := r.Resolve(0x1002)
	require.NoError(t, err)
	b, err := r.Resolve(0x1003)
	require.NoError(t, err)

	aCls := a.(*Class)
	bCls := b.(*Class)
	assert.Same(t, bCls, aCls.Fields[0].Type.(*Pointer).Pointee)
	assert.Same(t, aCls, bCls.Fields[0].Type.(*Pointer).Pointee)
}

func TestResolveLongPointerChain(t *testing.T) {
	const n = 5000
	recs := make([]testutil.Record, 0, n)
	for i := 0; i < n-1; i++ {
		recs = append(recs, testutil.Ptr64(uint32(0x1000+i+1)))
	}
	recs = append(recs, testutil.Ptr64(tInt32))
	r := NewTypeResolver(newSource(t, recs...))

	node, err := r.Resolve(0x1000)
	require.NoError(t, err)

	depth := 0
	for {
		p, ok := node.(*Pointer)
		if !ok {
			break
		}
		require.NotNil(t, p.Pointee)
		node = p.Pointee
		depth++
	}
	assert.Equal(t, n, depth)
	assert.Equal(t, PrimitiveInt32, node.(*Primitive).Kind)
}

func TestResolveSimpleIndices(t *testing.T) {
	r := NewTypeResolver(newSource(t))

	a, err := r.Resolve(tInt32)
	require.NoError(t, err)
	b, err := r.Resolve(tInt32)
	require.NoError(t, err)
	assert.Same(t, a, b)

	node, err := r.Resolve(0x0674)
	require.NoError(t, err)
	p, ok := node.(*Pointer)
	require.True(t, ok)
	assert.Equal(t, PointerNear64, p.Kind)
	assert.Equal(t, uint8(8), p.Size)
	assert.Same(t, a, p.Pointee)
	assert.Equal(t, "int*", TypeName(p))

	node, err = r.Resolve(0x0470)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), node.(*Pointer).Size)
	assert.Equal(t, "char*", TypeName(node))

	none, err := r.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, PrimitiveNone, none.(*Primitive).Kind)
}

func TestResolveUnknownPrimitiveDegrades(t *testing.T) {
	r := NewTypeResolver(newSource(t))

	node, err := r.Resolve(0x00ef)
	require.NoError(t, err)
	prim, ok := node.(*Primitive)
	require.True(t, ok)
	assert.Equal(t, PrimitiveUnknown, prim.Kind)
	assert.Equal(t, uint32(0xef), prim.Code)

	assert.Equal(t, []TypeIndex{0x00ef}, r.Degraded())
}

func TestResolveErrors(t *testing.T) {
	t.Run("index past end", func(t *testing.T) {
		r := NewTypeResolver(newSource(t, testutil.Ptr64(tInt32)))
		_, err := r.Resolve(0x2000)
		assert.ErrorIs(t, err, ErrUnresolvedIndex)
	})

	t.Run("dangling member type", func(t *testing.T) {
		r := NewTypeResolver(newSource(t,
			testutil.FieldList(testutil.Member(testutil.AccessPublic, 0x1fff, 0, "x")),
			testutil.Struct(1, 0, 0x1000, 4, "S", ""),
		))
		_, err := r.Resolve(0x1001)
		assert.ErrorIs(t, err, ErrUnresolvedIndex)
	})

	t.Run("dangling pointee", func(t *testing.T) {
		r := NewTypeResolver(newSource(t, testutil.Ptr64(0x1fff)))
		_, err := r.Resolve(0x1000)
		assert.ErrorIs(t, err, ErrUnresolvedIndex)
	})

	t.Run("field list of wrong kind", func(t *testing.T) {
		r := NewTypeResolver(newSource(t,
			testutil.Ptr64(tInt32),
			testutil.Struct(1, 0, 0x1000, 4, "S", ""),
		))
		_, err := r.Resolve(0x1001)
		assert.ErrorIs(t, err, ErrMalformedType)
	})

	t.Run("truncated pointer", func(t *testing.T) {
		r := NewTypeResolver(newSource(t, testutil.Record{Kind: streams.LF_POINTER, Payload: []byte{1, 2}}))
		_, err := r.Resolve(0x1000)
		assert.ErrorIs(t, err, ErrMalformedType)
	})

	t.Run("argument list of wrong kind", func(t *testing.T) {
		r := NewTypeResolver(newSource(t,
			testutil.Ptr64(tInt32),
			testutil.Procedure(tVoid, 0, 0, 0x1000),
		))
		_, err := r.Resolve(0x1001)
		assert.ErrorIs(t, err, ErrMalformedType)
	})

	t.Run("continuation loop", func(t *testing.T) {
		r := NewTypeResolver(newSource(t,
			testutil.FieldList(testutil.IndexContinuation(0x1000)),
			testutil.Struct(0, 0, 0x1000, 4, "S", ""),
		))
		_, err := r.Resolve(0x1001)
		assert.ErrorIs(t, err, ErrMalformedType)
	})

	t.Run("unexpected sub-record", func(t *testing.T) {
		r := NewTypeResolver(newSource(t,
			testutil.FieldList(testutil.Enumerate("A", 1)),
			testutil.Struct(1, 0, 0x1000, 4, "S", ""),
		))
		_, err := r.Resolve(0x1001)
		assert.ErrorIs(t, err, ErrMalformedType)
	})
}

func TestResolveForwardWithoutDefinition(t *testing.T) {
	r := NewTypeResolver(newSource(t,
		testutil.Class(0, testutil.PropForwardRef, 0, 0, "Handle", ".?AVHandle@@"),
	))

	node, err := r.Resolve(0x1000)
	require.NoError(t, err)
	cls := node.(*Class)
	assert.True(t, cls.Forward)
	assert.Equal(t, KindClass, cls.Kind)
	assert.Equal(t, ".?AVHandle@@", cls.UniqueName)
	assert.Empty(t, cls.Fields)
}

func TestResolveForwardPrefersUniqueName(t *testing.T) {
	r := NewTypeResolver(newSource(t,
		testutil.Struct(0, testutil.PropForwardRef, 0, 0, "S", ".?AUS@b@@"), // 0x1000
		testutil.Struct(0, 0, 0, 4, "S", ".?AUS@a@@"),                       // 0x1001
		testutil.Struct(0, 0, 0, 8, "S", ".?AUS@b@@"),                       // 0x1002
	))

	node, err := r.Resolve(0x1000)
	require.NoError(t, err)
	assert.Equal(t, TypeIndex(0x1002), node.ID())
	assert.Equal(t, uint64(8), node.(*Class).Size)
}

func TestResolveClassMembers(t *testing.T) {
	const (
		staticProtected = testutil.AccessProtected | 2<<2
		introPublic     = testutil.AccessPublic | 4<<2
	)
	src := newSource(t,
		testutil.Class(0, testutil.PropForwardRef, 0, 0, "Base", ""),  // 0x1000
		testutil.Bitfield(tUInt32, 3, 2),                              // 0x1001
		testutil.Ptr64(0x1007),                                        // 0x1002 Derived*
		testutil.ArgList(),                                            // 0x1003
		testutil.MFunction(tVoid, 0x1007, 0x1002, 0x0b, 0, 0x1003, 0), // 0x1004
		testutil.MethodList(                                           // 0x1005
			[2]uint32{testutil.AccessPublic, 0x1004},
			[2]uint32{staticProtected, 0x1004},
		),
		testutil.FieldList( // 0x1006
			testutil.BaseClass(testutil.AccessPublic, 0x1000, 0),
			testutil.VFuncTab(0x1002),
			testutil.Member(testutil.AccessPrivate, 0x1001, 8, "flags"),
			testutil.StaticMember(testutil.AccessPublic, tInt32, "count"),
			testutil.OneMethod(introPublic, 0x1004, 16, "run"),
			testutil.Method(2, 0x1005, "get"),
			testutil.NestType(0x1000, "BaseAlias"),
			testutil.IndexContinuation(0x1008),
		),
		testutil.Class(7, 0, 0x1006, 24, "Derived", ""),                                // 0x1007
		testutil.FieldList(testutil.Member(testutil.AccessPublic, tInt32, 12, "tail")), // 0x1008
		testutil.Class(0, 0, 0, 8, "Base", ""),                                         // 0x1009
		testutil.FieldList(                                                             // 0x100a
			testutil.VirtualBaseClass(testutil.AccessProtected, 0x1009, 0x1002, 0, 1),
		),
		testutil.Struct(1, 0, 0x100a, 16, "Virt", ""), // 0x100b
	)
	r := NewTypeResolver(src)

	node, err := r.Resolve(0x1007)
	require.NoError(t, err)
	cls := node.(*Class)

	base, err := r.Resolve(0x1009)
	require.NoError(t, err)

	require.Len(t, cls.Bases, 1)
	assert.Same(t, base, cls.Bases[0].Type)
	assert.Equal(t, AccessPublic, cls.Bases[0].Access)
	assert.False(t, cls.Bases[0].Virtual)

	require.NotNil(t, cls.VTablePointer)
	assert.Equal(t, TypeIndex(0x1002), cls.VTablePointer.ID())

	require.Len(t, cls.Fields, 3)
	flags := cls.Fields[0]
	assert.Equal(t, "flags", flags.Name)
	assert.Equal(t, AccessPrivate, flags.Access)
	assert.True(t, flags.IsBitfield)
	assert.Equal(t, uint8(3), flags.BitWidth)
	assert.Equal(t, uint8(2), flags.BitPosition)
	assert.Equal(t, "unsigned int : 3", TypeName(flags.Type))

	assert.True(t, cls.Fields[1].Static)
	assert.Equal(t, "count", cls.Fields[1].Name)

	assert.Equal(t, "tail", cls.Fields[2].Name)
	assert.Equal(t, uint64(12), cls.Fields[2].Offset)

	require.Len(t, cls.Methods, 3)
	run := cls.Methods[0]
	assert.Equal(t, "run", run.Name)
	assert.Equal(t, MethodIntroVirtual, run.Property)
	assert.Equal(t, uint32(16), run.VTableOffset)

	sig := run.Signature.(*Function)
	assert.True(t, sig.IsMember())
	assert.Same(t, cls, sig.Class)
	assert.Same(t, cls, sig.This.(*Pointer).Pointee)
	assert.Equal(t, "ThisCall", sig.CallingConvention.String())
	assert.Equal(t, "void Derived::(void)", TypeName(sig))

	assert.Equal(t, "get", cls.Methods[1].Name)
	assert.Equal(t, MethodVanilla, cls.Methods[1].Property)
	assert.Equal(t, MethodStatic, cls.Methods[2].Property)
	assert.Equal(t, AccessProtected, cls.Methods[2].Access)

	require.Len(t, cls.Nested, 1)
	assert.Same(t, base, cls.Nested[0].Type)

	virt, err := r.Resolve(0x100b)
	require.NoError(t, err)
	vb := virt.(*Class).Bases
	require.Len(t, vb, 1)
	assert.True(t, vb[0].Virtual)
	assert.False(t, vb[0].Indirect)
	assert.Same(t, base, vb[0].Type)
}

func TestResolveEnum(t *testing.T) {
	r := NewTypeResolver(newSource(t,
		testutil.FieldList( // 0x1000
			testutil.Enumerate("Red", 0),
			testutil.Enumerate("Big", 0x12345678),
			testutil.Enumerate("Neg", -1),
		),
		testutil.Enum(3, 0, tInt32, 0x1000, "Color", ""),                  // 0x1001
		testutil.Enum(0, testutil.PropForwardRef, tInt32, 0, "Color", ""), // 0x1002
	))

	node, err := r.Resolve(0x1001)
	require.NoError(t, err)
	e := node.(*Enum)
	assert.Equal(t, "Color", e.Name)
	assert.Equal(t, PrimitiveInt32, e.Underlying.(*Primitive).Kind)
	assert.Equal(t, []Enumerator{{"Red", 0}, {"Big", 0x12345678}, {"Neg", -1}}, e.Enumerators)
	assert.Equal(t, uint64(4), SizeOf(e))

	fwd, err := r.Resolve(0x1002)
	require.NoError(t, err)
	assert.Same(t, node, fwd)
}

func TestResolveArrays(t *testing.T) {
	r := NewTypeResolver(newSource(t,
		testutil.Array(tInt32, tUQuad, 12, ""),  // 0x1000 int[3]
		testutil.Array(0x1000, tUQuad, 24, ""),  // 0x1001 int[2][3]
		testutil.Array(0x1003, tUQuad, 0, "fn"), // 0x1002 unsized element
		testutil.Procedure(tVoid, 0, 0, 0x1004), // 0x1003
		testutil.ArgList(),                      // 0x1004
	))

	node, err := r.Resolve(0x1001)
	require.NoError(t, err)
	a := node.(*Array)
	assert.Equal(t, uint64(24), a.Size)
	assert.Equal(t, []uint64{2, 3}, a.Dimensions)
	assert.Equal(t, "int[2][3]", TypeName(a))

	node, err = r.Resolve(0x1002)
	require.NoError(t, err)
	assert.Empty(t, node.(*Array).Dimensions)
	assert.Equal(t, "fn", NameOf(node))
}

func TestResolveFunctionAndModifiers(t *testing.T) {
	r := NewTypeResolver(newSource(t,
		testutil.ArgList(tInt32, 0x0670),           // 0x1000
		testutil.Procedure(tVoid, 0x07, 2, 0x1000), // 0x1001
		testutil.Modifier(tInt32, 0x3),             // 0x1002
		testutil.Struct(0, 0, 0, 4, "Holder", ""),  // 0x1003
		testutil.MemberPointer(tInt32, 0x1003),     // 0x1004
	))

	node, err := r.Resolve(0x1001)
	require.NoError(t, err)
	fn := node.(*Function)
	assert.False(t, fn.IsMember())
	assert.Len(t, fn.Params, 2)
	assert.Equal(t, "NearStd", fn.CallingConvention.String())
	assert.Equal(t, "void (int, char*)", TypeName(fn))

	node, err = r.Resolve(0x1002)
	require.NoError(t, err)
	mod := node.(*Modifier)
	assert.True(t, mod.Const)
	assert.True(t, mod.Volatile)
	assert.False(t, mod.Unaligned)
	assert.Equal(t, "const volatile int", TypeName(mod))

	node, err = r.Resolve(0x1004)
	require.NoError(t, err)
	mp := node.(*Pointer)
	assert.Equal(t, ModeDataMember, mp.Mode)
	holder, err := r.Resolve(0x1003)
	require.NoError(t, err)
	assert.Same(t, holder, mp.ContainingClass)
	assert.Equal(t, "int Holder::*", TypeName(mp))
}

func TestResolveOpaqueLeaf(t *testing.T) {
	r := NewTypeResolver(newSource(t,
		testutil.Record{Kind: streams.LF_VTSHAPE, Payload: []byte{1, 0, 0x01}},
	))

	node, err := r.Resolve(0x1000)
	require.NoError(t, err)
	op, ok := node.(*Opaque)
	require.True(t, ok)
	assert.Equal(t, uint16(streams.LF_VTSHAPE), op.Leaf)
	assert.Equal(t, "<LF_VTSHAPE 0x1000>", TypeName(op))
}
