package codeview

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// TypeSource provides type records by index. *streams.TPIStream implements it.
type TypeSource interface {
	TypeRecord(TypeIndex) *streams.TypeRecord
	IndexBegin() TypeIndex
	IndexEnd() TypeIndex
}

type resolveState uint8

const (
	stateInProgress resolveState = iota
	stateDone
)

type cacheEntry struct {
	node  TypeNode
	state resolveState
}

// ResolverOption configures a TypeResolver.
type ResolverOption func(*TypeResolver)

// WithLogger sets the logger for skipped and degraded records.
func WithLogger(l zerolog.Logger) ResolverOption {
	return func(r *TypeResolver) {
		r.log = l.With().Str("component", "types").Logger()
	}
}

// TypeResolver turns type indices into a linked graph of TypeNodes.
//
// Every index resolves to exactly one node. A node is cached before its
// children are resolved, so cyclic graphs terminate: a nested request for an
// index under construction returns the partially built node. Pointees are
// resolved from a worklist rather than by recursion.
//
// A resolver is not safe for concurrent use.
type TypeResolver struct {
	src      TypeSource
	log      zerolog.Logger
	cache    map[TypeIndex]*cacheEntry
	pending  []*Pointer
	degraded []TypeIndex
	names    *nameIndex
}

// NewTypeResolver creates a resolver over src.
func NewTypeResolver(src TypeSource, opts ...ResolverOption) *TypeResolver {
	r := &TypeResolver{
		src:   src,
		log:   zerolog.Nop(),
		cache: make(map[TypeIndex]*cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the node for idx with all deferred pointees filled in.
func (r *TypeResolver) Resolve(idx TypeIndex) (TypeNode, error) {
	node, err := r.resolve(idx)
	if err != nil {
		return nil, err
	}
	if err := r.Drain(); err != nil {
		return nil, err
	}
	return node, nil
}

// Drain resolves the pointees of every pointer created so far, including
// pointers discovered while draining.
func (r *TypeResolver) Drain() error {
	for len(r.pending) > 0 {
		p := r.pending[0]
		r.pending = r.pending[1:]

		node, err := r.resolve(p.Target)
		if err != nil {
			return fmt.Errorf("pointee of 0x%x: %w", uint32(p.Index), err)
		}
		p.Pointee = node
	}
	r.pending = nil
	return nil
}

// Degraded returns the indices that resolved to PrimitiveUnknown, ascending.
func (r *TypeResolver) Degraded() []TypeIndex {
	out := slices.Clone(r.degraded)
	slices.Sort(out)
	return out
}

// Len returns the number of cached nodes.
func (r *TypeResolver) Len() int {
	return len(r.cache)
}

func (r *TypeResolver) begin(idx TypeIndex, node TypeNode) {
	r.cache[idx] = &cacheEntry{node: node, state: stateInProgress}
}

func (r *TypeResolver) resolve(idx TypeIndex) (TypeNode, error) {
	if e, ok := r.cache[idx]; ok {
		return e.node, nil
	}
	if idx.IsSimple() {
		return r.resolveSimple(idx), nil
	}

	rec, err := r.record(idx)
	if err != nil {
		return nil, err
	}

	node, err := r.resolveRecord(rec)
	if err != nil {
		delete(r.cache, idx)
		return nil, err
	}

	if e, ok := r.cache[idx]; ok {
		e.state = stateDone
	} else {
		r.cache[idx] = &cacheEntry{node: node, state: stateDone}
	}
	return node, nil
}

func (r *TypeResolver) record(idx TypeIndex) (*streams.TypeRecord, error) {
	if idx < r.src.IndexBegin() || idx >= r.src.IndexEnd() {
		return nil, pdberr.UnresolvedIndex(uint32(idx),
			fmt.Sprintf("outside type stream [0x%x, 0x%x)", uint32(r.src.IndexBegin()), uint32(r.src.IndexEnd())))
	}
	rec := r.src.TypeRecord(idx)
	if rec == nil {
		return nil, pdberr.UnresolvedIndex(uint32(idx), "no record")
	}
	return rec, nil
}

// helper fetches a list record referenced by owner and checks its leaf kind.
func (r *TypeResolver) helper(idx TypeIndex, want uint16, owner *streams.TypeRecord) (*streams.TypeRecord, error) {
	rec, err := r.record(idx)
	if err != nil {
		return nil, err
	}
	if rec.Kind != want {
		return nil, pdberr.MalformedType(uint32(owner.Index), owner.Kind,
			"index 0x%x is %s, want %s", uint32(idx), streams.LeafKindName(rec.Kind), streams.LeafKindName(want))
	}
	return rec, nil
}

func (r *TypeResolver) resolveRecord(rec *streams.TypeRecord) (TypeNode, error) {
	switch rec.Kind {
	case streams.LF_POINTER:
		return r.resolvePointer(rec)
	case streams.LF_MODIFIER:
		return r.resolveModifier(rec)
	case streams.LF_BITFIELD:
		return r.resolveBitfield(rec)
	case streams.LF_ARRAY:
		return r.resolveArray(rec)
	case streams.LF_PROCEDURE:
		return r.resolveProcedure(rec)
	case streams.LF_MFUNCTION:
		return r.resolveMemberFunction(rec)
	case streams.LF_CLASS, streams.LF_STRUCTURE, streams.LF_INTERFACE, streams.LF_UNION:
		return r.resolveClass(rec)
	case streams.LF_ENUM:
		return r.resolveEnum(rec)
	default:
		return &Opaque{Index: rec.Index, Leaf: rec.Kind}, nil
	}
}

func (r *TypeResolver) resolveSimple(idx TypeIndex) TypeNode {
	if e, ok := r.cache[idx]; ok {
		return e.node
	}
	mode := (uint32(idx) & simpleModeMask) >> 8
	code := uint32(idx) & simpleKindMask

	if mode == 0 {
		return r.primitive(idx, code)
	}

	pm, ok := simplePointerModes[mode]
	if !ok {
		return r.primitive(idx, uint32(idx))
	}
	p := &Pointer{
		Index:   idx,
		Target:  TypeIndex(code),
		Pointee: r.resolveSimple(TypeIndex(code)),
		Kind:    pm.kind,
		Size:    pm.size,
	}
	r.cache[idx] = &cacheEntry{node: p, state: stateDone}
	return p
}

func (r *TypeResolver) primitive(idx TypeIndex, code uint32) TypeNode {
	kind, err := LookupPrimitive(code)
	if err != nil {
		r.log.Warn().Err(err).Str("index", hexIndex(idx)).Msg("unknown primitive type")
		r.degraded = append(r.degraded, idx)
	}
	node := &Primitive{Index: idx, Kind: kind, Code: code}
	r.cache[idx] = &cacheEntry{node: node, state: stateDone}
	return node
}

func (r *TypeResolver) resolvePointer(rec *streams.TypeRecord) (TypeNode, error) {
	lr := newLeafReader(rec)
	target := lr.index32("referent")
	attrs := lr.u32("pointer attributes")
	if lr.err != nil {
		return nil, lr.err
	}

	p := &Pointer{
		Index:     rec.Index,
		Target:    target,
		Kind:      PointerKind(attrs & 0x1f),
		Mode:      PointerMode((attrs >> 5) & 0x7),
		Volatile:  attrs&(1<<9) != 0,
		Const:     attrs&(1<<10) != 0,
		Unaligned: attrs&(1<<11) != 0,
		Restrict:  attrs&(1<<12) != 0,
		Size:      uint8((attrs >> 13) & 0x3f),
	}
	r.begin(rec.Index, p)

	if p.Mode == ModeDataMember || p.Mode == ModeMemberFunction {
		class := lr.index32("containing class")
		if lr.err != nil {
			return nil, lr.err
		}
		cc, err := r.resolve(class)
		if err != nil {
			return nil, err
		}
		p.ContainingClass = cc
	}

	r.pending = append(r.pending, p)
	return p, nil
}

func (r *TypeResolver) resolveModifier(rec *streams.TypeRecord) (TypeNode, error) {
	lr := newLeafReader(rec)
	underlying := lr.index32("modified type")
	attrs := lr.u16("modifier attributes")
	if lr.err != nil {
		return nil, lr.err
	}

	m := &Modifier{
		Index:     rec.Index,
		Const:     attrs&0x1 != 0,
		Volatile:  attrs&0x2 != 0,
		Unaligned: attrs&0x4 != 0,
	}
	r.begin(rec.Index, m)

	var err error
	m.Underlying, err = r.resolve(underlying)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *TypeResolver) resolveBitfield(rec *streams.TypeRecord) (TypeNode, error) {
	lr := newLeafReader(rec)
	underlying := lr.index32("bitfield type")
	length := lr.u8("bitfield length")
	position := lr.u8("bitfield position")
	if lr.err != nil {
		return nil, lr.err
	}

	b := &Bitfield{Index: rec.Index, Length: length, Position: position}
	r.begin(rec.Index, b)

	var err error
	b.Underlying, err = r.resolve(underlying)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *TypeResolver) resolveArray(rec *streams.TypeRecord) (TypeNode, error) {
	lr := newLeafReader(rec)
	elem := lr.index32("element type")
	index := lr.index32("index type")
	size := lr.numeric("array size")
	name := lr.name()
	if lr.err != nil {
		return nil, lr.err
	}

	a := &Array{Index: rec.Index, Size: size, Name: name}
	r.begin(rec.Index, a)

	var err error
	if a.Element, err = r.resolve(elem); err != nil {
		return nil, err
	}
	if a.IndexType, err = r.resolve(index); err != nil {
		return nil, err
	}

	if es := SizeOf(a.Element); es > 0 {
		a.Dimensions = []uint64{size / es}
		if inner, ok := a.Element.(*Array); ok {
			a.Dimensions = append(a.Dimensions, inner.Dimensions...)
		}
	}
	return a, nil
}

func (r *TypeResolver) resolveProcedure(rec *streams.TypeRecord) (TypeNode, error) {
	lr := newLeafReader(rec)
	ret := lr.index32("return type")
	cc := lr.u8("calling convention")
	attrs := lr.u8("function attributes")
	nparams := lr.u16("parameter count")
	args := lr.index32("argument list")
	if lr.err != nil {
		return nil, lr.err
	}

	f := &Function{Index: rec.Index, CallingConvention: CallingConvention(cc), Attributes: attrs}
	r.begin(rec.Index, f)

	var err error
	if f.Return, err = r.resolve(ret); err != nil {
		return nil, err
	}
	if f.Params, err = r.argList(args, nparams, rec); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *TypeResolver) resolveMemberFunction(rec *streams.TypeRecord) (TypeNode, error) {
	lr := newLeafReader(rec)
	ret := lr.index32("return type")
	class := lr.index32("class type")
	this := lr.index32("this type")
	cc := lr.u8("calling convention")
	attrs := lr.u8("function attributes")
	nparams := lr.u16("parameter count")
	args := lr.index32("argument list")
	adjust := lr.u32("this adjustment")
	if lr.err != nil {
		return nil, lr.err
	}

	f := &Function{
		Index:             rec.Index,
		CallingConvention: CallingConvention(cc),
		Attributes:        attrs,
		ThisAdjust:        int32(adjust),
	}
	r.begin(rec.Index, f)

	var err error
	if f.Return, err = r.resolve(ret); err != nil {
		return nil, err
	}
	if f.Class, err = r.resolve(class); err != nil {
		return nil, err
	}
	// Static member functions have no this pointer.
	if this != 0 {
		if f.This, err = r.resolve(this); err != nil {
			return nil, err
		}
	}
	if f.Params, err = r.argList(args, nparams, rec); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *TypeResolver) argList(idx TypeIndex, nparams uint16, owner *streams.TypeRecord) ([]TypeNode, error) {
	rec, err := r.helper(idx, streams.LF_ARGLIST, owner)
	if err != nil {
		return nil, err
	}

	lr := newLeafReader(rec)
	count := lr.u32("argument count")
	if lr.err != nil {
		return nil, lr.err
	}
	if count != uint32(nparams) {
		r.log.Debug().Str("index", hexIndex(owner.Index)).
			Uint32("args", count).Uint16("declared", nparams).Msg("parameter count mismatch")
	}

	var params []TypeNode
	for i := uint32(0); i < count; i++ {
		arg := lr.index32("argument")
		if lr.err != nil {
			return nil, lr.err
		}
		node, err := r.resolve(arg)
		if err != nil {
			return nil, err
		}
		params = append(params, node)
	}
	return params, nil
}

func hexIndex(idx TypeIndex) string {
	return fmt.Sprintf("0x%x", uint32(idx))
}
