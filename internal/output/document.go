// Package output renders an AssemblyInfo as plain text, JSON or msgpack.
//
// The type graph may be cyclic, so the encoded forms never embed nodes.
// Every node reachable from the type table or a symbol becomes one
// TypeEntry, and entries refer to each other by type index.
package output

import (
	"cmp"
	"slices"

	"github.com/jtang613/pdbview/pkg/pdb"
	"github.com/jtang613/pdbview/pkg/pdb/codeview"
)

// TypeEntry is one flattened type node.
type TypeEntry struct {
	Index     codeview.TypeIndex `json:"index"`
	Kind      string             `json:"kind"`
	Name      string             `json:"name,omitempty"`
	Signature string             `json:"signature"`
	Size      uint64             `json:"size,omitempty"`

	// Definition is set on forward references and names the entry that
	// holds the definition.
	Definition codeview.TypeIndex `json:"definition,omitempty"`

	Underlying  codeview.TypeIndex    `json:"underlying,omitempty"`
	Pointee     codeview.TypeIndex    `json:"pointee,omitempty"`
	Element     codeview.TypeIndex    `json:"element,omitempty"`
	Dimensions  []uint64              `json:"dimensions,omitempty"`
	Return      codeview.TypeIndex    `json:"return,omitempty"`
	Params      []codeview.TypeIndex  `json:"params,omitempty"`
	Class       codeview.TypeIndex    `json:"class,omitempty"`
	This        codeview.TypeIndex    `json:"this,omitempty"`
	CallingConv string                `json:"calling_convention,omitempty"`
	Mode        string                `json:"mode,omitempty"`
	Qualifiers  []string              `json:"qualifiers,omitempty"`
	Bits        *BitRange             `json:"bits,omitempty"`
	Forward     bool                  `json:"forward,omitempty"`
	Bases       []BaseEntry           `json:"bases,omitempty"`
	Members     []Member              `json:"members,omitempty"`
	Methods     []MethodEntry         `json:"methods,omitempty"`
	Enumerators []codeview.Enumerator `json:"enumerators,omitempty"`
	Leaf        uint16                `json:"leaf,omitempty"`
}

// BitRange is the placement of a bit-field.
type BitRange struct {
	Position uint8 `json:"position"`
	Length   uint8 `json:"length"`
}

// BaseEntry is a base class reference.
type BaseEntry struct {
	Type    codeview.TypeIndex `json:"type"`
	Offset  uint64             `json:"offset"`
	Access  string             `json:"access,omitempty"`
	Virtual bool               `json:"virtual,omitempty"`
}

// Member is a data member.
type Member struct {
	Name     string             `json:"name"`
	Type     codeview.TypeIndex `json:"type"`
	TypeName string             `json:"type_name"`
	Offset   uint64             `json:"offset"`
	Access   string             `json:"access,omitempty"`
	Static   bool               `json:"static,omitempty"`
}

// MethodEntry is a member function.
type MethodEntry struct {
	Name      string             `json:"name"`
	Signature codeview.TypeIndex `json:"signature,omitempty"`
	Access    string             `json:"access,omitempty"`
	Property  string             `json:"property"`
}

// Document is the serializable projection of an AssemblyInfo.
type Document struct {
	BuildInfo  pdb.BuildInfo        `json:"build_info"`
	Modules    []pdb.Module         `json:"modules"`
	Procedures []pdb.Procedure      `json:"procedures"`
	Publics    []pdb.PublicSymbol   `json:"publics"`
	Globals    []pdb.GlobalVariable `json:"globals"`
	Labels     []pdb.Label          `json:"labels,omitempty"`
	Types      []TypeEntry          `json:"types"`
	Degraded   []codeview.TypeIndex `json:"degraded_types,omitempty"`
}

// NewDocument flattens info. The symbol lists are shared with info.
func NewDocument(info *pdb.AssemblyInfo) *Document {
	f := flattener{
		entries: make(map[codeview.TypeIndex]TypeEntry),
		queued:  make(map[codeview.TypeIndex]bool),
	}

	for _, idx := range info.Types.Indices() {
		n, _ := info.Types.Lookup(idx)
		if n.ID() != idx {
			f.entries[idx] = TypeEntry{
				Index:      idx,
				Kind:       "forward",
				Name:       codeview.NameOf(n),
				Signature:  codeview.TypeName(n),
				Definition: n.ID(),
			}
		}
		f.visit(n)
	}
	for _, p := range info.Procedures {
		f.visit(p.Signature)
	}
	for _, g := range info.Globals {
		f.visit(g.Type)
	}
	f.drain()

	types := make([]TypeEntry, 0, len(f.entries))
	for _, e := range f.entries {
		types = append(types, e)
	}
	slices.SortFunc(types, func(a, b TypeEntry) int { return cmp.Compare(a.Index, b.Index) })

	return &Document{
		BuildInfo:  info.BuildInfo,
		Modules:    info.Modules,
		Procedures: info.Procedures,
		Publics:    info.Publics,
		Globals:    info.Globals,
		Labels:     info.Labels,
		Types:      types,
		Degraded:   info.Degraded,
	}
}

// Type returns the entry for idx.
func (d *Document) Type(idx codeview.TypeIndex) (TypeEntry, bool) {
	i, ok := slices.BinarySearchFunc(d.Types, idx, func(e TypeEntry, idx codeview.TypeIndex) int {
		return cmp.Compare(e.Index, idx)
	})
	if !ok {
		return TypeEntry{}, false
	}
	return d.Types[i], true
}

type flattener struct {
	entries map[codeview.TypeIndex]TypeEntry
	queue   []codeview.TypeNode
	queued  map[codeview.TypeIndex]bool
}

// visit queues n and returns its index, 0 for nil.
func (f *flattener) visit(n codeview.TypeNode) codeview.TypeIndex {
	if n == nil {
		return 0
	}
	if !f.queued[n.ID()] {
		f.queued[n.ID()] = true
		f.queue = append(f.queue, n)
	}
	return n.ID()
}

func (f *flattener) drain() {
	for len(f.queue) > 0 {
		n := f.queue[0]
		f.queue = f.queue[1:]
		f.entries[n.ID()] = f.entry(n)
	}
}

func (f *flattener) entry(n codeview.TypeNode) TypeEntry {
	e := TypeEntry{
		Index:     n.ID(),
		Name:      codeview.NameOf(n),
		Signature: codeview.TypeName(n),
		Size:      codeview.SizeOf(n),
	}

	switch t := n.(type) {
	case *codeview.Primitive:
		e.Kind = "primitive"
		e.Name = t.Kind.Name()

	case *codeview.Pointer:
		e.Kind = "pointer"
		e.Mode = t.Mode.String()
		e.Pointee = t.Target
		if t.Pointee != nil {
			e.Pointee = f.visit(t.Pointee)
		}
		e.Class = f.visit(t.ContainingClass)
		e.Qualifiers = qualifiers(t.Const, t.Volatile, t.Unaligned)
		if t.Restrict {
			e.Qualifiers = append(e.Qualifiers, "restrict")
		}

	case *codeview.Array:
		e.Kind = "array"
		e.Element = f.visit(t.Element)
		e.Dimensions = t.Dimensions

	case *codeview.Enum:
		e.Kind = "enum"
		e.Underlying = f.visit(t.Underlying)
		e.Enumerators = t.Enumerators
		e.Forward = t.Forward

	case *codeview.Class:
		e.Kind = t.Kind.String()
		e.Forward = t.Forward
		for _, b := range t.Bases {
			e.Bases = append(e.Bases, BaseEntry{
				Type:    f.visit(b.Type),
				Offset:  b.Offset,
				Access:  b.Access.String(),
				Virtual: b.Virtual,
			})
		}
		for _, m := range t.Fields {
			e.Members = append(e.Members, Member{
				Name:     m.Name,
				Type:     f.visit(m.Type),
				TypeName: codeview.TypeName(m.Type),
				Offset:   m.Offset,
				Access:   m.Access.String(),
				Static:   m.Static,
			})
		}
		for _, m := range t.Methods {
			e.Methods = append(e.Methods, MethodEntry{
				Name:      m.Name,
				Signature: f.visit(m.Signature),
				Access:    m.Access.String(),
				Property:  m.Property.String(),
			})
		}
		for _, nt := range t.Nested {
			f.visit(nt.Type)
		}
		f.visit(t.VTablePointer)

	case *codeview.Function:
		e.Kind = "function"
		e.Return = f.visit(t.Return)
		for _, p := range t.Params {
			e.Params = append(e.Params, f.visit(p))
		}
		e.Class = f.visit(t.Class)
		e.This = f.visit(t.This)
		e.CallingConv = t.CallingConvention.String()

	case *codeview.Modifier:
		e.Kind = "modifier"
		e.Underlying = f.visit(t.Underlying)
		e.Qualifiers = qualifiers(t.Const, t.Volatile, t.Unaligned)

	case *codeview.Bitfield:
		e.Kind = "bitfield"
		e.Underlying = f.visit(t.Underlying)
		e.Bits = &BitRange{Position: t.Position, Length: t.Length}

	case *codeview.Opaque:
		e.Kind = "opaque"
		e.Leaf = t.Leaf
	}
	return e
}

func qualifiers(c, v, u bool) []string {
	var q []string
	if c {
		q = append(q, "const")
	}
	if v {
		q = append(q, "volatile")
	}
	if u {
		q = append(q, "unaligned")
	}
	return q
}
