package codeview

import (
	"fmt"
	"strings"

	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// maxFormatDepth bounds nesting through anonymous types. Named aggregates
// stop the recursion, so only pathological graphs get near it.
const maxFormatDepth = 32

// TypeName renders a node as a C-like type name. Classes and enums are
// printed by name only, so cyclic graphs terminate.
func TypeName(n TypeNode) string {
	return typeName(n, 0)
}

func typeName(n TypeNode, depth int) string {
	if n == nil {
		return "<none>"
	}
	if depth > maxFormatDepth {
		return "..."
	}
	depth++

	switch t := n.(type) {
	case *Primitive:
		return t.Kind.Name()

	case *Pointer:
		var base string
		if t.Pointee == nil {
			base = fmt.Sprintf("type_0x%x", uint32(t.Target))
		} else {
			base = typeName(t.Pointee, depth)
		}

		var s string
		switch t.Mode {
		case ModeLValueReference:
			s = base + "&"
		case ModeRValueReference:
			s = base + "&&"
		case ModeDataMember, ModeMemberFunction:
			s = fmt.Sprintf("%s %s::*", base, typeName(t.ContainingClass, depth))
		default:
			s = base + "*"
		}
		if t.Const {
			s += " const"
		}
		if t.Volatile {
			s += " volatile"
		}
		return s

	case *Modifier:
		var b strings.Builder
		if t.Const {
			b.WriteString("const ")
		}
		if t.Volatile {
			b.WriteString("volatile ")
		}
		if t.Unaligned {
			b.WriteString("__unaligned ")
		}
		b.WriteString(typeName(t.Underlying, depth))
		return b.String()

	case *Array:
		elem := t.Element
		for {
			inner, ok := elem.(*Array)
			if !ok {
				break
			}
			elem = inner.Element
		}
		s := typeName(elem, depth)
		if len(t.Dimensions) == 0 {
			return s + "[]"
		}
		for _, d := range t.Dimensions {
			s += fmt.Sprintf("[%d]", d)
		}
		return s

	case *Class:
		if t.Name == "" {
			return fmt.Sprintf("<anonymous %s>", t.Kind)
		}
		return t.Name

	case *Enum:
		if t.Name == "" {
			return "<anonymous enum>"
		}
		return t.Name

	case *Function:
		args := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			args = append(args, typeName(p, depth))
		}
		if len(args) == 0 {
			args = append(args, "void")
		}
		ret := typeName(t.Return, depth)
		if t.Class != nil {
			return fmt.Sprintf("%s %s::(%s)", ret, typeName(t.Class, depth), strings.Join(args, ", "))
		}
		return fmt.Sprintf("%s (%s)", ret, strings.Join(args, ", "))

	case *Bitfield:
		return fmt.Sprintf("%s : %d", typeName(t.Underlying, depth), t.Length)

	case *Opaque:
		return fmt.Sprintf("<%s 0x%x>", streams.LeafKindName(t.Leaf), uint32(t.Index))
	}
	return fmt.Sprintf("type_0x%x", uint32(n.ID()))
}
