package codeview

import (
	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// aggregateHeader is the fixed part shared by class, union and enum records.
type aggregateHeader struct {
	kind       ClassKind
	enum       bool
	count      uint16
	props      Properties
	fieldList  TypeIndex
	underlying TypeIndex
	size       uint64
	name       string
	unique     string
}

func parseAggregateHeader(rec *streams.TypeRecord) (aggregateHeader, error) {
	lr := newLeafReader(rec)
	var h aggregateHeader

	h.count = lr.u16("member count")
	h.props = Properties(lr.u16("properties"))

	switch rec.Kind {
	case streams.LF_CLASS, streams.LF_STRUCTURE, streams.LF_INTERFACE:
		h.kind = map[uint16]ClassKind{
			streams.LF_CLASS:     KindClass,
			streams.LF_STRUCTURE: KindStruct,
			streams.LF_INTERFACE: KindInterface,
		}[rec.Kind]
		h.fieldList = lr.index32("field list")
		lr.u32("derivation list")
		lr.u32("vtable shape")
		h.size = lr.numeric("class size")
	case streams.LF_UNION:
		h.kind = KindUnion
		h.fieldList = lr.index32("field list")
		h.size = lr.numeric("union size")
	case streams.LF_ENUM:
		h.enum = true
		h.underlying = lr.index32("underlying type")
		h.fieldList = lr.index32("field list")
	}

	h.name = lr.name()
	if h.props.HasUniqueName() {
		h.unique = lr.name()
	}
	return h, lr.err
}

func (r *TypeResolver) resolveClass(rec *streams.TypeRecord) (TypeNode, error) {
	h, err := parseAggregateHeader(rec)
	if err != nil {
		return nil, err
	}

	if h.props.ForwardRef() {
		if def, ok := r.definition(h); ok {
			r.log.Debug().Str("index", hexIndex(rec.Index)).Str("definition", hexIndex(def)).
				Str("name", h.name).Msg("forward reference")
			return r.resolve(def)
		}
		return &Class{
			Index:      rec.Index,
			Kind:       h.kind,
			Name:       h.name,
			UniqueName: h.unique,
			Properties: h.props,
			Forward:    true,
		}, nil
	}

	c := &Class{
		Index:      rec.Index,
		Kind:       h.kind,
		Name:       h.name,
		UniqueName: h.unique,
		Size:       h.size,
		Properties: h.props,
	}
	r.begin(rec.Index, c)

	if h.fieldList == 0 {
		return c, nil
	}
	err = r.walkFieldList(h.fieldList, rec, func(lr *leafReader, leaf uint16) error {
		return r.classMember(c, lr, leaf, rec)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *TypeResolver) resolveEnum(rec *streams.TypeRecord) (TypeNode, error) {
	h, err := parseAggregateHeader(rec)
	if err != nil {
		return nil, err
	}

	if h.props.ForwardRef() {
		if def, ok := r.definition(h); ok {
			return r.resolve(def)
		}
		e := &Enum{Index: rec.Index, Name: h.name, UniqueName: h.unique, Properties: h.props, Forward: true}
		r.begin(rec.Index, e)
		if e.Underlying, err = r.resolve(h.underlying); err != nil {
			return nil, err
		}
		return e, nil
	}

	e := &Enum{Index: rec.Index, Name: h.name, UniqueName: h.unique, Properties: h.props}
	r.begin(rec.Index, e)

	if e.Underlying, err = r.resolve(h.underlying); err != nil {
		return nil, err
	}
	if h.fieldList == 0 {
		return e, nil
	}

	err = r.walkFieldList(h.fieldList, rec, func(lr *leafReader, leaf uint16) error {
		if leaf != streams.LF_ENUMERATE {
			return pdberr.MalformedType(uint32(rec.Index), rec.Kind,
				"unexpected %s in enumerator list", streams.LeafKindName(leaf))
		}
		lr.u16("enumerator attributes")
		value := lr.numeric("enumerator value")
		name := lr.name()
		e.Enumerators = append(e.Enumerators, Enumerator{Name: name, Value: int64(value)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// walkFieldList calls visit for every sub-record of the field list at idx,
// following LF_INDEX continuations. visit consumes the sub-record body; the
// leaf kind has already been read.
func (r *TypeResolver) walkFieldList(idx TypeIndex, owner *streams.TypeRecord, visit func(*leafReader, uint16) error) error {
	seen := make(map[TypeIndex]bool)
	for idx != 0 {
		if seen[idx] {
			return pdberr.MalformedType(uint32(owner.Index), owner.Kind, "field list continuation 0x%x loops", uint32(idx))
		}
		seen[idx] = true

		rec, err := r.helper(idx, streams.LF_FIELDLIST, owner)
		if err != nil {
			return err
		}

		lr := newLeafReader(rec)
		idx = 0
		for {
			lr.skipPadding()
			if lr.done() {
				break
			}
			leaf := lr.u16("member leaf")
			if leaf == streams.LF_INDEX {
				lr.u16("padding")
				idx = lr.index32("continuation")
				continue
			}
			if err := visit(lr, leaf); err != nil {
				return err
			}
		}
		if lr.err != nil {
			return lr.err
		}
	}
	return nil
}

func memberAccess(attr uint16) Access {
	return Access(attr & 0x3)
}

func memberProperty(attr uint16) MethodProperty {
	return MethodProperty((attr >> 2) & 0x7)
}

func (r *TypeResolver) classMember(c *Class, lr *leafReader, leaf uint16, owner *streams.TypeRecord) error {
	switch leaf {
	case streams.LF_BCLASS:
		attr := lr.u16("base attributes")
		typ := lr.index32("base type")
		offset := lr.numeric("base offset")
		if lr.err != nil {
			return lr.err
		}
		node, err := r.resolve(typ)
		if err != nil {
			return err
		}
		c.Bases = append(c.Bases, BaseClass{Type: node, Offset: offset, Access: memberAccess(attr)})

	case streams.LF_VBCLASS, streams.LF_IVBCLASS:
		attr := lr.u16("base attributes")
		typ := lr.index32("base type")
		lr.index32("virtual base pointer type")
		offset := lr.numeric("virtual base pointer offset")
		lr.numeric("virtual base table index")
		if lr.err != nil {
			return lr.err
		}
		node, err := r.resolve(typ)
		if err != nil {
			return err
		}
		c.Bases = append(c.Bases, BaseClass{
			Type:     node,
			Offset:   offset,
			Access:   memberAccess(attr),
			Virtual:  true,
			Indirect: leaf == streams.LF_IVBCLASS,
		})

	case streams.LF_MEMBER:
		attr := lr.u16("member attributes")
		typ := lr.index32("member type")
		offset := lr.numeric("member offset")
		name := lr.name()
		if lr.err != nil {
			return lr.err
		}
		node, err := r.resolve(typ)
		if err != nil {
			return err
		}
		f := Field{Name: name, Offset: offset, Type: node, Access: memberAccess(attr)}
		if bf, ok := node.(*Bitfield); ok {
			f.IsBitfield = true
			f.BitWidth = bf.Length
			f.BitPosition = bf.Position
		}
		c.Fields = append(c.Fields, f)

	case streams.LF_STMEMBER:
		attr := lr.u16("member attributes")
		typ := lr.index32("member type")
		name := lr.name()
		if lr.err != nil {
			return lr.err
		}
		node, err := r.resolve(typ)
		if err != nil {
			return err
		}
		c.Fields = append(c.Fields, Field{Name: name, Type: node, Access: memberAccess(attr), Static: true})

	case streams.LF_ONEMETHOD:
		attr := lr.u16("method attributes")
		typ := lr.index32("method type")
		var vtOffset uint32
		if memberProperty(attr).introducing() {
			vtOffset = lr.u32("vtable offset")
		}
		name := lr.name()
		if lr.err != nil {
			return lr.err
		}
		sig, err := r.resolve(typ)
		if err != nil {
			return err
		}
		c.Methods = append(c.Methods, Method{
			Name:         name,
			Signature:    sig,
			Access:       memberAccess(attr),
			Property:     memberProperty(attr),
			VTableOffset: vtOffset,
		})

	case streams.LF_METHOD:
		count := lr.u16("overload count")
		list := lr.index32("method list")
		name := lr.name()
		if lr.err != nil {
			return lr.err
		}
		methods, err := r.methodList(list, count, name, owner)
		if err != nil {
			return err
		}
		c.Methods = append(c.Methods, methods...)

	case streams.LF_NESTTYPE:
		lr.u16("padding")
		typ := lr.index32("nested type")
		name := lr.name()
		if lr.err != nil {
			return lr.err
		}
		node, err := r.resolve(typ)
		if err != nil {
			return err
		}
		c.Nested = append(c.Nested, NestedType{Name: name, Type: node})

	case streams.LF_VFUNCTAB:
		lr.u16("padding")
		typ := lr.index32("vtable pointer type")
		if lr.err != nil {
			return lr.err
		}
		node, err := r.resolve(typ)
		if err != nil {
			return err
		}
		c.VTablePointer = node

	// Recognized but not modeled.
	case streams.LF_FRIENDCLS:
		lr.u16("padding")
		lr.index32("friend class")
	case streams.LF_FRIENDFCN:
		lr.u16("padding")
		lr.index32("friend function")
		lr.name()
	case streams.LF_VFUNCOFF:
		lr.u16("padding")
		lr.index32("vtable pointer type")
		lr.u32("vtable offset")
	case streams.LF_NESTTYPEEX, streams.LF_MEMBERMODIFY:
		lr.u16("attributes")
		lr.index32("type")
		lr.name()

	default:
		return pdberr.MalformedType(uint32(owner.Index), owner.Kind,
			"unexpected %s in field list", streams.LeafKindName(leaf))
	}
	return lr.err
}

func (r *TypeResolver) methodList(idx TypeIndex, count uint16, name string, owner *streams.TypeRecord) ([]Method, error) {
	rec, err := r.helper(idx, streams.LF_METHODLIST, owner)
	if err != nil {
		return nil, err
	}

	lr := newLeafReader(rec)
	methods := make([]Method, 0, count)
	for i := uint16(0); i < count; i++ {
		attr := lr.u16("method attributes")
		lr.u16("padding")
		typ := lr.index32("method type")
		var vtOffset uint32
		if memberProperty(attr).introducing() {
			vtOffset = lr.u32("vtable offset")
		}
		if lr.err != nil {
			return nil, lr.err
		}

		sig, err := r.resolve(typ)
		if err != nil {
			return nil, err
		}
		methods = append(methods, Method{
			Name:         name,
			Signature:    sig,
			Access:       memberAccess(attr),
			Property:     memberProperty(attr),
			VTableOffset: vtOffset,
		})
	}
	return methods, nil
}
