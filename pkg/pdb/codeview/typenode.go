package codeview

import (
	"fmt"

	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// TypeIndex is an opaque reference into the type stream.
type TypeIndex = streams.TypeIndex

// TypeNode is a resolved type. The set of implementations is closed:
// *Primitive, *Pointer, *Array, *Enum, *Class, *Function, *Modifier,
// *Bitfield and *Opaque.
//
// Nodes reference each other directly and may form cycles; walk them with
// a visited set.
type TypeNode interface {
	// ID returns the index the node was resolved from.
	ID() TypeIndex
	typeNode()
}

// PointerKind is the addressing kind of a pointer.
type PointerKind uint8

const (
	PointerNear16 PointerKind = 0x00
	PointerFar16  PointerKind = 0x01
	PointerHuge16 PointerKind = 0x02
	PointerNear32 PointerKind = 0x0a
	PointerFar32  PointerKind = 0x0b
	PointerNear64 PointerKind = 0x0c
)

// PointerMode distinguishes pointers from references and member pointers.
type PointerMode uint8

const (
	ModePointer PointerMode = iota
	ModeLValueReference
	ModeDataMember
	ModeMemberFunction
	ModeRValueReference
)

func (m PointerMode) String() string {
	switch m {
	case ModePointer:
		return "pointer"
	case ModeLValueReference:
		return "lvalue-reference"
	case ModeDataMember:
		return "data-member-pointer"
	case ModeMemberFunction:
		return "member-function-pointer"
	case ModeRValueReference:
		return "rvalue-reference"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Properties are the CV_prop_t bits of class, union and enum records.
type Properties uint16

func (p Properties) Packed() bool        { return p&0x0001 != 0 }
func (p Properties) Ctor() bool          { return p&0x0002 != 0 }
func (p Properties) OverloadedOps() bool { return p&0x0004 != 0 }
func (p Properties) IsNested() bool      { return p&0x0008 != 0 }
func (p Properties) ContainsNested() bool {
	return p&0x0010 != 0
}
func (p Properties) ForwardRef() bool    { return p&0x0080 != 0 }
func (p Properties) Scoped() bool        { return p&0x0100 != 0 }
func (p Properties) HasUniqueName() bool { return p&0x0200 != 0 }
func (p Properties) Sealed() bool        { return p&0x0400 != 0 }
func (p Properties) Intrinsic() bool     { return p&0x2000 != 0 }

// Access is a member access specifier.
type Access uint8

const (
	AccessNone Access = iota
	AccessPrivate
	AccessProtected
	AccessPublic
)

func (a Access) String() string {
	switch a {
	case AccessPrivate:
		return "private"
	case AccessProtected:
		return "protected"
	case AccessPublic:
		return "public"
	}
	return ""
}

// MethodProperty is the CV_MPROP of a member function.
type MethodProperty uint8

const (
	MethodVanilla MethodProperty = iota
	MethodVirtual
	MethodStatic
	MethodFriend
	MethodIntroVirtual
	MethodPureVirtual
	MethodPureIntro
)

func (m MethodProperty) String() string {
	switch m {
	case MethodVanilla:
		return "vanilla"
	case MethodVirtual:
		return "virtual"
	case MethodStatic:
		return "static"
	case MethodFriend:
		return "friend"
	case MethodIntroVirtual:
		return "intro-virtual"
	case MethodPureVirtual:
		return "pure-virtual"
	case MethodPureIntro:
		return "pure-intro"
	}
	return fmt.Sprintf("mprop(%d)", uint8(m))
}

// introducing reports whether the method introduces a vtable slot.
func (m MethodProperty) introducing() bool {
	return m == MethodIntroVirtual || m == MethodPureIntro
}

// ClassKind distinguishes the aggregate leaf kinds.
type ClassKind uint8

const (
	KindClass ClassKind = iota
	KindStruct
	KindUnion
	KindInterface
)

func (k ClassKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindInterface:
		return "interface"
	}
	return "aggregate"
}

// CallingConvention is the CV_call_e of a function type.
type CallingConvention uint8

var callingConventionNames = [...]string{
	"NearC", "FarC", "NearPascal", "FarPascal", "NearFast", "FarFast", "Skipped",
	"NearStd", "FarStd", "NearSys", "FarSys", "ThisCall", "MipsCall", "Generic",
	"AlphaCall", "PpcCall", "SHCall", "ArmCall", "AM33Call", "TriCall", "SH5Call",
	"M32RCall", "ClrCall", "Inline", "NearVector", "Swift",
}

func (c CallingConvention) String() string {
	if int(c) < len(callingConventionNames) {
		return callingConventionNames[c]
	}
	return fmt.Sprintf("CallConv(0x%02x)", uint8(c))
}

// Primitive is a built-in type.
type Primitive struct {
	Index TypeIndex
	Kind  PrimitiveKind
	Code  uint32 // low byte of the simple index
}

// Pointer is a pointer or reference. Pointee is filled in once the
// resolver drains its deferred work; Target always holds the raw index.
type Pointer struct {
	Index           TypeIndex
	Target          TypeIndex
	Pointee         TypeNode
	Kind            PointerKind
	Mode            PointerMode
	Const           bool
	Volatile        bool
	Unaligned       bool
	Restrict        bool
	Size            uint8
	ContainingClass TypeNode // member pointers only
}

// Array is a fixed-size array. Nested arrays flatten into Dimensions,
// outermost first.
type Array struct {
	Index      TypeIndex
	Element    TypeNode
	IndexType  TypeNode
	Size       uint64
	Dimensions []uint64
	Name       string
}

// Enumerator is one named value of an enum.
type Enumerator struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Enum is an enumeration type.
type Enum struct {
	Index       TypeIndex
	Name        string
	UniqueName  string
	Underlying  TypeNode
	Enumerators []Enumerator
	Properties  Properties
	Forward     bool
}

// BaseClass is a direct or virtual base of a class.
type BaseClass struct {
	Type     TypeNode
	Offset   uint64 // virtual bases: offset of the virtual base pointer
	Access   Access
	Virtual  bool
	Indirect bool
}

// Field is a data member.
type Field struct {
	Name        string
	Offset      uint64
	Type        TypeNode
	Access      Access
	Static      bool
	IsBitfield  bool
	BitWidth    uint8
	BitPosition uint8
}

// Method is a member function.
type Method struct {
	Name         string
	Signature    TypeNode
	Access       Access
	Property     MethodProperty
	VTableOffset uint32
}

// NestedType is a type declared inside a class.
type NestedType struct {
	Name string
	Type TypeNode
}

// Class is a class, struct, union or interface.
type Class struct {
	Index         TypeIndex
	Kind          ClassKind
	Name          string
	UniqueName    string
	Size          uint64
	Properties    Properties
	Forward       bool // declaration only, no definition found
	Bases         []BaseClass
	Fields        []Field
	Methods       []Method
	Nested        []NestedType
	VTablePointer TypeNode
}

// Function is a procedure or member function signature.
type Function struct {
	Index             TypeIndex
	Return            TypeNode
	Params            []TypeNode
	CallingConvention CallingConvention
	Attributes        uint8
	// Member functions only.
	Class      TypeNode
	This       TypeNode
	ThisAdjust int32
}

// IsMember reports whether the function is a member function.
func (f *Function) IsMember() bool { return f.Class != nil }

// Modifier adds cv-qualifiers to a type.
type Modifier struct {
	Index      TypeIndex
	Underlying TypeNode
	Const      bool
	Volatile   bool
	Unaligned  bool
}

// Bitfield is the type of a bit-field member.
type Bitfield struct {
	Index      TypeIndex
	Underlying TypeNode
	Length     uint8
	Position   uint8
}

// Opaque stands in for leaf kinds that are not modeled.
type Opaque struct {
	Index TypeIndex
	Leaf  uint16
}

func (n *Primitive) ID() TypeIndex { return n.Index }
func (n *Pointer) ID() TypeIndex   { return n.Index }
func (n *Array) ID() TypeIndex     { return n.Index }
func (n *Enum) ID() TypeIndex      { return n.Index }
func (n *Class) ID() TypeIndex     { return n.Index }
func (n *Function) ID() TypeIndex  { return n.Index }
func (n *Modifier) ID() TypeIndex  { return n.Index }
func (n *Bitfield) ID() TypeIndex  { return n.Index }
func (n *Opaque) ID() TypeIndex    { return n.Index }

func (*Primitive) typeNode() {}
func (*Pointer) typeNode()   {}
func (*Array) typeNode()     {}
func (*Enum) typeNode()      {}
func (*Class) typeNode()     {}
func (*Function) typeNode()  {}
func (*Modifier) typeNode()  {}
func (*Bitfield) typeNode()  {}
func (*Opaque) typeNode()    {}

// SizeOf returns the storage size of a node in bytes, 0 when unknown.
func SizeOf(n TypeNode) uint64 {
	return sizeOf(n, 0)
}

func sizeOf(n TypeNode, depth int) uint64 {
	if depth > 64 {
		return 0
	}
	switch t := n.(type) {
	case *Primitive:
		return t.Kind.Size()
	case *Pointer:
		return uint64(t.Size)
	case *Array:
		return t.Size
	case *Class:
		return t.Size
	case *Enum:
		return sizeOf(t.Underlying, depth+1)
	case *Modifier:
		return sizeOf(t.Underlying, depth+1)
	case *Bitfield:
		return sizeOf(t.Underlying, depth+1)
	}
	return 0
}

// NameOf returns the declared name of named nodes.
func NameOf(n TypeNode) string {
	switch t := n.(type) {
	case *Class:
		return t.Name
	case *Enum:
		return t.Name
	case *Array:
		return t.Name
	}
	return ""
}
