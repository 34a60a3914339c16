package codeview

import (
	"fmt"

	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
)

// PrimitiveKind identifies a built-in type by the low byte of its simple
// type index.
type PrimitiveKind uint8

const (
	PrimitiveNone       PrimitiveKind = 0x00
	PrimitiveAbs        PrimitiveKind = 0x01
	PrimitiveSegment    PrimitiveKind = 0x02
	PrimitiveVoid       PrimitiveKind = 0x03
	PrimitiveCurrency   PrimitiveKind = 0x04
	PrimitiveNBasicStr  PrimitiveKind = 0x05
	PrimitiveFBasicStr  PrimitiveKind = 0x06
	PrimitiveNotTrans   PrimitiveKind = 0x07
	PrimitiveHResult    PrimitiveKind = 0x08
	PrimitiveChar       PrimitiveKind = 0x10
	PrimitiveShort      PrimitiveKind = 0x11
	PrimitiveLong       PrimitiveKind = 0x12
	PrimitiveQuad       PrimitiveKind = 0x13
	PrimitiveOct        PrimitiveKind = 0x14
	PrimitiveUChar      PrimitiveKind = 0x20
	PrimitiveUShort     PrimitiveKind = 0x21
	PrimitiveULong      PrimitiveKind = 0x22
	PrimitiveUQuad      PrimitiveKind = 0x23
	PrimitiveUOct       PrimitiveKind = 0x24
	PrimitiveBool8      PrimitiveKind = 0x30
	PrimitiveBool16     PrimitiveKind = 0x31
	PrimitiveBool32     PrimitiveKind = 0x32
	PrimitiveBool64     PrimitiveKind = 0x33
	PrimitiveFloat32    PrimitiveKind = 0x40
	PrimitiveFloat64    PrimitiveKind = 0x41
	PrimitiveFloat80    PrimitiveKind = 0x42
	PrimitiveFloat128   PrimitiveKind = 0x43
	PrimitiveFloat48    PrimitiveKind = 0x44
	PrimitiveFloat32PP  PrimitiveKind = 0x45
	PrimitiveFloat16    PrimitiveKind = 0x46
	PrimitiveComplex32  PrimitiveKind = 0x50
	PrimitiveComplex64  PrimitiveKind = 0x51
	PrimitiveComplex80  PrimitiveKind = 0x52
	PrimitiveComplex128 PrimitiveKind = 0x53
	PrimitiveBit        PrimitiveKind = 0x60
	PrimitivePasChar    PrimitiveKind = 0x61
	PrimitiveBool32FF   PrimitiveKind = 0x62
	PrimitiveInt8       PrimitiveKind = 0x68
	PrimitiveUInt8      PrimitiveKind = 0x69
	PrimitiveRChar      PrimitiveKind = 0x70
	PrimitiveWChar      PrimitiveKind = 0x71
	PrimitiveInt16      PrimitiveKind = 0x72
	PrimitiveUInt16     PrimitiveKind = 0x73
	PrimitiveInt32      PrimitiveKind = 0x74
	PrimitiveUInt32     PrimitiveKind = 0x75
	PrimitiveInt64      PrimitiveKind = 0x76
	PrimitiveUInt64     PrimitiveKind = 0x77
	PrimitiveInt128     PrimitiveKind = 0x78
	PrimitiveUInt128    PrimitiveKind = 0x79
	PrimitiveChar16     PrimitiveKind = 0x7a
	PrimitiveChar32     PrimitiveKind = 0x7b
	PrimitiveChar8      PrimitiveKind = 0x7c

	// PrimitiveUnknown marks a code missing from the table. It is not a
	// valid simple type code.
	PrimitiveUnknown PrimitiveKind = 0xff
)

type primitiveInfo struct {
	name string
	size uint64
}

var primitives = map[PrimitiveKind]primitiveInfo{
	PrimitiveNone:       {"<no type>", 0},
	PrimitiveAbs:        {"<abs>", 0},
	PrimitiveSegment:    {"__segment", 2},
	PrimitiveVoid:       {"void", 0},
	PrimitiveCurrency:   {"CURRENCY", 8},
	PrimitiveNBasicStr:  {"<near basic string>", 0},
	PrimitiveFBasicStr:  {"<far basic string>", 0},
	PrimitiveNotTrans:   {"<not translated>", 0},
	PrimitiveHResult:    {"HRESULT", 4},
	PrimitiveChar:       {"signed char", 1},
	PrimitiveShort:      {"short", 2},
	PrimitiveLong:       {"long", 4},
	PrimitiveQuad:       {"__int64", 8},
	PrimitiveOct:        {"__int128", 16},
	PrimitiveUChar:      {"unsigned char", 1},
	PrimitiveUShort:     {"unsigned short", 2},
	PrimitiveULong:      {"unsigned long", 4},
	PrimitiveUQuad:      {"unsigned __int64", 8},
	PrimitiveUOct:       {"unsigned __int128", 16},
	PrimitiveBool8:      {"bool", 1},
	PrimitiveBool16:     {"__bool16", 2},
	PrimitiveBool32:     {"__bool32", 4},
	PrimitiveBool64:     {"__bool64", 8},
	PrimitiveFloat32:    {"float", 4},
	PrimitiveFloat64:    {"double", 8},
	PrimitiveFloat80:    {"long double", 10},
	PrimitiveFloat128:   {"__float128", 16},
	PrimitiveFloat48:    {"__float48", 6},
	PrimitiveFloat32PP:  {"__float32pp", 4},
	PrimitiveFloat16:    {"__half", 2},
	PrimitiveComplex32:  {"_Complex float", 8},
	PrimitiveComplex64:  {"_Complex double", 16},
	PrimitiveComplex80:  {"_Complex long double", 20},
	PrimitiveComplex128: {"_Complex __float128", 32},
	PrimitiveBit:        {"__bit", 0},
	PrimitivePasChar:    {"__pascal_char", 1},
	PrimitiveBool32FF:   {"__bool32ff", 4},
	PrimitiveInt8:       {"__int8", 1},
	PrimitiveUInt8:      {"unsigned __int8", 1},
	PrimitiveRChar:      {"char", 1},
	PrimitiveWChar:      {"wchar_t", 2},
	PrimitiveInt16:      {"__int16", 2},
	PrimitiveUInt16:     {"unsigned __int16", 2},
	PrimitiveInt32:      {"int", 4},
	PrimitiveUInt32:     {"unsigned int", 4},
	PrimitiveInt64:      {"__int64", 8},
	PrimitiveUInt64:     {"unsigned __int64", 8},
	PrimitiveInt128:     {"__int128", 16},
	PrimitiveUInt128:    {"unsigned __int128", 16},
	PrimitiveChar16:     {"char16_t", 2},
	PrimitiveChar32:     {"char32_t", 4},
	PrimitiveChar8:      {"char8_t", 1},
}

// LookupPrimitive maps the low byte of a simple type index to its kind.
// Codes outside the table yield PrimitiveUnknown and an error matching
// ErrUnknownPrimitive.
func LookupPrimitive(code uint32) (PrimitiveKind, error) {
	if code > 0xff {
		return PrimitiveUnknown, pdberr.UnknownPrimitive(code)
	}
	k := PrimitiveKind(code)
	if _, ok := primitives[k]; !ok {
		return PrimitiveUnknown, pdberr.UnknownPrimitive(code)
	}
	return k, nil
}

// Name returns the C spelling of the primitive.
func (k PrimitiveKind) Name() string {
	if p, ok := primitives[k]; ok {
		return p.name
	}
	return fmt.Sprintf("<unknown primitive 0x%02x>", uint8(k))
}

func (k PrimitiveKind) String() string { return k.Name() }

// Size returns the storage size in bytes, 0 for void and unsized kinds.
func (k PrimitiveKind) Size() uint64 {
	return primitives[k].size
}

// Simple type index layout: bits 0-7 kind, bits 8-11 pointer mode.
const (
	simpleKindMask = 0x00ff
	simpleModeMask = 0x0f00
)

// simple pointer modes and their sizes.
var simplePointerModes = map[uint32]struct {
	kind PointerKind
	size uint8
}{
	1: {PointerNear16, 2},
	2: {PointerFar16, 4},
	3: {PointerHuge16, 4},
	4: {PointerNear32, 4},
	5: {PointerFar32, 6},
	6: {PointerNear64, 8},
	7: {PointerNear64, 16}, // near128
}
