package streams

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// First type index (built-in types are below this)
const TypeIndexBegin = 0x1000

// LF_* type leaf constants (32-bit type index era).
const (
	LF_VTSHAPE = 0x000a
	LF_LABEL   = 0x000e
	LF_NULL    = 0x000f
	LF_NOTTRAN = 0x0010

	LF_MODIFIER  = 0x1001
	LF_POINTER   = 0x1002
	LF_PROCEDURE = 0x1008
	LF_MFUNCTION = 0x1009
	LF_COBOL0    = 0x100a
	LF_BARRAY    = 0x100b
	LF_VFTPATH   = 0x100d
	LF_OEM       = 0x100f
	LF_OEM2      = 0x1011

	LF_SKIP       = 0x1200
	LF_ARGLIST    = 0x1201
	LF_FIELDLIST  = 0x1203
	LF_DERIVED    = 0x1204
	LF_BITFIELD   = 0x1205
	LF_METHODLIST = 0x1206
	LF_DIMCONU    = 0x1207
	LF_DIMCONLU   = 0x1208
	LF_DIMVARU    = 0x1209
	LF_DIMVARLU   = 0x120a

	LF_BCLASS    = 0x1400
	LF_VBCLASS   = 0x1401
	LF_IVBCLASS  = 0x1402
	LF_INDEX     = 0x1404
	LF_VFUNCTAB  = 0x1409
	LF_FRIENDCLS = 0x140a
	LF_VFUNCOFF  = 0x140c

	LF_TYPESERVER2    = 0x1501
	LF_ENUMERATE      = 0x1502
	LF_ARRAY          = 0x1503
	LF_CLASS          = 0x1504
	LF_STRUCTURE      = 0x1505
	LF_UNION          = 0x1506
	LF_ENUM           = 0x1507
	LF_DIMARRAY       = 0x1508
	LF_PRECOMP        = 0x1509
	LF_ALIAS          = 0x150a
	LF_DEFARG         = 0x150b
	LF_FRIENDFCN      = 0x150c
	LF_MEMBER         = 0x150d
	LF_STMEMBER       = 0x150e
	LF_METHOD         = 0x150f
	LF_NESTTYPE       = 0x1510
	LF_ONEMETHOD      = 0x1511
	LF_NESTTYPEEX     = 0x1512
	LF_MEMBERMODIFY   = 0x1513
	LF_MANAGED        = 0x1514
	LF_TYPESERVER     = 0x1515
	LF_STRIDED_ARRAY  = 0x1516
	LF_HLSL           = 0x1517
	LF_MODIFIER_EX    = 0x1518
	LF_INTERFACE      = 0x1519
	LF_BINTERFACE     = 0x151a
	LF_VECTOR         = 0x151b
	LF_MATRIX         = 0x151c
	LF_VFTABLE        = 0x151d

	LF_FUNC_ID          = 0x1601
	LF_MFUNC_ID         = 0x1602
	LF_BUILDINFO        = 0x1603
	LF_SUBSTR_LIST      = 0x1604
	LF_STRING_ID        = 0x1605
	LF_UDT_SRC_LINE     = 0x1606
	LF_UDT_MOD_SRC_LINE = 0x1607
)

// Numeric leaf prefixes.
const (
	LF_NUMERIC   = 0x8000
	LF_CHAR      = 0x8000
	LF_SHORT     = 0x8001
	LF_USHORT    = 0x8002
	LF_LONG      = 0x8003
	LF_ULONG     = 0x8004
	LF_QUADWORD  = 0x8009
	LF_UQUADWORD = 0x800a
)

// Padding bytes inside field lists are LF_PAD0..LF_PAD15.
const LF_PAD0 = 0xf0

// ParseNumeric parses a numeric leaf value from the data.
// Returns the value and the number of bytes consumed; 0 bytes consumed means
// the leaf was truncated or of an unsupported width.
// Signed encodings are sign-extended into the result.
func ParseNumeric(data []byte) (uint64, int) {
	if len(data) < 2 {
		return 0, 0
	}

	val := binary.LittleEndian.Uint16(data)
	if val < LF_NUMERIC {
		return uint64(val), 2
	}

	switch val {
	case LF_CHAR:
		if len(data) < 3 {
			return 0, 0
		}
		return uint64(int64(int8(data[2]))), 3
	case LF_SHORT:
		if len(data) < 4 {
			return 0, 0
		}
		return uint64(int64(int16(binary.LittleEndian.Uint16(data[2:])))), 4
	case LF_USHORT:
		if len(data) < 4 {
			return 0, 0
		}
		return uint64(binary.LittleEndian.Uint16(data[2:])), 4
	case LF_LONG:
		if len(data) < 6 {
			return 0, 0
		}
		return uint64(int64(int32(binary.LittleEndian.Uint32(data[2:])))), 6
	case LF_ULONG:
		if len(data) < 6 {
			return 0, 0
		}
		return uint64(binary.LittleEndian.Uint32(data[2:])), 6
	case LF_QUADWORD, LF_UQUADWORD:
		if len(data) < 10 {
			return 0, 0
		}
		return binary.LittleEndian.Uint64(data[2:]), 10
	default:
		return 0, 0
	}
}

// ParseString parses a null-terminated string from data.
// Returns the string and number of bytes consumed (including null).
func ParseString(data []byte) (string, int) {
	idx := bytes.IndexByte(data, 0)
	if idx == -1 {
		return string(data), len(data)
	}
	return string(data[:idx]), idx + 1
}

// IsTypeLeaf reports whether a record of this kind denotes a type on its own,
// as opposed to a helper record (field list, argument list, ...) that only
// exists to be referenced from one.
func IsTypeLeaf(kind uint16) bool {
	switch kind {
	case LF_MODIFIER, LF_POINTER, LF_PROCEDURE, LF_MFUNCTION, LF_BITFIELD,
		LF_ARRAY, LF_CLASS, LF_STRUCTURE, LF_UNION, LF_ENUM, LF_INTERFACE:
		return true
	}
	return false
}

// LeafKindName returns the name for a LF_* constant.
func LeafKindName(kind uint16) string {
	switch kind {
	case LF_VTSHAPE:
		return "LF_VTSHAPE"
	case LF_LABEL:
		return "LF_LABEL"
	case LF_MODIFIER:
		return "LF_MODIFIER"
	case LF_POINTER:
		return "LF_POINTER"
	case LF_PROCEDURE:
		return "LF_PROCEDURE"
	case LF_MFUNCTION:
		return "LF_MFUNCTION"
	case LF_ARGLIST:
		return "LF_ARGLIST"
	case LF_FIELDLIST:
		return "LF_FIELDLIST"
	case LF_BITFIELD:
		return "LF_BITFIELD"
	case LF_METHODLIST:
		return "LF_METHODLIST"
	case LF_BCLASS:
		return "LF_BCLASS"
	case LF_VBCLASS:
		return "LF_VBCLASS"
	case LF_IVBCLASS:
		return "LF_IVBCLASS"
	case LF_INDEX:
		return "LF_INDEX"
	case LF_VFUNCTAB:
		return "LF_VFUNCTAB"
	case LF_ENUMERATE:
		return "LF_ENUMERATE"
	case LF_ARRAY:
		return "LF_ARRAY"
	case LF_CLASS:
		return "LF_CLASS"
	case LF_STRUCTURE:
		return "LF_STRUCTURE"
	case LF_UNION:
		return "LF_UNION"
	case LF_ENUM:
		return "LF_ENUM"
	case LF_INTERFACE:
		return "LF_INTERFACE"
	case LF_MEMBER:
		return "LF_MEMBER"
	case LF_STMEMBER:
		return "LF_STMEMBER"
	case LF_METHOD:
		return "LF_METHOD"
	case LF_NESTTYPE:
		return "LF_NESTTYPE"
	case LF_ONEMETHOD:
		return "LF_ONEMETHOD"
	case LF_VFTABLE:
		return "LF_VFTABLE"
	case LF_FUNC_ID:
		return "LF_FUNC_ID"
	case LF_MFUNC_ID:
		return "LF_MFUNC_ID"
	case LF_BUILDINFO:
		return "LF_BUILDINFO"
	case LF_SUBSTR_LIST:
		return "LF_SUBSTR_LIST"
	case LF_STRING_ID:
		return "LF_STRING_ID"
	case LF_UDT_SRC_LINE:
		return "LF_UDT_SRC_LINE"
	case LF_UDT_MOD_SRC_LINE:
		return "LF_UDT_MOD_SRC_LINE"
	default:
		return fmt.Sprintf("LF_0x%04x", kind)
	}
}
