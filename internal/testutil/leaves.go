package testutil

// Leaf kinds used by the builders.
const (
	lfModifier  = 0x1001
	lfPointer   = 0x1002
	lfProcedure = 0x1008
	lfMFunction = 0x1009
	lfArgList   = 0x1201
	lfFieldList = 0x1203
	lfBitfield  = 0x1205
	lfMethodLst = 0x1206
	lfBClass    = 0x1400
	lfVBClass   = 0x1401
	lfIndex     = 0x1404
	lfVFuncTab  = 0x1409
	lfEnumerate = 0x1502
	lfArray     = 0x1503
	lfClass     = 0x1504
	lfStructure = 0x1505
	lfUnion     = 0x1506
	lfEnum      = 0x1507
	lfMember    = 0x150d
	lfStMember  = 0x150e
	lfMethod    = 0x150f
	lfNestType  = 0x1510
	lfOneMethod = 0x1511
	lfFuncID    = 0x1601
	lfMFuncID   = 0x1602
	lfBuildInfo = 0x1603
	lfStringID  = 0x1605
)

// Class property bits.
const (
	PropForwardRef = 0x0080
	PropHasUnique  = 0x0200
)

// Member access values.
const (
	AccessPrivate   = 1
	AccessProtected = 2
	AccessPublic    = 3
)

// Record is an encoded type record: its kind and payload.
type Record struct {
	Kind    uint16
	Payload []byte
}

// Bytes encodes the record with its length prefix.
func (r Record) Bytes() []byte {
	return Cat(U16(uint16(len(r.Payload)+2)), U16(r.Kind), r.Payload)
}

// Records concatenates encoded records.
func Records(recs ...Record) []byte {
	var out []byte
	for _, r := range recs {
		out = append(out, r.Bytes()...)
	}
	return out
}

// Pointer builds an LF_POINTER with the given attribute word.
func Pointer(target uint32, attrs uint32) Record {
	return Record{lfPointer, Cat(U32(target), U32(attrs))}
}

// Ptr64 builds a plain 64-bit near pointer to target.
func Ptr64(target uint32) Record {
	return Pointer(target, 0x0c|8<<13)
}

// MemberPointer builds a pointer-to-data-member (mode 2) into class.
func MemberPointer(target, class uint32) Record {
	return Record{lfPointer, Cat(U32(target), U32(0x0c|2<<5|8<<13), U32(class), U16(0))}
}

// Modifier builds an LF_MODIFIER; attrs: 1 const, 2 volatile, 4 unaligned.
func Modifier(underlying uint32, attrs uint16) Record {
	return Record{lfModifier, Cat(U32(underlying), U16(attrs))}
}

// Bitfield builds an LF_BITFIELD.
func Bitfield(underlying uint32, length, position uint8) Record {
	return Record{lfBitfield, Cat(U32(underlying), U8(length), U8(position))}
}

// Array builds an LF_ARRAY.
func Array(elem, index uint32, size int64, name string) Record {
	return Record{lfArray, Cat(U32(elem), U32(index), Numeric(size), Str(name))}
}

// ArgList builds an LF_ARGLIST.
func ArgList(args ...uint32) Record {
	p := U32(uint32(len(args)))
	for _, a := range args {
		p = append(p, U32(a)...)
	}
	return Record{lfArgList, p}
}

// Procedure builds an LF_PROCEDURE.
func Procedure(ret uint32, callConv uint8, nparams uint16, argList uint32) Record {
	return Record{lfProcedure, Cat(U32(ret), U8(callConv), U8(0), U16(nparams), U32(argList))}
}

// MFunction builds an LF_MFUNCTION.
func MFunction(ret, class, this uint32, callConv uint8, nparams uint16, argList uint32, thisAdjust int32) Record {
	return Record{lfMFunction, Cat(U32(ret), U32(class), U32(this), U8(callConv), U8(0),
		U16(nparams), U32(argList), I32(thisAdjust))}
}

// Struct builds an LF_STRUCTURE. A non-empty unique name sets the
// has-unique-name property.
func Struct(count uint16, prop uint16, fieldList uint32, size int64, name, unique string) Record {
	return Record{lfStructure, classPayload(count, prop, fieldList, size, name, unique)}
}

// Class builds an LF_CLASS.
func Class(count uint16, prop uint16, fieldList uint32, size int64, name, unique string) Record {
	return Record{lfClass, classPayload(count, prop, fieldList, size, name, unique)}
}

func classPayload(count uint16, prop uint16, fieldList uint32, size int64, name, unique string) []byte {
	if unique != "" {
		prop |= PropHasUnique
	}
	p := Cat(U16(count), U16(prop), U32(fieldList), U32(0), U32(0), Numeric(size), Str(name))
	if unique != "" {
		p = append(p, Str(unique)...)
	}
	return p
}

// Union builds an LF_UNION.
func Union(count uint16, prop uint16, fieldList uint32, size int64, name, unique string) Record {
	if unique != "" {
		prop |= PropHasUnique
	}
	p := Cat(U16(count), U16(prop), U32(fieldList), Numeric(size), Str(name))
	if unique != "" {
		p = append(p, Str(unique)...)
	}
	return Record{lfUnion, p}
}

// Enum builds an LF_ENUM.
func Enum(count uint16, prop uint16, underlying, fieldList uint32, name, unique string) Record {
	if unique != "" {
		prop |= PropHasUnique
	}
	p := Cat(U16(count), U16(prop), U32(underlying), U32(fieldList), Str(name))
	if unique != "" {
		p = append(p, Str(unique)...)
	}
	return Record{lfEnum, p}
}

// FieldList builds an LF_FIELDLIST from encoded sub-records.
func FieldList(fields ...[]byte) Record {
	var p []byte
	for _, f := range fields {
		p = Pad4(append(p, f...))
	}
	return Record{lfFieldList, p}
}

// MethodList builds an LF_METHODLIST of (attr, type) entries.
func MethodList(entries ...[2]uint32) Record {
	var p []byte
	for _, e := range entries {
		p = append(p, Cat(U16(uint16(e[0])), U16(0), U32(e[1]))...)
	}
	return Record{lfMethodLst, p}
}

// Member encodes an LF_MEMBER sub-record.
func Member(access uint16, typ uint32, offset int64, name string) []byte {
	return Cat(U16(lfMember), U16(access), U32(typ), Numeric(offset), Str(name))
}

// StaticMember encodes an LF_STMEMBER sub-record.
func StaticMember(access uint16, typ uint32, name string) []byte {
	return Cat(U16(lfStMember), U16(access), U32(typ), Str(name))
}

// BaseClass encodes an LF_BCLASS sub-record.
func BaseClass(access uint16, typ uint32, offset int64) []byte {
	return Cat(U16(lfBClass), U16(access), U32(typ), Numeric(offset))
}

// VirtualBaseClass encodes an LF_VBCLASS sub-record.
func VirtualBaseClass(access uint16, typ, vbptr uint32, vbpOff, vbIndex int64) []byte {
	return Cat(U16(lfVBClass), U16(access), U32(typ), U32(vbptr), Numeric(vbpOff), Numeric(vbIndex))
}

// Enumerate encodes an LF_ENUMERATE sub-record.
func Enumerate(name string, value int64) []byte {
	return Cat(U16(lfEnumerate), U16(AccessPublic), Numeric(value), Str(name))
}

// OneMethod encodes an LF_ONEMETHOD sub-record. attr carries access in
// bits 0-1 and the method property in bits 2-4; introducing virtuals
// (property 4 or 6) carry vtableOffset.
func OneMethod(attr uint16, typ uint32, vtableOffset uint32, name string) []byte {
	p := Cat(U16(lfOneMethod), U16(attr), U32(typ))
	if mprop := (attr >> 2) & 7; mprop == 4 || mprop == 6 {
		p = append(p, U32(vtableOffset)...)
	}
	return append(p, Str(name)...)
}

// Method encodes an LF_METHOD sub-record referencing a method list.
func Method(count uint16, methodList uint32, name string) []byte {
	return Cat(U16(lfMethod), U16(count), U32(methodList), Str(name))
}

// NestType encodes an LF_NESTTYPE sub-record.
func NestType(typ uint32, name string) []byte {
	return Cat(U16(lfNestType), U16(0), U32(typ), Str(name))
}

// VFuncTab encodes an LF_VFUNCTAB sub-record.
func VFuncTab(typ uint32) []byte {
	return Cat(U16(lfVFuncTab), U16(0), U32(typ))
}

// IndexContinuation encodes an LF_INDEX sub-record.
func IndexContinuation(next uint32) []byte {
	return Cat(U16(lfIndex), U16(0), U32(next))
}

// FuncID builds an IPI LF_FUNC_ID.
func FuncID(scope, typ uint32, name string) Record {
	return Record{lfFuncID, Cat(U32(scope), U32(typ), Str(name))}
}

// MFuncID builds an IPI LF_MFUNC_ID.
func MFuncID(parent, typ uint32, name string) Record {
	return Record{lfMFuncID, Cat(U32(parent), U32(typ), Str(name))}
}

// StringID builds an IPI LF_STRING_ID.
func StringID(substrings uint32, s string) Record {
	return Record{lfStringID, Cat(U32(substrings), Str(s))}
}

// BuildInfo builds an IPI LF_BUILDINFO over LF_STRING_ID items.
func BuildInfo(ids ...uint32) Record {
	p := U16(uint16(len(ids)))
	for _, id := range ids {
		p = append(p, U32(id)...)
	}
	return Record{lfBuildInfo, p}
}

// TPIImage encodes a complete TPI/IPI stream whose first record has index
// begin.
func TPIImage(begin uint32, recs ...Record) []byte {
	body := Records(recs...)
	header := Cat(
		U32(20040203), U32(56), U32(begin), U32(begin+uint32(len(recs))), U32(uint32(len(body))),
		U16(0xffff), U16(0xffff), U32(4), U32(0x3ffff),
		I32(0), U32(0), I32(0), U32(0), I32(0), U32(0),
	)
	return append(header, body...)
}
