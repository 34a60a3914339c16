package testutil

// Symbol kinds used by the builders.
const (
	SEnd        = 0x0006
	SObjName    = 0x1101
	SLabel32    = 0x1105
	SLData32    = 0x110c
	SGData32    = 0x110d
	SPub32      = 0x110e
	SLProc32    = 0x110f
	SGProc32    = 0x1110
	SLThread32  = 0x1112
	SGThread32  = 0x1113
	SCompile2   = 0x1116
	SLManData   = 0x111c
	SGManData   = 0x111d
	SCompile3   = 0x113c
	SLProc32ID  = 0x1146
	SGProc32ID  = 0x1147
	SBuildInfo  = 0x114c
	SLProc32DPC = 0x1155
	SGProcRef   = 0x1125
	SUDT        = 0x1108
)

// Public symbol flags.
const (
	PubCode     = 0x1
	PubFunction = 0x2
)

// Symbol encodes a symbol record: length, kind, payload.
func Symbol(kind uint16, payload ...[]byte) []byte {
	body := Cat(payload...)
	return Cat(U16(uint16(len(body)+2)), U16(kind), body)
}

// Public encodes an S_PUB32.
func Public(flags uint32, seg uint16, off uint32, name string) []byte {
	return Symbol(SPub32, U32(flags), U32(off), U16(seg), Str(name))
}

// Proc describes a procedure symbol.
type Proc struct {
	Kind     uint16
	Name     string
	Segment  uint16
	Offset   uint32
	Length   uint32
	DbgStart uint32
	DbgEnd   uint32
	Type     uint32
	Flags    uint8
}

// Bytes encodes the procedure record.
func (p Proc) Bytes() []byte {
	kind := p.Kind
	if kind == 0 {
		kind = SGProc32
	}
	return Symbol(kind,
		U32(0), U32(0), U32(0), // parent, end, next
		U32(p.Length), U32(p.DbgStart), U32(p.DbgEnd), U32(p.Type),
		U32(p.Offset), U16(p.Segment), U8(p.Flags), Str(p.Name))
}

// Data encodes a data-shaped symbol (S_GDATA32, S_LDATA32, S_*THREAD32,
// S_*MANDATA).
func Data(kind uint16, typ uint32, seg uint16, off uint32, name string) []byte {
	return Symbol(kind, U32(typ), U32(off), U16(seg), Str(name))
}

// Label encodes an S_LABEL32.
func Label(seg uint16, off uint32, name string) []byte {
	return Symbol(SLabel32, U32(off), U16(seg), U8(0), Str(name))
}

// ObjName encodes an S_OBJNAME.
func ObjName(name string) []byte {
	return Symbol(SObjName, U32(0), Str(name))
}

// BuildInfoSym encodes an S_BUILDINFO referencing an IPI item.
func BuildInfoSym(id uint32) []byte {
	return Symbol(SBuildInfo, U32(id))
}

// Compile3 encodes an S_COMPILE3. fe and be are major, minor, build, qfe.
func Compile3(flags uint32, machine uint16, fe, be [4]uint16, version string) []byte {
	return Symbol(SCompile3, U32(flags), U16(machine),
		U16(fe[0]), U16(fe[1]), U16(fe[2]), U16(fe[3]),
		U16(be[0]), U16(be[1]), U16(be[2]), U16(be[3]),
		Str(version))
}

// Compile2 encodes an S_COMPILE2. fe and be are major, minor, build.
func Compile2(flags uint32, machine uint16, fe, be [3]uint16, version string) []byte {
	return Symbol(SCompile2, U32(flags), U16(machine),
		U16(fe[0]), U16(fe[1]), U16(fe[2]),
		U16(be[0]), U16(be[1]), U16(be[2]),
		Str(version), U8(0))
}

// ChecksumEntry encodes one DEBUG_S_FILECHKSMS entry, aligned to four bytes.
func ChecksumEntry(nameOffset uint32, kind uint8, sum []byte) []byte {
	e := Cat(U32(nameOffset), U8(uint8(len(sum))), U8(kind), sum)
	for len(e)%4 != 0 {
		e = append(e, 0)
	}
	return e
}

// C13Subsection encodes a C13 debug subsection, aligned to four bytes.
func C13Subsection(kind uint32, body []byte) []byte {
	s := Cat(U32(kind), U32(uint32(len(body))), body)
	for len(s)%4 != 0 {
		s = append(s, 0)
	}
	return s
}

// ModuleStreamImage encodes a module stream: C13 signature, symbols, an
// empty C11 block and C13 line info. It returns the image with the symbol
// and C13 byte sizes to record in the DBI module info.
func ModuleStreamImage(symbols, c13 []byte) (img []byte, symBytes, c13Bytes uint32) {
	img = Cat(U32(4), symbols, c13)
	return img, uint32(4 + len(symbols)), uint32(len(c13))
}

// StringTableImage encodes a /names stream and returns the offset of
// each string.
func StringTableImage(strs ...string) ([]byte, map[string]uint32) {
	offsets := make(map[string]uint32, len(strs))
	buf := []byte{0}
	for _, s := range strs {
		offsets[s] = uint32(len(buf))
		buf = append(buf, Str(s)...)
	}
	img := Cat(U32(0xeffeeffe), U32(1), U32(uint32(len(buf))), buf, U32(0), U32(uint32(len(strs))))
	return img, offsets
}
