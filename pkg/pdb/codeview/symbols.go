// Package codeview decodes CodeView symbol and type records and resolves
// type indices into a linked type graph.
package codeview

import (
	"encoding/binary"
	"fmt"

	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// Symbol kinds (S_* values, 32-bit type index era).
const (
	S_END            = 0x0006
	S_OBJNAME        = 0x1101
	S_THUNK32        = 0x1102
	S_BLOCK32        = 0x1103
	S_LABEL32        = 0x1105
	S_REGISTER       = 0x1106
	S_CONSTANT       = 0x1107
	S_UDT            = 0x1108
	S_BPREL32        = 0x110b
	S_LDATA32        = 0x110c
	S_GDATA32        = 0x110d
	S_PUB32          = 0x110e
	S_LPROC32        = 0x110f
	S_GPROC32        = 0x1110
	S_REGREL32       = 0x1111
	S_LTHREAD32      = 0x1112
	S_GTHREAD32      = 0x1113
	S_LPROCMIPS      = 0x1114
	S_GPROCMIPS      = 0x1115
	S_COMPILE2       = 0x1116
	S_LPROCIA64      = 0x1118
	S_GPROCIA64      = 0x1119
	S_LMANDATA       = 0x111c
	S_GMANDATA       = 0x111d
	S_UNAMESPACE     = 0x1124
	S_PROCREF        = 0x1125
	S_DATAREF        = 0x1126
	S_LPROCREF       = 0x1127
	S_GMANPROC       = 0x112a
	S_LMANPROC       = 0x112b
	S_TRAMPOLINE     = 0x112c
	S_SECTION        = 0x1136
	S_COFFGROUP      = 0x1137
	S_EXPORT         = 0x1138
	S_CALLSITEINFO   = 0x1139
	S_FRAMECOOKIE    = 0x113a
	S_COMPILE3       = 0x113c
	S_ENVBLOCK       = 0x113d
	S_LOCAL          = 0x113e
	S_LPROC32_ID     = 0x1146
	S_GPROC32_ID     = 0x1147
	S_LPROCMIPS_ID   = 0x1148
	S_GPROCMIPS_ID   = 0x1149
	S_LPROCIA64_ID   = 0x114a
	S_GPROCIA64_ID   = 0x114b
	S_BUILDINFO      = 0x114c
	S_INLINESITE     = 0x114d
	S_INLINESITE_END = 0x114e
	S_PROC_ID_END    = 0x114f
	S_FILESTATIC     = 0x1153
	S_LPROC32_DPC    = 0x1155
	S_LPROC32_DPC_ID = 0x1156
	S_HEAPALLOCSITE  = 0x115e
)

// Public symbol flags.
const (
	PubCode     = 0x1
	PubFunction = 0x2
	PubManaged  = 0x4
	PubMSIL     = 0x8
)

// SymbolRecord is a raw symbol record.
type SymbolRecord struct {
	Kind uint16
	Data []byte
}

// SymbolClass groups symbol kinds by how the collector treats them.
type SymbolClass int

const (
	ClassOther SymbolClass = iota
	ClassPublic
	ClassProcedure
	ClassData
	ClassLabel
	ClassCompile
	ClassBuildInfo
	ClassObjName
)

func (c SymbolClass) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassProcedure:
		return "procedure"
	case ClassData:
		return "data"
	case ClassLabel:
		return "label"
	case ClassCompile:
		return "compile"
	case ClassBuildInfo:
		return "buildinfo"
	case ClassObjName:
		return "objname"
	default:
		return "other"
	}
}

// Classify maps a symbol kind to its class.
func Classify(kind uint16) SymbolClass {
	switch kind {
	case S_PUB32:
		return ClassPublic
	case S_GPROC32, S_LPROC32, S_GPROC32_ID, S_LPROC32_ID,
		S_LPROC32_DPC, S_LPROC32_DPC_ID,
		S_GPROCIA64, S_LPROCIA64, S_GPROCIA64_ID, S_LPROCIA64_ID,
		S_GPROCMIPS, S_LPROCMIPS, S_GPROCMIPS_ID, S_LPROCMIPS_ID:
		return ClassProcedure
	case S_GDATA32, S_LDATA32, S_GMANDATA, S_LMANDATA, S_GTHREAD32, S_LTHREAD32:
		return ClassData
	case S_LABEL32:
		return ClassLabel
	case S_COMPILE2, S_COMPILE3:
		return ClassCompile
	case S_BUILDINFO:
		return ClassBuildInfo
	case S_OBJNAME:
		return ClassObjName
	}
	return ClassOther
}

// ParseSymbols splits a symbol substream into records. Records are
// referenced, not copied.
func ParseSymbols(data []byte) ([]SymbolRecord, error) {
	var symbols []SymbolRecord

	for offset := 0; offset < len(data); {
		if offset+4 > len(data) {
			return nil, pdberr.TruncatedSymbolRecord(0, len(data)-offset, 4)
		}
		recLen := int(binary.LittleEndian.Uint16(data[offset:]))
		kind := binary.LittleEndian.Uint16(data[offset+2:])
		if recLen < 2 || offset+2+recLen > len(data) {
			return nil, pdberr.TruncatedSymbolRecord(kind, len(data)-offset-2, recLen)
		}

		symbols = append(symbols, SymbolRecord{Kind: kind, Data: data[offset+4 : offset+2+recLen]})
		offset += 2 + recLen
	}

	return symbols, nil
}

// ProcSym is a procedure symbol (S_GPROC32, S_LPROC32 and their _ID and
// DPC variants, plus the MIPS and IA64 forms).
type ProcSym struct {
	Kind      uint16
	Length    uint32
	DbgStart  uint32
	DbgEnd    uint32
	TypeIndex uint32 // a type index, or an IPI item id for _ID kinds
	Offset    uint32
	Segment   uint16
	Flags     uint8
	Name      string
}

// procLayout holds the field offsets of one procedure record layout. The
// parent, end and next scope pointers and the length and debug range lead
// every layout. flags is -1 when the layout has no flags byte.
type procLayout struct {
	typ, off, seg, flags, name int
}

var (
	procLayout32   = procLayout{typ: 24, off: 28, seg: 32, flags: 34, name: 35}
	procLayoutMIPS = procLayout{typ: 40, off: 44, seg: 48, flags: -1, name: 52} // register save masks precede typind
	procLayoutIA64 = procLayout{typ: 24, off: 28, seg: 32, flags: 36, name: 37} // retReg precedes flags
)

func procLayoutOf(kind uint16) procLayout {
	switch kind {
	case S_GPROCMIPS, S_LPROCMIPS, S_GPROCMIPS_ID, S_LPROCMIPS_ID:
		return procLayoutMIPS
	case S_GPROCIA64, S_LPROCIA64, S_GPROCIA64_ID, S_LPROCIA64_ID:
		return procLayoutIA64
	}
	return procLayout32
}

// ParseProcSym parses a procedure symbol record.
func ParseProcSym(rec SymbolRecord) (*ProcSym, error) {
	d := rec.Data
	l := procLayoutOf(rec.Kind)
	if len(d) < l.name {
		return nil, pdberr.TruncatedSymbolRecord(rec.Kind, len(d), l.name)
	}

	proc := &ProcSym{
		Kind:      rec.Kind,
		Length:    binary.LittleEndian.Uint32(d[12:]),
		DbgStart:  binary.LittleEndian.Uint32(d[16:]),
		DbgEnd:    binary.LittleEndian.Uint32(d[20:]),
		TypeIndex: binary.LittleEndian.Uint32(d[l.typ:]),
		Offset:    binary.LittleEndian.Uint32(d[l.off:]),
		Segment:   binary.LittleEndian.Uint16(d[l.seg:]),
	}
	if l.flags >= 0 {
		proc.Flags = d[l.flags]
	}
	proc.Name, _ = streams.ParseString(d[l.name:])
	return proc, nil
}

// Global reports whether the procedure has external linkage.
func (p *ProcSym) Global() bool {
	switch p.Kind {
	case S_GPROC32, S_GPROC32_ID, S_GPROCIA64, S_GPROCIA64_ID, S_GPROCMIPS, S_GPROCMIPS_ID:
		return true
	}
	return false
}

// IDBacked reports whether TypeIndex is an IPI item id.
func (p *ProcSym) IDBacked() bool {
	switch p.Kind {
	case S_GPROC32_ID, S_LPROC32_ID, S_LPROC32_DPC_ID, S_GPROCIA64_ID, S_LPROCIA64_ID,
		S_GPROCMIPS_ID, S_LPROCMIPS_ID:
		return true
	}
	return false
}

// DPC reports whether the procedure is a deferred procedure call.
func (p *ProcSym) DPC() bool {
	return p.Kind == S_LPROC32_DPC || p.Kind == S_LPROC32_DPC_ID
}

// DataSym is a data symbol (S_GDATA32, S_LDATA32, thread-local and managed
// variants).
type DataSym struct {
	Kind      uint16
	TypeIndex uint32
	Offset    uint32
	Segment   uint16
	Name      string
}

const dataSymFixed = 10

// ParseDataSym parses a data symbol record.
func ParseDataSym(rec SymbolRecord) (*DataSym, error) {
	d := rec.Data
	if len(d) < dataSymFixed {
		return nil, pdberr.TruncatedSymbolRecord(rec.Kind, len(d), dataSymFixed)
	}

	sym := &DataSym{
		Kind:      rec.Kind,
		TypeIndex: binary.LittleEndian.Uint32(d[0:]),
		Offset:    binary.LittleEndian.Uint32(d[4:]),
		Segment:   binary.LittleEndian.Uint16(d[8:]),
	}
	sym.Name, _ = streams.ParseString(d[dataSymFixed:])
	return sym, nil
}

func (d *DataSym) Global() bool {
	return d.Kind == S_GDATA32 || d.Kind == S_GMANDATA || d.Kind == S_GTHREAD32
}

func (d *DataSym) Managed() bool {
	return d.Kind == S_GMANDATA || d.Kind == S_LMANDATA
}

func (d *DataSym) ThreadLocal() bool {
	return d.Kind == S_GTHREAD32 || d.Kind == S_LTHREAD32
}

// PubSym is a public symbol (S_PUB32).
type PubSym struct {
	Flags   uint32
	Offset  uint32
	Segment uint16
	Name    string
}

// ParsePubSym parses a public symbol record.
func ParsePubSym(rec SymbolRecord) (*PubSym, error) {
	d := rec.Data
	if len(d) < 10 {
		return nil, pdberr.TruncatedSymbolRecord(rec.Kind, len(d), 10)
	}

	pub := &PubSym{
		Flags:   binary.LittleEndian.Uint32(d[0:]),
		Offset:  binary.LittleEndian.Uint32(d[4:]),
		Segment: binary.LittleEndian.Uint16(d[8:]),
	}
	pub.Name, _ = streams.ParseString(d[10:])
	return pub, nil
}

// LabelSym is a code label (S_LABEL32).
type LabelSym struct {
	Offset  uint32
	Segment uint16
	Flags   uint8
	Name    string
}

// ParseLabelSym parses a label symbol record.
func ParseLabelSym(rec SymbolRecord) (*LabelSym, error) {
	d := rec.Data
	if len(d) < 7 {
		return nil, pdberr.TruncatedSymbolRecord(rec.Kind, len(d), 7)
	}

	label := &LabelSym{
		Offset:  binary.LittleEndian.Uint32(d[0:]),
		Segment: binary.LittleEndian.Uint16(d[4:]),
		Flags:   d[6],
	}
	label.Name, _ = streams.ParseString(d[7:])
	return label, nil
}

// ParseObjNameSym returns the object file path of an S_OBJNAME record.
func ParseObjNameSym(rec SymbolRecord) (string, error) {
	if len(rec.Data) < 4 {
		return "", pdberr.TruncatedSymbolRecord(rec.Kind, len(rec.Data), 4)
	}
	name, _ := streams.ParseString(rec.Data[4:])
	return name, nil
}

// ParseBuildInfoSym returns the IPI item id referenced by an S_BUILDINFO.
func ParseBuildInfoSym(rec SymbolRecord) (TypeIndex, error) {
	if len(rec.Data) < 4 {
		return 0, pdberr.TruncatedSymbolRecord(rec.Kind, len(rec.Data), 4)
	}
	return TypeIndex(binary.LittleEndian.Uint32(rec.Data)), nil
}

// SymbolKindName returns the name for a symbol kind constant.
func SymbolKindName(kind uint16) string {
	if name, ok := symbolKindNames[kind]; ok {
		return name
	}
	return fmt.Sprintf("S_0x%04x", kind)
}

var symbolKindNames = map[uint16]string{
	S_END:            "S_END",
	S_OBJNAME:        "S_OBJNAME",
	S_THUNK32:        "S_THUNK32",
	S_BLOCK32:        "S_BLOCK32",
	S_LABEL32:        "S_LABEL32",
	S_CONSTANT:       "S_CONSTANT",
	S_UDT:            "S_UDT",
	S_LDATA32:        "S_LDATA32",
	S_GDATA32:        "S_GDATA32",
	S_PUB32:          "S_PUB32",
	S_LPROC32:        "S_LPROC32",
	S_GPROC32:        "S_GPROC32",
	S_REGREL32:       "S_REGREL32",
	S_LTHREAD32:      "S_LTHREAD32",
	S_GTHREAD32:      "S_GTHREAD32",
	S_COMPILE2:       "S_COMPILE2",
	S_LMANDATA:       "S_LMANDATA",
	S_GMANDATA:       "S_GMANDATA",
	S_UNAMESPACE:     "S_UNAMESPACE",
	S_PROCREF:        "S_PROCREF",
	S_DATAREF:        "S_DATAREF",
	S_LPROCREF:       "S_LPROCREF",
	S_SECTION:        "S_SECTION",
	S_COFFGROUP:      "S_COFFGROUP",
	S_COMPILE3:       "S_COMPILE3",
	S_ENVBLOCK:       "S_ENVBLOCK",
	S_LOCAL:          "S_LOCAL",
	S_LPROC32_ID:     "S_LPROC32_ID",
	S_GPROC32_ID:     "S_GPROC32_ID",
	S_BUILDINFO:      "S_BUILDINFO",
	S_INLINESITE:     "S_INLINESITE",
	S_INLINESITE_END: "S_INLINESITE_END",
	S_PROC_ID_END:    "S_PROC_ID_END",
	S_LPROC32_DPC:    "S_LPROC32_DPC",
	S_LPROC32_DPC_ID: "S_LPROC32_DPC_ID",
	S_HEAPALLOCSITE:  "S_HEAPALLOCSITE",
}
