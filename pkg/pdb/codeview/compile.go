package codeview

import (
	"encoding/binary"
	"fmt"

	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// Language is the CV_CFL_LANG source language of a compiland.
type Language uint8

var languageNames = map[Language]string{
	0x00: "C",
	0x01: "C++",
	0x02: "Fortran",
	0x03: "MASM",
	0x04: "Pascal",
	0x05: "Basic",
	0x06: "COBOL",
	0x07: "LINK",
	0x08: "CVTRES",
	0x09: "CVTPGD",
	0x0a: "C#",
	0x0b: "Visual Basic",
	0x0c: "ILASM",
	0x0d: "Java",
	0x0e: "JScript",
	0x0f: "MSIL",
	0x10: "HLSL",
	0x11: "Objective-C",
	0x12: "Objective-C++",
	0x13: "Swift",
	0x14: "AliasObj",
	0x15: "Rust",
	0x16: "Go",
	0x44: "D",
}

func (l Language) String() string {
	if s, ok := languageNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(0x%02x)", uint8(l))
}

// MarshalText renders the language by name.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// CPU is the CV_CPU_TYPE_e target machine of a compiland.
type CPU uint16

var cpuNames = map[CPU]string{
	0x00: "Intel8080",
	0x01: "Intel8086",
	0x02: "Intel80286",
	0x03: "Intel80386",
	0x04: "Intel80486",
	0x05: "Pentium",
	0x06: "PentiumPro",
	0x07: "Pentium3",
	0x10: "MIPS",
	0x11: "MIPS16",
	0x12: "MIPS32",
	0x13: "MIPS64",
	0x14: "MIPSI",
	0x15: "MIPSII",
	0x16: "MIPSIII",
	0x17: "MIPSIV",
	0x18: "MIPSV",
	0x20: "M68000",
	0x21: "M68010",
	0x22: "M68020",
	0x23: "M68030",
	0x24: "M68040",
	0x30: "Alpha",
	0x31: "Alpha21164",
	0x32: "Alpha21164A",
	0x33: "Alpha21264",
	0x34: "Alpha21364",
	0x40: "PPC601",
	0x41: "PPC603",
	0x42: "PPC604",
	0x43: "PPC620",
	0x44: "PPCFP",
	0x45: "PPCBE",
	0x50: "SH3",
	0x51: "SH3E",
	0x52: "SH3DSP",
	0x53: "SH4",
	0x54: "SHMedia",
	0x60: "ARM3",
	0x61: "ARM4",
	0x62: "ARM4T",
	0x63: "ARM5",
	0x64: "ARM5T",
	0x65: "ARM6",
	0x66: "ARM_XMAC",
	0x67: "ARM_WMMX",
	0x68: "ARM7",
	0x70: "Omni",
	0x80: "Ia64",
	0x81: "Ia64_2",
	0x90: "CEE",
	0xa0: "AM33",
	0xb0: "M32R",
	0xc0: "TriCore",
	0xd0: "X64",
	0xe0: "EBC",
	0xf0: "Thumb",
	0xf4: "ARMNT",
	0xf6: "ARM64",
	0xf7: "HybridX86ARM64",
	0xf8: "ARM64EC",
	0xf9: "ARM64X",
	0xfe: "D3D11_Shader",
}

func (c CPU) String() string {
	if s, ok := cpuNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(0x%04x)", uint16(c))
}

// MarshalText renders the CPU by name.
func (c CPU) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// CompilerVersion is a frontend or backend version. QFE is only recorded
// by S_COMPILE3.
type CompilerVersion struct {
	Major  uint16 `json:"major"`
	Minor  uint16 `json:"minor"`
	Build  uint16 `json:"build"`
	QFE    uint16 `json:"qfe,omitempty"`
	HasQFE bool   `json:"has_qfe"`
}

func (v CompilerVersion) String() string {
	if v.HasQFE {
		return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.QFE)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// CompileFlags are the boolean options of a compile record.
type CompileFlags struct {
	EditAndContinue bool `json:"edit_and_continue"`
	NoDebugInfo     bool `json:"no_debug_info"`
	LinkTimeCodegen bool `json:"link_time_codegen"`
	NoDataAlign     bool `json:"no_data_align"`
	Managed         bool `json:"managed"`
	SecurityChecks  bool `json:"security_checks"`
	HotPatch        bool `json:"hot_patch"`
	CvtCIL          bool `json:"cvtcil"`
	MSILModule      bool `json:"msil_module"`
	SDL             bool `json:"sdl"`
	PGO             bool `json:"pgo"`
	ExpModule       bool `json:"exp_module"`
}

// CompilerInfo is a decoded S_COMPILE2 or S_COMPILE3 record.
type CompilerInfo struct {
	Language      Language        `json:"language"`
	CPU           CPU             `json:"cpu"`
	Frontend      CompilerVersion `json:"frontend_version"`
	Backend       CompilerVersion `json:"backend_version"`
	VersionString string          `json:"version_string"`
	Flags         CompileFlags    `json:"flags"`
}

// decodeCompileFlags reads flag bits 8 and up of the first compile word.
// SDL, PGO and Exp only exist in S_COMPILE3.
func decodeCompileFlags(word uint32, compile3 bool) CompileFlags {
	bit := func(n uint) bool { return word&(1<<n) != 0 }
	f := CompileFlags{
		EditAndContinue: bit(8),
		NoDebugInfo:     bit(9),
		LinkTimeCodegen: bit(10),
		NoDataAlign:     bit(11),
		Managed:         bit(12),
		SecurityChecks:  bit(13),
		HotPatch:        bit(14),
		CvtCIL:          bit(15),
		MSILModule:      bit(16),
	}
	if compile3 {
		f.SDL = bit(17)
		f.PGO = bit(18)
		f.ExpModule = bit(19)
	}
	return f
}

// ParseCompile3 decodes an S_COMPILE3 record.
func ParseCompile3(rec SymbolRecord) (*CompilerInfo, error) {
	const fixed = 4 + 2 + 8 + 8
	d := rec.Data
	if len(d) < fixed {
		return nil, pdberr.TruncatedSymbolRecord(rec.Kind, len(d), fixed)
	}

	word := binary.LittleEndian.Uint32(d)
	u16 := func(off int) uint16 { return binary.LittleEndian.Uint16(d[off:]) }

	info := &CompilerInfo{
		Language: Language(word & 0xff),
		Flags:    decodeCompileFlags(word, true),
		CPU:      CPU(u16(4)),
		Frontend: CompilerVersion{Major: u16(6), Minor: u16(8), Build: u16(10), QFE: u16(12), HasQFE: true},
		Backend:  CompilerVersion{Major: u16(14), Minor: u16(16), Build: u16(18), QFE: u16(20), HasQFE: true},
	}
	info.VersionString, _ = streams.ParseString(d[fixed:])
	return info, nil
}

// ParseCompile2 decodes a legacy S_COMPILE2 record. Versions carry no QFE.
func ParseCompile2(rec SymbolRecord) (*CompilerInfo, error) {
	const fixed = 4 + 2 + 6 + 6
	d := rec.Data
	if len(d) < fixed {
		return nil, pdberr.TruncatedSymbolRecord(rec.Kind, len(d), fixed)
	}

	word := binary.LittleEndian.Uint32(d)
	u16 := func(off int) uint16 { return binary.LittleEndian.Uint16(d[off:]) }

	info := &CompilerInfo{
		Language: Language(word & 0xff),
		Flags:    decodeCompileFlags(word, false),
		CPU:      CPU(u16(4)),
		Frontend: CompilerVersion{Major: u16(6), Minor: u16(8), Build: u16(10)},
		Backend:  CompilerVersion{Major: u16(12), Minor: u16(14), Build: u16(16)},
	}
	info.VersionString, _ = streams.ParseString(d[fixed:])
	return info, nil
}

// ParseCompile decodes either compile record kind.
func ParseCompile(rec SymbolRecord) (*CompilerInfo, error) {
	switch rec.Kind {
	case S_COMPILE3:
		return ParseCompile3(rec)
	case S_COMPILE2:
		return ParseCompile2(rec)
	}
	return nil, fmt.Errorf("%s is not a compile record", SymbolKindName(rec.Kind))
}
