package streams

import "fmt"

// CVSignatureC13 opens every module symbol substream written by VC 7.0+.
const CVSignatureC13 = 4

// C13 debug subsection kinds.
const (
	DebugSSymbols       = 0xf1
	DebugSLines         = 0xf2
	DebugSStringTable   = 0xf3
	DebugSFileChecksums = 0xf4
	DebugSFrameData     = 0xf5
	DebugSInlineeLines  = 0xf6

	debugSIgnore = 0x80000000
)

// Checksum kinds of DEBUG_S_FILECHKSMS entries.
const (
	ChecksumNone   = 0
	ChecksumMD5    = 1
	ChecksumSHA1   = 2
	ChecksumSHA256 = 3
)

// ModuleStream is a module's stream split into its substreams.
type ModuleStream struct {
	Symbols []byte // symbol records, signature stripped
	C11     []byte
	C13     []byte
}

// FileChecksum is one entry of a DEBUG_S_FILECHKSMS subsection.
type FileChecksum struct {
	NameOffset uint32 // into /names
	Kind       uint8
	Bytes      []byte
}

// ReadModuleStream splits a module stream using the sizes recorded in its
// DBI module info.
func ReadModuleStream(data []byte, mod *ModuleInfo) (*ModuleStream, error) {
	symSize := int(mod.SymByteSize)
	c11Size := int(mod.C11ByteSize)
	c13Size := int(mod.C13ByteSize)

	r := newByteReader(data, "module stream "+mod.ModuleName)
	ms := &ModuleStream{}
	if symSize >= 4 {
		if sig := r.u32(); r.err == nil && sig != CVSignatureC13 {
			return nil, fmt.Errorf("module %s: unsupported symbol signature %d", mod.ModuleName, sig)
		}
		ms.Symbols = r.bytes(symSize - 4)
	}
	ms.C11 = r.bytes(c11Size)
	ms.C13 = r.bytes(c13Size)
	if r.err != nil {
		return nil, r.err
	}
	return ms, nil
}

// FileChecksums decodes every DEBUG_S_FILECHKSMS subsection of the C13 data.
func (m *ModuleStream) FileChecksums() ([]FileChecksum, error) {
	var out []FileChecksum

	r := newByteReader(m.C13, "C13 line info")
	for r.remaining() >= 8 {
		kind := r.u32()
		length := r.u32()
		body := r.bytes(int(length))
		if r.err != nil {
			return nil, r.err
		}
		r.align(4)

		if kind&debugSIgnore != 0 || kind != DebugSFileChecksums {
			continue
		}
		entries, err := parseChecksums(body)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func parseChecksums(body []byte) ([]FileChecksum, error) {
	var out []FileChecksum
	r := newByteReader(body, "file checksums")
	for r.remaining() > 0 {
		var fc FileChecksum
		fc.NameOffset = r.u32()
		size := r.u8()
		fc.Kind = r.u8()
		fc.Bytes = r.bytes(int(size))
		if r.err != nil {
			return nil, r.err
		}
		r.align(4)
		out = append(out, fc)
	}
	return out, nil
}
