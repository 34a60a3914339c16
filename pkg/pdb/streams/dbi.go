package streams

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// DBI Stream versions
const (
	DBIStreamVersionVC41 = 930803
	DBIStreamVersionV50  = 19960307
	DBIStreamVersionV60  = 19970606
	DBIStreamVersionV70  = 19990903
	DBIStreamVersionV110 = 20091201
)

// Machine types
const (
	MachineUnknown = 0x0000
	MachineI386    = 0x014c
	MachineIA64    = 0x0200
	MachineAMD64   = 0x8664
	MachineARM     = 0x01c0
	MachineARMNT   = 0x01c4
	MachineARM64   = 0xaa64
)

const dbiHeaderSize = 64

// NoStream marks an absent stream in 16-bit stream index fields.
const NoStream = 0xffff

// Slots of the optional debug header.
const (
	DebugStreamFPO = iota
	DebugStreamException
	DebugStreamFixup
	DebugStreamOmapToSrc
	DebugStreamOmapFromSrc
	DebugStreamSectionHdr
	DebugStreamTokenRidMap
	DebugStreamXdata
	DebugStreamPdata
	DebugStreamNewFPO
	DebugStreamSectionHdrOrig
)

const sectionContribV2 = 0xeffe0000 + 20140516

// DBIHeader is the fixed header of the DBI stream.
type DBIHeader struct {
	VersionSignature        int32 // always -1
	VersionHeader           uint32
	Age                     uint32
	GlobalStreamIndex       uint16
	BuildNumber             uint16
	PublicStreamIndex       uint16
	PdbDllVersion           uint16
	SymRecordStream         uint16
	PdbDllRbld              uint16
	ModInfoSize             int32
	SectionContributionSize int32
	SectionMapSize          int32
	SourceInfoSize          int32
	TypeServerMapSize       int32
	MFCTypeServerIndex      uint32
	OptionalDbgHeaderSize   int32
	ECSubstreamSize         int32
	Flags                   uint16
	Machine                 uint16
	Padding                 uint32
}

// DBIStream represents the parsed DBI stream.
type DBIStream struct {
	Header          DBIHeader
	Modules         []ModuleInfo
	SectionContribs []SectionContrib // sorted by (Section, Offset)

	// DebugStreams holds the optional debug header slots, NoStream when unset.
	DebugStreams []uint16
}

// ModuleInfo describes one compiland.
type ModuleInfo struct {
	SectionContrib       SectionContrib
	Flags                uint16
	ModuleSymStream      uint16
	SymByteSize          uint32
	C11ByteSize          uint32
	C13ByteSize          uint32
	SourceFileCount      uint16
	SourceFileNameIndex  uint32
	PdbFilePathNameIndex uint32
	ModuleName           string
	ObjFileName          string
}

// SectionContrib describes a range of a section contributed by a module.
type SectionContrib struct {
	Section         uint16
	Offset          int32
	Size            int32
	Characteristics uint32
	ModuleIndex     uint16
	DataCrc         uint32
	RelocCrc        uint32
}

// ReadDBIStream parses the DBI stream.
func ReadDBIStream(data []byte) (*DBIStream, error) {
	if len(data) < dbiHeaderSize {
		return nil, fmt.Errorf("DBI stream too small: %d bytes", len(data))
	}

	var header DBIHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read DBI header: %w", err)
	}
	if header.VersionSignature != -1 {
		return nil, fmt.Errorf("invalid DBI version signature: %d", header.VersionSignature)
	}

	dbi := &DBIStream{Header: header}

	// Substreams follow the header in this order.
	sizes := []int32{
		header.ModInfoSize,
		header.SectionContributionSize,
		header.SectionMapSize,
		header.SourceInfoSize,
		header.TypeServerMapSize,
		header.ECSubstreamSize,
		header.OptionalDbgHeaderSize,
	}
	subs := make([][]byte, len(sizes))
	off := dbiHeaderSize
	for i, size := range sizes {
		n, err := safecast.Conv[int](size)
		if err != nil {
			return nil, fmt.Errorf("DBI substream %d: %w", i, err)
		}
		if n > len(data)-off {
			return nil, fmt.Errorf("DBI substream %d overruns stream: offset %d size %d", i, off, size)
		}
		subs[i] = data[off : off+n]
		off += n
	}

	modules, err := parseModuleInfo(subs[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse module info: %w", err)
	}
	dbi.Modules = modules

	contribs, err := parseSectionContribs(subs[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse section contributions: %w", err)
	}
	dbi.SectionContribs = contribs

	dbg := subs[6]
	for i := 0; i+2 <= len(dbg); i += 2 {
		dbi.DebugStreams = append(dbi.DebugStreams, binary.LittleEndian.Uint16(dbg[i:]))
	}

	return dbi, nil
}

// DebugStream returns the stream index stored in a debug header slot.
func (d *DBIStream) DebugStream(slot int) (uint16, bool) {
	if slot < 0 || slot >= len(d.DebugStreams) || d.DebugStreams[slot] == NoStream {
		return 0, false
	}
	return d.DebugStreams[slot], true
}

// ModuleForAddress returns the index of the module contributing the byte
// at section:offset.
func (d *DBIStream) ModuleForAddress(section uint16, offset uint32) (int, bool) {
	cs := d.SectionContribs
	i := sort.Search(len(cs), func(i int) bool {
		if cs[i].Section != section {
			return cs[i].Section > section
		}
		return int64(cs[i].Offset) > int64(offset)
	})
	if i == 0 {
		return 0, false
	}
	c := cs[i-1]
	if c.Section != section || int64(offset) >= int64(c.Offset)+int64(c.Size) {
		return 0, false
	}
	return int(c.ModuleIndex), true
}

func parseModuleInfo(data []byte) ([]ModuleInfo, error) {
	var modules []ModuleInfo
	r := newByteReader(data, "module info")

	for r.remaining() > 0 {
		var mod ModuleInfo
		r.skip(4) // unused
		mod.SectionContrib = readSectionContrib(r)
		mod.Flags = r.u16()
		mod.ModuleSymStream = r.u16()
		mod.SymByteSize = r.u32()
		mod.C11ByteSize = r.u32()
		mod.C13ByteSize = r.u32()
		mod.SourceFileCount = r.u16()
		r.skip(2 + 4) // padding, unused
		mod.SourceFileNameIndex = r.u32()
		mod.PdbFilePathNameIndex = r.u32()
		mod.ModuleName = r.cstring()
		mod.ObjFileName = r.cstring()
		r.align(4)

		if r.err != nil {
			return nil, fmt.Errorf("module %d: %w", len(modules), r.err)
		}
		modules = append(modules, mod)
	}

	return modules, nil
}

func readSectionContrib(r *byteReader) SectionContrib {
	var c SectionContrib
	c.Section = r.u16()
	r.skip(2)
	c.Offset = int32(r.u32())
	c.Size = int32(r.u32())
	c.Characteristics = r.u32()
	c.ModuleIndex = r.u16()
	r.skip(2)
	c.DataCrc = r.u32()
	c.RelocCrc = r.u32()
	return c
}

func parseSectionContribs(data []byte) ([]SectionContrib, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := newByteReader(data, "section contributions")
	version := r.u32()
	extra := 0
	if version == sectionContribV2 {
		extra = 4 // ISectCoff
	}

	var contribs []SectionContrib
	for r.remaining() > 0 {
		c := readSectionContrib(r)
		r.skip(extra)
		if r.err != nil {
			return nil, r.err
		}
		contribs = append(contribs, c)
	}

	sort.SliceStable(contribs, func(i, j int) bool {
		if contribs[i].Section != contribs[j].Section {
			return contribs[i].Section < contribs[j].Section
		}
		return contribs[i].Offset < contribs[j].Offset
	})
	return contribs, nil
}

// MachineTypeName returns the human-readable name for a machine type.
func MachineTypeName(machine uint16) string {
	switch machine {
	case MachineI386:
		return "x86"
	case MachineAMD64:
		return "x64"
	case MachineARM:
		return "ARM"
	case MachineARMNT:
		return "ARMNT"
	case MachineARM64:
		return "ARM64"
	case MachineIA64:
		return "IA64"
	case MachineUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("0x%04x", machine)
	}
}

// HasSymbols reports whether the module has a symbol stream.
func (m *ModuleInfo) HasSymbols() bool {
	return m.ModuleSymStream != NoStream && m.SymByteSize > 0
}
