package streams

import (
	"fmt"
	"strings"
)

const sectionHeaderSize = 40

// SectionHeader is an IMAGE_SECTION_HEADER as stored in the section header
// debug stream.
type SectionHeader struct {
	Name            string
	VirtualSize     uint32
	VirtualAddress  uint32
	SizeOfRawData   uint32
	Characteristics uint32
}

// AddressMap translates segment:offset pairs into relative virtual addresses.
type AddressMap struct {
	Sections []SectionHeader
}

// ReadSectionHeaders parses a section header stream.
func ReadSectionHeaders(data []byte) (*AddressMap, error) {
	if len(data)%sectionHeaderSize != 0 {
		return nil, fmt.Errorf("section header stream size %d is not a multiple of %d", len(data), sectionHeaderSize)
	}

	m := &AddressMap{}
	r := newByteReader(data, "section headers")
	for r.remaining() > 0 {
		var h SectionHeader
		h.Name = strings.TrimRight(string(r.bytes(8)), "\x00")
		h.VirtualSize = r.u32()
		h.VirtualAddress = r.u32()
		h.SizeOfRawData = r.u32()
		r.skip(4 + 4 + 4 + 2 + 2) // raw data pointer, relocations, line numbers
		h.Characteristics = r.u32()
		if r.err != nil {
			return nil, r.err
		}
		m.Sections = append(m.Sections, h)
	}
	return m, nil
}

// Translate returns the RVA for a 1-based segment and an offset within it.
// It reports false when the segment is not described by the map.
func (m *AddressMap) Translate(segment uint16, offset uint32) (uint64, bool) {
	if m == nil || segment == 0 || int(segment) > len(m.Sections) {
		return 0, false
	}
	return uint64(m.Sections[segment-1].VirtualAddress) + uint64(offset), true
}
