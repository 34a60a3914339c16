package testutil

import (
	"slices"
)

const msfMagic = "Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00"

// MSFImage lays out streams in an MSF 7.00 container. Block 0 holds the
// superblock, blocks 1 and 2 the free block maps; stream data follows,
// then the directory and finally the directory's block map. A nil stream
// is written as deleted.
func MSFImage(blockSize uint32, streams ...[]byte) []byte {
	bs := int(blockSize)
	var blocks [][]byte
	alloc := func(data []byte) []uint32 {
		var ids []uint32
		for off := 0; off < len(data); off += bs {
			chunk := make([]byte, bs)
			copy(chunk, data[off:])
			ids = append(ids, uint32(3+len(blocks)))
			blocks = append(blocks, chunk)
		}
		return ids
	}

	dir := U32(uint32(len(streams)))
	var lists [][]uint32
	for _, s := range streams {
		if s == nil {
			dir = append(dir, U32(0xffffffff)...)
			lists = append(lists, nil)
			continue
		}
		dir = append(dir, U32(uint32(len(s)))...)
		lists = append(lists, alloc(s))
	}
	for _, l := range lists {
		for _, b := range l {
			dir = append(dir, U32(b)...)
		}
	}

	dirBlocks := alloc(dir)
	var blockMap []byte
	for _, b := range dirBlocks {
		blockMap = append(blockMap, U32(b)...)
	}
	mapBlock := alloc(blockMap)[0]

	numBlocks := uint32(3 + len(blocks))
	super := Cat([]byte(msfMagic), U32(blockSize), U32(1), U32(numBlocks),
		U32(uint32(len(dir))), U32(0), U32(mapBlock))

	img := make([]byte, int(numBlocks)*bs)
	copy(img, super)
	for i, b := range blocks {
		copy(img[(3+i)*bs:], b)
	}
	return img
}

// PDBInfoImage encodes a PDB info stream (VC70) with a named stream map.
// guid is in on-disk byte order.
func PDBInfoImage(signature, age uint32, guid [16]byte, named map[string]uint32) []byte {
	var strBuf, pairs []byte
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		pairs = append(pairs, Cat(U32(uint32(len(strBuf))), U32(named[name]))...)
		strBuf = append(strBuf, Str(name)...)
	}

	n := uint32(len(named))
	var present uint32
	for i := uint32(0); i < n; i++ {
		present |= 1 << i
	}

	return Cat(
		U32(20000404), U32(signature), U32(age), guid[:],
		U32(uint32(len(strBuf))), strBuf,
		U32(n), U32(n),       // size, capacity
		U32(1), U32(present), // present bit vector
		U32(0),               // deleted bit vector
		pairs,
	)
}

// DBIModule describes one module info entry for DBIImage.
type DBIModule struct {
	Name       string
	ObjectFile string
	Stream     uint16
	SymBytes   uint32
	C13Bytes   uint32
	// Contribs are the section ranges the module contributes.
	Contribs []Contrib
}

// Contrib is one section contribution of a DBIModule.
type Contrib struct {
	Section uint16
	Offset  uint32
	Size    uint32
}

// DBIImage encodes a DBI stream with module info, the modules' section
// contributions and an optional debug header whose section header slot is
// sectionHdrStream (0xffff for none).
func DBIImage(machine, symRecordStream, sectionHdrStream uint16, modules ...DBIModule) []byte {
	var modInfo, contribs []byte
	for i, m := range modules {
		e := Cat(
			U32(0),
			make([]byte, 28), // section contribution
			U16(0), U16(m.Stream), U32(m.SymBytes), U32(0), U32(m.C13Bytes),
			U16(0), U16(0), U32(0), U32(0), U32(0),
			Str(m.Name), Str(m.ObjectFile),
		)
		for len(e)%4 != 0 {
			e = append(e, 0)
		}
		modInfo = append(modInfo, e...)

		for _, c := range m.Contribs {
			contribs = append(contribs, Cat(
				U16(c.Section), U16(0), U32(c.Offset), U32(c.Size), U32(0x60000020),
				U16(uint16(i)), U16(0), U32(0), U32(0),
			)...)
		}
	}
	if len(contribs) > 0 {
		contribs = Cat(U32(0xeffe0000+19970605), contribs)
	}

	var dbg []byte
	for slot := 0; slot < 11; slot++ {
		if slot == 5 {
			dbg = append(dbg, U16(sectionHdrStream)...)
		} else {
			dbg = append(dbg, U16(0xffff)...)
		}
	}

	header := Cat(
		I32(-1), U32(19990903), U32(1),
		U16(0xffff), U16(0), U16(0xffff), U16(0), U16(symRecordStream), U16(0),
		I32(int32(len(modInfo))), I32(int32(len(contribs))), I32(0), I32(0), I32(0),
		U32(0), I32(int32(len(dbg))), I32(0),
		U16(0), U16(machine), U32(0),
	)
	return Cat(header, modInfo, contribs, dbg)
}

// SectionHeadersImage encodes IMAGE_SECTION_HEADERs with the given
// virtual addresses.
func SectionHeadersImage(vas ...uint32) []byte {
	var out []byte
	for i, va := range vas {
		name := make([]byte, 8)
		copy(name, []byte{'.', 's', byte('0' + i)})
		out = append(out, Cat(name, U32(0x1000), U32(va), U32(0x1000), make([]byte, 16), U32(0x60000020))...)
	}
	return out
}
