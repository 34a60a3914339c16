package streams

import "fmt"

const stringTableSignature = 0xeffeeffe

// StringTable is the /names stream: a buffer of NUL-terminated strings
// addressed by byte offset.
type StringTable struct {
	Version uint32
	buf     []byte
}

// ReadStringTable parses the /names stream. The trailing hash index is not
// needed for offset lookups and is ignored.
func ReadStringTable(data []byte) (*StringTable, error) {
	r := newByteReader(data, "string table")
	sig := r.u32()
	version := r.u32()
	size := r.u32()
	buf := r.bytes(int(size))
	if r.err != nil {
		return nil, r.err
	}
	if sig != stringTableSignature {
		return nil, fmt.Errorf("invalid string table signature 0x%08x", sig)
	}
	return &StringTable{Version: version, buf: buf}, nil
}

// NewStringTable wraps a raw string buffer.
func NewStringTable(buf []byte) *StringTable {
	return &StringTable{Version: 1, buf: buf}
}

// String returns the string starting at offset.
func (t *StringTable) String(offset uint32) (string, error) {
	if t == nil {
		return "", fmt.Errorf("no string table for offset 0x%x", offset)
	}
	if int64(offset) >= int64(len(t.buf)) {
		return "", fmt.Errorf("string offset 0x%x outside table of %d bytes", offset, len(t.buf))
	}
	s, _ := ParseString(t.buf[offset:])
	return s, nil
}
