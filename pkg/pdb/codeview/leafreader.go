package codeview

import (
	"bytes"
	"encoding/binary"

	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// leafReader walks the payload of one type record. The first short read
// latches a MalformedType error naming the record; later reads return zero
// values.
type leafReader struct {
	data  []byte
	off   int
	index TypeIndex
	leaf  uint16
	err   error
}

func newLeafReader(rec *streams.TypeRecord) *leafReader {
	return &leafReader{data: rec.Data, index: rec.Index, leaf: rec.Kind}
}

func (r *leafReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = pdberr.MalformedType(uint32(r.index), r.leaf, format, args...)
	}
}

func (r *leafReader) need(n int, what string) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.data) {
		r.fail("%s truncated at offset %d", what, r.off)
		return false
	}
	return true
}

func (r *leafReader) u8(what string) uint8 {
	if !r.need(1, what) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *leafReader) u16(what string) uint16 {
	if !r.need(2, what) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *leafReader) u32(what string) uint32 {
	if !r.need(4, what) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *leafReader) index32(what string) TypeIndex {
	return TypeIndex(r.u32(what))
}

func (r *leafReader) numeric(what string) uint64 {
	if r.err != nil {
		return 0
	}
	v, n := streams.ParseNumeric(r.data[r.off:])
	if n == 0 {
		r.fail("bad numeric leaf for %s at offset %d", what, r.off)
		return 0
	}
	r.off += n
	return v
}

// name reads a null-terminated string. A name running to the end of the
// record without a terminator is accepted.
func (r *leafReader) name() string {
	if r.err != nil {
		return ""
	}
	rest := r.data[r.off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		r.off = len(r.data)
		return string(rest)
	}
	r.off += end + 1
	return string(rest[:end])
}

// skipPadding consumes LF_PAD bytes between field list entries.
func (r *leafReader) skipPadding() {
	for r.err == nil && r.off < len(r.data) && r.data[r.off] >= streams.LF_PAD0 {
		n := int(r.data[r.off] & 0x0f)
		if n == 0 {
			n = 1
		}
		r.off = min(r.off+n, len(r.data))
	}
}

func (r *leafReader) done() bool {
	return r.err != nil || r.off >= len(r.data)
}
