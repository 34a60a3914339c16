package streams

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// byteReader is a little-endian cursor over a stream buffer. The first
// short read latches an error; later reads return zero values.
type byteReader struct {
	data []byte
	off  int
	err  error
	what string
}

func newByteReader(data []byte, what string) *byteReader {
	return &byteReader{data: data, what: what}
}

func (r *byteReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%s: need %d bytes at offset %d, have %d", r.what, n, r.off, len(r.data)-r.off)
		return false
	}
	return true
}

func (r *byteReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *byteReader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *byteReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *byteReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.data[r.off : r.off+n]
	r.off += n
	return v
}

func (r *byteReader) cstring() string {
	if r.err != nil {
		return ""
	}
	end := bytes.IndexByte(r.data[r.off:], 0)
	if end < 0 {
		r.err = fmt.Errorf("%s: unterminated string at offset %d", r.what, r.off)
		return ""
	}
	s := string(r.data[r.off : r.off+end])
	r.off += end + 1
	return s
}

func (r *byteReader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

func (r *byteReader) align(n int) {
	if rem := r.off % n; rem != 0 {
		r.off += n - rem
		if r.off > len(r.data) {
			r.off = len(r.data)
		}
	}
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.off
}
