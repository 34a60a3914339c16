package streams

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
)

// TPI/IPI stream versions
const (
	TPIStreamVersion40  = 19950410
	TPIStreamVersion41  = 19951122
	TPIStreamVersion50  = 19961031
	TPIStreamVersionV70 = 19990903
	TPIStreamVersionV80 = 20040203
)

// tpiHeaderSize is the on-disk size of TPIHeader.
const tpiHeaderSize = 56

// TypeIndex identifies a record in a TPI or IPI stream. Values below
// TypeIndexBegin encode built-in types.
type TypeIndex uint32

// IsSimple reports whether the index encodes a built-in type.
func (i TypeIndex) IsSimple() bool {
	return i < TypeIndexBegin
}

// TPIHeader is the header of the TPI and IPI streams.
type TPIHeader struct {
	Version                 uint32
	HeaderSize              uint32
	TypeIndexBegin          uint32
	TypeIndexEnd            uint32
	TypeRecordBytes         uint32
	HashStreamIndex         uint16
	HashAuxStreamIndex      uint16
	HashKeySize             uint32
	NumHashBuckets          uint32
	HashValueBufferOffset   int32
	HashValueBufferLength   uint32
	IndexOffsetBufferOffset int32
	IndexOffsetBufferLength uint32
	HashAdjBufferOffset     int32
	HashAdjBufferLength     uint32
}

// TypeRecord is a single leaf record.
type TypeRecord struct {
	Index TypeIndex
	Kind  uint16 // LF_*
	Data  []byte // payload after the length and kind fields
}

// TPIStream holds the records of a TPI (types) or IPI (ids) stream keyed by
// index. It accepts later deliveries of records through Merge.
type TPIStream struct {
	Header TPIHeader

	begin, end   TypeIndex
	typeMap      map[TypeIndex]*TypeRecord
	fingerprints map[TypeIndex]uint64
}

// NewTPIStream builds a stream from already split records. Records must
// carry indices at or above begin.
func NewTPIStream(begin TypeIndex, records []TypeRecord) (*TPIStream, error) {
	t := &TPIStream{
		begin:        begin,
		end:          begin,
		typeMap:      make(map[TypeIndex]*TypeRecord, len(records)),
		fingerprints: make(map[TypeIndex]uint64, len(records)),
	}
	t.Header.Version = TPIStreamVersionV80
	t.Header.HeaderSize = tpiHeaderSize
	t.Header.TypeIndexBegin = uint32(begin)

	if err := t.Merge(records); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadTPIStream parses a TPI or IPI stream from raw bytes.
func ReadTPIStream(data []byte) (*TPIStream, error) {
	var header TPIHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read TPI header: %w", err)
	}

	if header.Version != TPIStreamVersionV80 && header.Version != TPIStreamVersionV70 {
		return nil, fmt.Errorf("unsupported TPI version: %d", header.Version)
	}
	if header.HeaderSize < tpiHeaderSize || header.TypeIndexEnd < header.TypeIndexBegin {
		return nil, fmt.Errorf("invalid TPI header: size %d, indices [0x%x, 0x%x)",
			header.HeaderSize, header.TypeIndexBegin, header.TypeIndexEnd)
	}

	start := int(header.HeaderSize)
	stop := start + int(header.TypeRecordBytes)
	if stop > len(data) {
		return nil, fmt.Errorf("type records end at %d, stream is %d bytes", stop, len(data))
	}

	records, err := SplitTypeRecords(data[start:stop], TypeIndex(header.TypeIndexBegin))
	if err != nil {
		return nil, err
	}
	if want := int(header.TypeIndexEnd - header.TypeIndexBegin); len(records) != want {
		return nil, pdberr.MalformedType(header.TypeIndexBegin, 0,
			"stream declares %d records, found %d", want, len(records))
	}

	t, err := NewTPIStream(TypeIndex(header.TypeIndexBegin), records)
	if err != nil {
		return nil, err
	}
	t.Header = header
	return t, nil
}

// SplitTypeRecords cuts a record buffer into leaf records numbered
// consecutively from first. Records are referenced, not copied.
func SplitTypeRecords(buf []byte, first TypeIndex) ([]TypeRecord, error) {
	var records []TypeRecord

	index := first
	for offset := 0; offset < len(buf); index++ {
		if offset+4 > len(buf) {
			return nil, pdberr.MalformedType(uint32(index), 0, "record header truncated at byte %d", offset)
		}

		recLen := int(binary.LittleEndian.Uint16(buf[offset:]))
		kind := binary.LittleEndian.Uint16(buf[offset+2:])
		if recLen < 2 || offset+2+recLen > len(buf) {
			return nil, pdberr.MalformedType(uint32(index), kind, "record length %d overruns buffer", recLen)
		}

		records = append(records, TypeRecord{
			Index: index,
			Kind:  kind,
			Data:  buf[offset+4 : offset+2+recLen],
		})
		offset += 2 + recLen
	}

	return records, nil
}

// Merge adds records to the stream. Re-delivering an index with identical
// contents is a no-op; different contents for a known index are rejected.
// The batch is validated as a whole before any record is added, so a
// rejected batch leaves the stream unchanged.
func (t *TPIStream) Merge(records []TypeRecord) error {
	fps := make([]uint64, len(records))
	pending := make(map[TypeIndex]int, len(records))
	var add []int

	for i := range records {
		rec := &records[i]
		if rec.Index < t.begin {
			return pdberr.MalformedType(uint32(rec.Index), rec.Kind,
				"index below stream start 0x%x", uint32(t.begin))
		}
		fps[i] = fingerprint(rec)

		prev, prevFP, known := t.typeMap[rec.Index], t.fingerprints[rec.Index], false
		if prev != nil {
			known = true
		} else if j, ok := pending[rec.Index]; ok {
			prev, prevFP, known = &records[j], fps[j], true
		}
		if known {
			if prevFP != fps[i] || !sameRecord(prev, rec) {
				return pdberr.MalformedType(uint32(rec.Index), rec.Kind,
					"conflicting redefinition of a known index")
			}
			continue
		}
		pending[rec.Index] = i
		add = append(add, i)
	}

	for _, i := range add {
		rec := records[i]
		t.fingerprints[rec.Index] = fps[i]
		t.typeMap[rec.Index] = &rec
		if rec.Index >= t.end {
			t.end = rec.Index + 1
		}
	}

	t.Header.TypeIndexEnd = uint32(t.end)
	return nil
}

// sameRecord confirms a fingerprint match byte for byte.
func sameRecord(a, b *TypeRecord) bool {
	return a.Kind == b.Kind && bytes.Equal(a.Data, b.Data)
}

func fingerprint(rec *TypeRecord) uint64 {
	h := xxh3.New()
	var kind [2]byte
	binary.LittleEndian.PutUint16(kind[:], rec.Kind)
	_, _ = h.Write(kind[:])
	_, _ = h.Write(rec.Data)
	return h.Sum64()
}

// TypeRecord returns the record for index, or nil.
func (t *TPIStream) TypeRecord(index TypeIndex) *TypeRecord {
	return t.typeMap[index]
}

// IndexBegin returns the first non-simple index of the stream.
func (t *TPIStream) IndexBegin() TypeIndex {
	return t.begin
}

// IndexEnd returns one past the last index of the stream.
func (t *TPIStream) IndexEnd() TypeIndex {
	return t.end
}

// NumTypes returns the number of records held.
func (t *TPIStream) NumTypes() int {
	return len(t.typeMap)
}

