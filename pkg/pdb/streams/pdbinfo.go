// Package streams provides parsers for the various PDB streams.
package streams

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// PDB Stream versions
const (
	PDBStreamVersionVC2     = 19941610
	PDBStreamVersionVC4     = 19950623
	PDBStreamVersionVC41    = 19950814
	PDBStreamVersionVC50    = 19960307
	PDBStreamVersionVC98    = 19970604
	PDBStreamVersionVC70Dep = 19990604
	PDBStreamVersionVC70    = 20000404
	PDBStreamVersionVC80    = 20030901
	PDBStreamVersionVC110   = 20091201
	PDBStreamVersionVC140   = 20140508
)

// NamesStreamName is the named stream holding the global string table.
const NamesStreamName = "/names"

// PDBInfo represents the PDB Info Stream (Stream 1).
type PDBInfo struct {
	Version      uint32
	Signature    uint32 // timestamp of PDB creation
	Age          uint32
	GUID         uuid.UUID
	NamedStreams map[string]uint32
}

// ReadPDBInfo parses the PDB info stream. The named stream map is optional
// in very old files; a missing map yields an empty one.
func ReadPDBInfo(data []byte) (*PDBInfo, error) {
	r := newByteReader(data, "PDB info stream")

	info := &PDBInfo{
		Version:      r.u32(),
		Signature:    r.u32(),
		Age:          r.u32(),
		NamedStreams: make(map[string]uint32),
	}
	raw := r.bytes(16)
	if r.err != nil {
		return nil, fmt.Errorf("failed to read PDB info header: %w", r.err)
	}
	info.GUID = guidFromDisk(raw)

	if r.remaining() == 0 {
		return info, nil
	}

	strBuf := r.bytes(int(r.u32()))
	size := r.u32()
	capacity := r.u32()
	present := readBitVector(r)
	readBitVector(r) // deleted
	if r.err != nil {
		return nil, fmt.Errorf("failed to read named stream map: %w", r.err)
	}

	found := uint32(0)
	for i := uint32(0); i < capacity && found < size; i++ {
		if !isBitSet(present, i) {
			continue
		}
		keyOffset := r.u32()
		streamIndex := r.u32()
		if r.err != nil {
			return nil, fmt.Errorf("failed to read named stream entry %d: %w", i, r.err)
		}
		found++

		if int(keyOffset) >= len(strBuf) {
			continue
		}
		name, _ := ParseString(strBuf[keyOffset:])
		info.NamedStreams[name] = streamIndex
	}

	return info, nil
}

// guidFromDisk converts the mixed-endian on-disk GUID to RFC 4122 order.
func guidFromDisk(b []byte) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(b[6:8]))
	copy(u[8:], b[8:16])
	return u
}

// GUIDString returns the GUID in the compact upper-case form used by symbol
// servers.
func (p *PDBInfo) GUIDString() string {
	var out [32]byte
	const hex = "0123456789ABCDEF"
	for i, b := range p.GUID {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out[:])
}

// NamedStream returns the stream index registered under name.
func (p *PDBInfo) NamedStream(name string) (uint32, bool) {
	idx, ok := p.NamedStreams[name]
	return idx, ok
}

func readBitVector(r *byteReader) []uint32 {
	n := r.u32()
	if !r.need(int(n) * 4) {
		return nil
	}
	words := make([]uint32, n)
	for i := range words {
		words[i] = r.u32()
	}
	return words
}

func isBitSet(words []uint32, n uint32) bool {
	wordIdx := n / 32
	if wordIdx >= uint32(len(words)) {
		return false
	}
	return words[wordIdx]&(1<<(n%32)) != 0
}
