// Package msf implements parsing for Microsoft's Multi-Stream Format (MSF) container.
package msf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
)

// MSF 7.00 magic signature
var MSFMagic = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

// SuperBlock is the header at the beginning of an MSF file.
type SuperBlock struct {
	Magic             [32]byte
	BlockSize         uint32 // 512, 1024, 2048 or 4096
	FreeBlockMapBlock uint32 // 1 or 2
	NumBlocks         uint32
	NumDirectoryBytes uint32
	Unknown           uint32
	BlockMapAddr      uint32 // block holding the directory's block list
}

// SuperBlockSize is the size of the SuperBlock structure in bytes.
const SuperBlockSize = 56

// ValidBlockSizes are the allowed block sizes for MSF files.
var ValidBlockSizes = []uint32{512, 1024, 2048, 4096}

// ReadSuperBlock reads and validates the SuperBlock at the start of r.
func ReadSuperBlock(r io.ReaderAt) (*SuperBlock, error) {
	var raw [SuperBlockSize]byte
	if _, err := r.ReadAt(raw[:], 0); err != nil {
		return nil, fmt.Errorf("failed to read superblock: %w", err)
	}

	var sb SuperBlock
	if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, &sb); err != nil {
		return nil, fmt.Errorf("failed to decode superblock: %w", err)
	}

	if !bytes.Equal(sb.Magic[:], MSFMagic) {
		return nil, fmt.Errorf("invalid MSF magic: not a valid PDB file")
	}
	if !slices.Contains(ValidBlockSizes, sb.BlockSize) {
		return nil, fmt.Errorf("invalid block size: %d", sb.BlockSize)
	}
	if sb.FreeBlockMapBlock != 1 && sb.FreeBlockMapBlock != 2 {
		return nil, fmt.Errorf("invalid FreeBlockMapBlock: %d (must be 1 or 2)", sb.FreeBlockMapBlock)
	}
	if sb.BlockMapAddr >= sb.NumBlocks {
		return nil, fmt.Errorf("block map address %d beyond %d blocks", sb.BlockMapAddr, sb.NumBlocks)
	}

	return &sb, nil
}

// NumDirectoryBlocks returns the number of blocks holding the stream directory.
func (sb *SuperBlock) NumDirectoryBlocks() uint32 {
	return blocksFor(sb.NumDirectoryBytes, sb.BlockSize)
}

// FileSize returns the expected file size based on block count.
func (sb *SuperBlock) FileSize() int64 {
	return int64(sb.NumBlocks) * int64(sb.BlockSize)
}

func blocksFor(size, blockSize uint32) uint32 {
	return (size + blockSize - 1) / blockSize
}
