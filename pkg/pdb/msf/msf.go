package msf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// MSF is an opened MSF (Multi-Stream Format) container.
type MSF struct {
	src        io.ReaderAt
	closer     io.Closer
	superBlock *SuperBlock
	streams    []*Stream
}

// Open opens an MSF file from disk.
func Open(path string) (*MSF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	m, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	m.closer = f
	return m, nil
}

// NewReader parses an MSF container held by r. The caller keeps ownership
// of r; Close on the result is a no-op.
func NewReader(r io.ReaderAt) (*MSF, error) {
	sb, err := ReadSuperBlock(r)
	if err != nil {
		return nil, err
	}

	m := &MSF{src: r, superBlock: sb}
	if err := m.readStreamDirectory(); err != nil {
		return nil, fmt.Errorf("failed to read stream directory: %w", err)
	}
	return m, nil
}

// Close releases the underlying file when the MSF was opened by path.
func (m *MSF) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// SuperBlock returns the MSF SuperBlock.
func (m *MSF) SuperBlock() *SuperBlock {
	return m.superBlock
}

// NumStreams returns the number of streams in the file.
func (m *MSF) NumStreams() int {
	return len(m.streams)
}

// Stream returns the stream at the given index.
func (m *MSF) Stream(index int) (*Stream, error) {
	if index < 0 || index >= len(m.streams) {
		return nil, fmt.Errorf("stream index %d out of range [0, %d)", index, len(m.streams))
	}
	return m.streams[index], nil
}

// ReadStream returns the full contents of the stream at index.
func (m *MSF) ReadStream(index int) ([]byte, error) {
	s, err := m.Stream(index)
	if err != nil {
		return nil, err
	}
	data, err := s.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("stream %d: %w", index, err)
	}
	return data, nil
}

// BlockSize returns the block size used by this MSF file.
func (m *MSF) BlockSize() uint32 {
	return m.superBlock.BlockSize
}

func (m *MSF) readStreamDirectory() error {
	sb := m.superBlock

	// The block map lists the blocks holding the directory itself.
	rawMap := make([]byte, 4*sb.NumDirectoryBlocks())
	if _, err := m.src.ReadAt(rawMap, int64(sb.BlockMapAddr)*int64(sb.BlockSize)); err != nil {
		return fmt.Errorf("failed to read block map: %w", err)
	}
	blockMap, err := leWords(rawMap)
	if err != nil {
		return err
	}

	dirStream := &Stream{src: m.src, blockSize: sb.BlockSize, size: sb.NumDirectoryBytes, blocks: blockMap}
	dirData, err := dirStream.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	dir, err := parseStreamDirectory(dirData, sb.BlockSize, sb.NumBlocks)
	if err != nil {
		return err
	}

	m.streams = make([]*Stream, len(dir.StreamSizes))
	for i, size := range dir.StreamSizes {
		s := &Stream{src: m.src, blockSize: sb.BlockSize, blocks: dir.StreamBlocks[i]}
		if size != nilStreamSize {
			s.size = size
		}
		m.streams[i] = s
	}
	return nil
}

func leWords(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("word array of %d bytes", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
