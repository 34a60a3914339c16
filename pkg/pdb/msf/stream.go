package msf

import (
	"fmt"
	"io"
)

// nilStreamSize marks a deleted stream in the directory.
const nilStreamSize = 0xffffffff

// Stream is a single stream of an MSF file, stored as a chain of
// possibly non-contiguous blocks.
type Stream struct {
	src       io.ReaderAt
	blockSize uint32
	size      uint32
	blocks    []uint32
}

// Size returns the size of the stream in bytes.
func (s *Stream) Size() uint32 {
	return s.size
}

// Blocks returns the block indices that make up this stream.
func (s *Stream) Blocks() []uint32 {
	return s.blocks
}

// ReadAt implements io.ReaderAt over the stream's logical byte range.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(s.size) {
		return 0, io.EOF
	}

	bs := int64(s.blockSize)
	n := 0
	for n < len(p) && off < int64(s.size) {
		block := off / bs
		within := off % bs
		chunk := min(int64(len(p)-n), bs-within, int64(s.size)-off)

		fileOff := int64(s.blocks[block])*bs + within
		m, err := s.src.ReadAt(p[n:n+int(chunk)], fileOff)
		n += m
		off += int64(m)
		if err != nil && !(err == io.EOF && int64(m) == chunk) {
			return n, fmt.Errorf("block %d: %w", s.blocks[block], err)
		}
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadAll reads the entire stream contents.
func (s *Stream) ReadAll() ([]byte, error) {
	data := make([]byte, s.size)
	if len(data) == 0 {
		return data, nil
	}
	if _, err := s.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}

// StreamDirectory lists the size and block chain of every stream.
type StreamDirectory struct {
	StreamSizes  []uint32
	StreamBlocks [][]uint32
}

func parseStreamDirectory(data []byte, blockSize, numBlocks uint32) (*StreamDirectory, error) {
	words, err := leWords(data)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty stream directory")
	}

	numStreams := int(words[0])
	words = words[1:]
	if numStreams > len(words) {
		return nil, fmt.Errorf("directory lists %d streams, has room for %d sizes", numStreams, len(words))
	}

	dir := &StreamDirectory{
		StreamSizes:  words[:numStreams],
		StreamBlocks: make([][]uint32, numStreams),
	}
	words = words[numStreams:]

	for i, size := range dir.StreamSizes {
		if size == nilStreamSize {
			continue
		}
		n := int(blocksFor(size, blockSize))
		if n > len(words) {
			return nil, fmt.Errorf("stream %d needs %d blocks, directory has %d left", i, n, len(words))
		}
		for _, b := range words[:n] {
			if b >= numBlocks {
				return nil, fmt.Errorf("stream %d references block %d beyond %d", i, b, numBlocks)
			}
		}
		dir.StreamBlocks[i] = words[:n]
		words = words[n:]
	}

	return dir, nil
}
