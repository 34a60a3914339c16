package pdb

import (
	"fmt"
	"io"

	"github.com/jtang613/pdbview/pkg/pdb/codeview"
	"github.com/jtang613/pdbview/pkg/pdb/msf"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// Stream indices
const (
	StreamPDB = 1 // PDB info stream
	StreamTPI = 2 // Type info stream
	StreamDBI = 3 // Debug info stream
	StreamIPI = 4 // ID info stream
)

// File is an opened PDB file. It decodes the fixed streams eagerly and
// module streams on demand.
type File struct {
	msf  *msf.MSF
	path string

	info     *streams.PDBInfo
	tpi      *streams.TPIStream
	ipi      *streams.TPIStream
	dbi      *streams.DBIStream
	names    *streams.StringTable
	sections *streams.AddressMap
}

// Open opens a PDB file and parses its core structures.
func Open(path string) (*File, error) {
	m, err := msf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MSF: %w", err)
	}

	f, err := load(m)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// NewFile parses a PDB held by r. The caller keeps ownership of r.
func NewFile(r io.ReaderAt) (*File, error) {
	m, err := msf.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open MSF: %w", err)
	}
	return load(m)
}

func load(m *msf.MSF) (*File, error) {
	f := &File{msf: m}

	data, err := f.optionalStream(StreamPDB)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("missing PDB info stream")
	}
	if f.info, err = streams.ReadPDBInfo(data); err != nil {
		return nil, err
	}

	if f.tpi, err = f.typeStream(StreamTPI); err != nil {
		return nil, fmt.Errorf("TPI stream: %w", err)
	}
	if f.ipi, err = f.typeStream(StreamIPI); err != nil {
		return nil, fmt.Errorf("IPI stream: %w", err)
	}

	data, err = f.optionalStream(StreamDBI)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if f.dbi, err = streams.ReadDBIStream(data); err != nil {
			return nil, err
		}
	}

	if idx, ok := f.info.NamedStream(streams.NamesStreamName); ok {
		data, err := f.optionalStream(int(idx))
		if err != nil {
			return nil, err
		}
		if data != nil {
			if f.names, err = streams.ReadStringTable(data); err != nil {
				return nil, fmt.Errorf("%s stream: %w", streams.NamesStreamName, err)
			}
		}
	}

	if f.dbi != nil {
		if idx, ok := f.dbi.DebugStream(streams.DebugStreamSectionHdr); ok {
			data, err := f.optionalStream(int(idx))
			if err != nil {
				return nil, err
			}
			if data != nil {
				if f.sections, err = streams.ReadSectionHeaders(data); err != nil {
					return nil, err
				}
			}
		}
	}

	return f, nil
}

// optionalStream returns the stream's bytes, or nil when the stream does
// not exist or is empty.
func (f *File) optionalStream(index int) ([]byte, error) {
	if index >= f.msf.NumStreams() {
		return nil, nil
	}
	data, err := f.msf.ReadStream(index)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func (f *File) typeStream(index int) (*streams.TPIStream, error) {
	data, err := f.optionalStream(index)
	if err != nil || data == nil {
		return nil, err
	}
	return streams.ReadTPIStream(data)
}

// Close closes the PDB file.
func (f *File) Close() error {
	return f.msf.Close()
}

// Info returns the PDB info stream.
func (f *File) Info() *streams.PDBInfo {
	return f.info
}

// Header implements Source.
func (f *File) Header() Header {
	h := Header{
		Path:      f.path,
		Version:   f.info.Version,
		GUID:      f.info.GUID,
		Age:       f.info.Age,
		Timestamp: f.info.Signature,
	}
	if f.dbi != nil {
		h.Machine = f.dbi.Header.Machine
		// The DBI age is the one debuggers match against the image.
		h.Age = f.dbi.Header.Age
	}
	return h
}

// Types implements Source.
func (f *File) Types() codeview.TypeSource {
	if f.tpi == nil {
		return nil
	}
	return f.tpi
}

// IDs implements Source.
func (f *File) IDs() codeview.TypeSource {
	if f.ipi == nil {
		return nil
	}
	return f.ipi
}

// GlobalSymbols implements Source. The symbol record stream holds publics
// and global data and procedure references.
func (f *File) GlobalSymbols() ([]codeview.SymbolRecord, error) {
	if f.dbi == nil || f.dbi.Header.SymRecordStream == streams.NoStream {
		return nil, nil
	}
	data, err := f.optionalStream(int(f.dbi.Header.SymRecordStream))
	if err != nil {
		return nil, fmt.Errorf("symbol record stream: %w", err)
	}
	syms, err := codeview.ParseSymbols(data)
	if err != nil {
		return nil, fmt.Errorf("symbol record stream: %w", err)
	}
	return syms, nil
}

// NumModules implements Source.
func (f *File) NumModules() int {
	if f.dbi == nil {
		return 0
	}
	return len(f.dbi.Modules)
}

// Module implements Source.
func (f *File) Module(i int) (*ModuleRecords, error) {
	mod := &f.dbi.Modules[i]
	recs := &ModuleRecords{Name: mod.ModuleName, ObjectFile: mod.ObjFileName}
	if !mod.HasSymbols() {
		return recs, nil
	}

	data, err := f.msf.ReadStream(int(mod.ModuleSymStream))
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", mod.ModuleName, err)
	}
	ms, err := streams.ReadModuleStream(data, mod)
	if err != nil {
		return nil, err
	}

	if recs.Symbols, err = codeview.ParseSymbols(ms.Symbols); err != nil {
		return nil, fmt.Errorf("module %s: %w", mod.ModuleName, err)
	}
	if recs.Checksums, err = ms.FileChecksums(); err != nil {
		return nil, fmt.Errorf("module %s: %w", mod.ModuleName, err)
	}
	return recs, nil
}

// Names implements Source.
func (f *File) Names() *streams.StringTable {
	return f.names
}

// AddressMap implements Source.
func (f *File) AddressMap() *streams.AddressMap {
	return f.sections
}

// ModuleAt implements Source.
func (f *File) ModuleAt(segment uint16, offset uint32) (string, bool) {
	if f.dbi == nil {
		return "", false
	}
	i, ok := f.dbi.ModuleForAddress(segment, offset)
	if !ok || i >= len(f.dbi.Modules) {
		return "", false
	}
	return f.dbi.Modules[i].ModuleName, true
}
