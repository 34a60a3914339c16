package pdb

import (
	"github.com/google/uuid"

	"github.com/jtang613/pdbview/pkg/pdb/codeview"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// Source is the decoded record layer a build consumes. *File implements it
// over an MSF container; tests supply in-memory sources.
type Source interface {
	Header() Header
	// Types returns the TPI records. A nil source means no types.
	Types() codeview.TypeSource
	// IDs returns the IPI records, nil when the file has none.
	IDs() codeview.TypeSource
	GlobalSymbols() ([]codeview.SymbolRecord, error)
	NumModules() int
	Module(i int) (*ModuleRecords, error)
	// Names returns the /names string table, nil when absent.
	Names() *streams.StringTable
	// AddressMap returns the section header map, nil when absent.
	AddressMap() *streams.AddressMap
	// ModuleAt returns the name of the module whose section contribution
	// covers segment:offset.
	ModuleAt(segment uint16, offset uint32) (string, bool)
}

// Header is the identifying information of a PDB.
type Header struct {
	Path      string
	Version   uint32
	GUID      uuid.UUID
	Age       uint32
	Timestamp uint32
	Machine   uint16
}

// ModuleRecords is the raw content of one module.
type ModuleRecords struct {
	Name       string
	ObjectFile string
	Symbols    []codeview.SymbolRecord
	Checksums  []streams.FileChecksum
}
