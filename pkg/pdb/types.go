// Package pdb builds a fully resolved view of a Microsoft PDB file: its
// modules and compiler settings, procedures, public symbols, global
// variables and the linked type graph.
package pdb

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jtang613/pdbview/pkg/pdb/codeview"
)

// Procedure is a named code range. Offset is an RVA when the file carries
// section headers, otherwise the offset within Segment.
type Procedure struct {
	Name          string             `json:"name"`
	DemangledName string             `json:"demangled_name,omitempty"`
	Offset        uint64             `json:"offset"`
	Segment       uint16             `json:"segment"`
	Length        uint32             `json:"length"`
	PrologueEnd   uint32             `json:"prologue_end"`
	EpilogueStart uint32             `json:"epilogue_start"`
	TypeIndex     codeview.TypeIndex `json:"type_index"`
	Signature     codeview.TypeNode  `json:"-"`
	Global        bool               `json:"is_global"`
	DPC           bool               `json:"is_dpc"`
	Module        string             `json:"module,omitempty"`
}

// PublicSymbol is an entry of the public symbol table.
type PublicSymbol struct {
	Name          string `json:"name"`
	DemangledName string `json:"demangled_name,omitempty"`
	Offset        uint64 `json:"offset"`
	Segment       uint16 `json:"segment"`
	Code          bool   `json:"is_code"`
	Function      bool   `json:"is_function"`
	Managed       bool   `json:"is_managed"`
	MSIL          bool   `json:"is_msil"`

	// Module is the module whose section contribution covers the symbol,
	// empty when none does.
	Module string `json:"module,omitempty"`
}

// GlobalVariable is a global or file-static data symbol.
type GlobalVariable struct {
	Name          string             `json:"name"`
	DemangledName string             `json:"demangled_name,omitempty"`
	Offset        uint64             `json:"offset"`
	Segment       uint16             `json:"segment"`
	TypeIndex     codeview.TypeIndex `json:"type_index"`
	Type          codeview.TypeNode  `json:"-"`
	Global        bool               `json:"is_global"`
	Managed       bool               `json:"is_managed"`
	ThreadLocal   bool               `json:"is_thread_local"`
	Module        string             `json:"module,omitempty"`
}

// Label is a code label.
type Label struct {
	Name    string `json:"name"`
	Offset  uint64 `json:"offset"`
	Segment uint16 `json:"segment"`
	Module  string `json:"module,omitempty"`
}

// ChecksumKind is the hash algorithm of a source file checksum.
type ChecksumKind uint8

const (
	ChecksumNone ChecksumKind = iota
	ChecksumMD5
	ChecksumSHA1
	ChecksumSHA256
)

func (k ChecksumKind) String() string {
	switch k {
	case ChecksumNone:
		return "none"
	case ChecksumMD5:
		return "md5"
	case ChecksumSHA1:
		return "sha1"
	case ChecksumSHA256:
		return "sha256"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k ChecksumKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SourceFile is a source file compiled into a module.
type SourceFile struct {
	Path         string       `json:"path"`
	ChecksumKind ChecksumKind `json:"checksum_kind"`
	Checksum     []byte       `json:"checksum,omitempty"`
}

// Module is one compiland.
type Module struct {
	Name           string                 `json:"name"`
	ObjectFile     string                 `json:"object_file"`
	SourceFiles    []SourceFile           `json:"source_files"`
	Compiler       *codeview.CompilerInfo `json:"compiler,omitempty"`
	BuildArguments []string               `json:"build_arguments,omitempty"`
}

// BuildInfo describes the PDB itself and the build that produced it.
type BuildInfo struct {
	Path      string                 `json:"path,omitempty"`
	Version   uint32                 `json:"version"`
	GUID      uuid.UUID              `json:"guid"`
	Age       uint32                 `json:"age"`
	Timestamp uint32                 `json:"timestamp"`
	Machine   string                 `json:"machine"`
	Compiler  *codeview.CompilerInfo `json:"compiler,omitempty"`
	Arguments []string               `json:"arguments,omitempty"`
}

// AssemblyInfo is the result of a build. Procedures, publics, globals and
// labels are ordered by offset.
type AssemblyInfo struct {
	BuildInfo  BuildInfo        `json:"build_info"`
	Modules    []Module         `json:"modules"`
	Procedures []Procedure      `json:"procedures"`
	Publics    []PublicSymbol   `json:"publics"`
	Globals    []GlobalVariable `json:"globals"`
	Labels     []Label          `json:"labels,omitempty"`
	Types      *TypeTable       `json:"-"`

	// Degraded lists the type indices that resolved to an unknown primitive.
	Degraded []codeview.TypeIndex `json:"degraded_types,omitempty"`
}

// TypeTable maps every type record of the type stream to its resolved node.
// Forward references map to the node of their definition.
type TypeTable struct {
	nodes map[codeview.TypeIndex]codeview.TypeNode
	order []codeview.TypeIndex
}

func newTypeTable() *TypeTable {
	return &TypeTable{nodes: make(map[codeview.TypeIndex]codeview.TypeNode)}
}

func (t *TypeTable) add(idx codeview.TypeIndex, n codeview.TypeNode) {
	if _, ok := t.nodes[idx]; !ok {
		t.order = append(t.order, idx)
	}
	t.nodes[idx] = n
}

// Lookup returns the node for idx.
func (t *TypeTable) Lookup(idx codeview.TypeIndex) (codeview.TypeNode, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.nodes[idx]
	return n, ok
}

// Indices returns the table's indices in ascending order.
func (t *TypeTable) Indices() []codeview.TypeIndex {
	if t == nil {
		return nil
	}
	out := make([]codeview.TypeIndex, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of indices in the table.
func (t *TypeTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Named returns the defined classes, structs, unions and enums that carry a
// name, each once, in index order.
func (t *TypeTable) Named() []codeview.TypeNode {
	if t == nil {
		return nil
	}
	var out []codeview.TypeNode
	for _, idx := range t.order {
		n := t.nodes[idx]
		if n.ID() != idx {
			continue // forward reference aliasing its definition
		}
		switch v := n.(type) {
		case *codeview.Class:
			if v.Name != "" && !v.Forward {
				out = append(out, v)
			}
		case *codeview.Enum:
			if v.Name != "" && !v.Forward {
				out = append(out, v)
			}
		}
	}
	return out
}
