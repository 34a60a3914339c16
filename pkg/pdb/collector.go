package pdb

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/jtang613/pdbview/pkg/pdb/codeview"
	"github.com/jtang613/pdbview/pkg/pdb/demangle"
	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

type dataKey struct {
	segment uint16
	offset  uint32
	name    string
}

// collector walks symbol records and accumulates the symbol lists of an
// AssemblyInfo.
type collector struct {
	log   zerolog.Logger
	types *codeview.TypeResolver
	ids   codeview.TypeSource
	addrs *streams.AddressMap
	names *streams.StringTable

	// moduleAt finds the contributing module of a public symbol.
	moduleAt func(segment uint16, offset uint32) (string, bool)

	procs   []Procedure
	publics []PublicSymbol
	globals []GlobalVariable
	labels  []Label

	// data symbols seen so far, by position in globals
	seen map[dataKey]int
}

func newCollector(log zerolog.Logger, types *codeview.TypeResolver, src Source) *collector {
	return &collector{
		log:   log.With().Str("component", "collector").Logger(),
		types: types,
		ids:   src.IDs(),
		addrs: src.AddressMap(),
		names: src.Names(),
		seen:  make(map[dataKey]int),

		moduleAt: src.ModuleAt,
	}
}

// walk classifies each record once. Compile, build info and object name
// records go to agg when the records belong to a module.
func (c *collector) walk(syms []codeview.SymbolRecord, module string, agg *moduleAggregator) error {
	for _, rec := range syms {
		var err error
		switch codeview.Classify(rec.Kind) {
		case codeview.ClassPublic:
			err = c.public(rec)
		case codeview.ClassProcedure:
			err = c.procedure(rec, module)
		case codeview.ClassData:
			err = c.data(rec, module)
		case codeview.ClassLabel:
			err = c.label(rec, module)
		case codeview.ClassCompile, codeview.ClassBuildInfo, codeview.ClassObjName:
			if agg != nil {
				err = agg.record(rec)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// address translates segment:offset to an RVA. Without section headers, or
// for a segment they do not describe, the raw offset is kept.
func (c *collector) address(segment uint16, offset uint32, name string) uint64 {
	if c.addrs == nil {
		return uint64(offset)
	}
	rva, ok := c.addrs.Translate(segment, offset)
	if !ok {
		c.log.Warn().Uint16("segment", segment).Str("symbol", name).Msg("invalid section index, keeping raw offset")
		return uint64(offset)
	}
	return rva
}

func (c *collector) public(rec codeview.SymbolRecord) error {
	pub, err := codeview.ParsePubSym(rec)
	if err != nil {
		return err
	}
	module, _ := c.moduleAt(pub.Segment, pub.Offset)
	c.publics = append(c.publics, PublicSymbol{
		Name:          pub.Name,
		DemangledName: demangledName(pub.Name),
		Offset:        c.address(pub.Segment, pub.Offset, pub.Name),
		Segment:       pub.Segment,
		Code:          pub.Flags&codeview.PubCode != 0,
		Function:      pub.Flags&codeview.PubFunction != 0,
		Managed:       pub.Flags&codeview.PubManaged != 0,
		MSIL:          pub.Flags&codeview.PubMSIL != 0,
		Module:        module,
	})
	return nil
}

func (c *collector) procedure(rec codeview.SymbolRecord, module string) error {
	proc, err := codeview.ParseProcSym(rec)
	if err != nil {
		return err
	}

	ti := codeview.TypeIndex(proc.TypeIndex)
	if proc.IDBacked() {
		if ti, err = codeview.FunctionType(c.ids, ti); err != nil {
			return fmt.Errorf("procedure %s: %w", proc.Name, err)
		}
	}
	sig, err := c.types.Resolve(ti)
	if err != nil {
		return fmt.Errorf("procedure %s: %w", proc.Name, err)
	}

	c.log.Debug().Str("name", proc.Name).Uint32("type", uint32(ti)).Msg("procedure")
	c.procs = append(c.procs, Procedure{
		Name:          proc.Name,
		DemangledName: demangledName(proc.Name),
		Offset:        c.address(proc.Segment, proc.Offset, proc.Name),
		Segment:       proc.Segment,
		Length:        proc.Length,
		PrologueEnd:   proc.DbgStart,
		EpilogueStart: proc.DbgEnd,
		TypeIndex:     ti,
		Signature:     sig,
		Global:        proc.Global(),
		DPC:           proc.DPC(),
		Module:        module,
	})
	return nil
}

// data records a data symbol. The same variable can appear in the global
// symbol stream and in its module; the first record wins and the module
// name is filled in from the later one.
func (c *collector) data(rec codeview.SymbolRecord, module string) error {
	sym, err := codeview.ParseDataSym(rec)
	if err != nil {
		return err
	}

	key := dataKey{segment: sym.Segment, offset: sym.Offset, name: sym.Name}
	if i, ok := c.seen[key]; ok {
		if c.globals[i].Module == "" {
			c.globals[i].Module = module
		}
		return nil
	}

	typ, err := c.types.Resolve(codeview.TypeIndex(sym.TypeIndex))
	if err != nil {
		return fmt.Errorf("data %s: %w", sym.Name, err)
	}

	c.seen[key] = len(c.globals)
	c.globals = append(c.globals, GlobalVariable{
		Name:          sym.Name,
		DemangledName: demangledName(sym.Name),
		Offset:        c.address(sym.Segment, sym.Offset, sym.Name),
		Segment:       sym.Segment,
		TypeIndex:     codeview.TypeIndex(sym.TypeIndex),
		Type:          typ,
		Global:        sym.Global(),
		Managed:       sym.Managed(),
		ThreadLocal:   sym.ThreadLocal(),
		Module:        module,
	})
	return nil
}

func (c *collector) label(rec codeview.SymbolRecord, module string) error {
	l, err := codeview.ParseLabelSym(rec)
	if err != nil {
		return err
	}
	c.labels = append(c.labels, Label{
		Name:    l.Name,
		Offset:  c.address(l.Segment, l.Offset, l.Name),
		Segment: l.Segment,
		Module:  module,
	})
	return nil
}

type fileKey struct {
	path string
	kind ChecksumKind
}

// sourceFiles turns a module's checksum table into its source file list,
// one entry per (path, checksum kind).
func (c *collector) sourceFiles(module string, sums []streams.FileChecksum) ([]SourceFile, error) {
	var files []SourceFile
	index := make(map[fileKey]int)

	for _, sum := range sums {
		path, err := c.names.String(sum.NameOffset)
		if err != nil {
			return nil, fmt.Errorf("module %s: checksum file name: %w", module, err)
		}
		if sum.Kind > streams.ChecksumSHA256 {
			return nil, fmt.Errorf("module %s: %w", module, pdberr.UnsupportedChecksumKind(path, sum.Kind))
		}

		key := fileKey{path: path, kind: ChecksumKind(sum.Kind)}
		if i, ok := index[key]; ok {
			if !bytes.Equal(files[i].Checksum, sum.Bytes) {
				c.log.Warn().Str("module", module).Str("file", path).Msg("conflicting checksums, keeping the first")
			}
			continue
		}

		f := SourceFile{Path: path, ChecksumKind: key.kind}
		if len(sum.Bytes) > 0 {
			f.Checksum = bytes.Clone(sum.Bytes)
		}
		index[key] = len(files)
		files = append(files, f)
	}
	return files, nil
}

// sort orders every symbol list by offset, then name.
func (c *collector) sort() {
	slices.SortStableFunc(c.procs, func(a, b Procedure) int {
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	slices.SortStableFunc(c.publics, func(a, b PublicSymbol) int {
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	slices.SortStableFunc(c.globals, func(a, b GlobalVariable) int {
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	slices.SortStableFunc(c.labels, func(a, b Label) int {
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// demangledName returns the undecorated name, or "" when name is not
// decorated.
func demangledName(name string) string {
	d := demangle.Demangle(name)
	if d == name {
		return ""
	}
	return d
}
