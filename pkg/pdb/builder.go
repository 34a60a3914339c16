package pdb

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jtang613/pdbview/pkg/pdb/codeview"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// Options control a build.
type Options struct {
	// BaseAddress is added to every offset of the result.
	BaseAddress int64
	Logger      zerolog.Logger
}

// Parse opens the PDB at path and builds it.
func Parse(path string, opts Options) (*AssemblyInfo, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Build(f, opts)
}

// Build resolves every symbol, module and type record of src into an
// AssemblyInfo. It consumes the whole source before returning; on error no
// result is returned.
func Build(src Source, opts Options) (*AssemblyInfo, error) {
	log := opts.Logger.With().Str("component", "builder").Logger()

	types := src.Types()
	if types == nil {
		empty, err := streams.NewTPIStream(streams.TypeIndexBegin, nil)
		if err != nil {
			return nil, err
		}
		types = empty
	}
	resolver := codeview.NewTypeResolver(types, codeview.WithLogger(opts.Logger))
	c := newCollector(opts.Logger, resolver, src)

	hdr := src.Header()
	info := &AssemblyInfo{
		BuildInfo: BuildInfo{
			Path:      hdr.Path,
			Version:   hdr.Version,
			GUID:      hdr.GUID,
			Age:       hdr.Age,
			Timestamp: hdr.Timestamp,
			Machine:   streams.MachineTypeName(hdr.Machine),
		},
	}

	globals, err := src.GlobalSymbols()
	if err != nil {
		return nil, err
	}
	if err := c.walk(globals, "", nil); err != nil {
		return nil, fmt.Errorf("global symbols: %w", err)
	}

	for i, n := 0, src.NumModules(); i < n; i++ {
		recs, err := src.Module(i)
		if err != nil {
			return nil, err
		}

		mod := Module{Name: recs.Name, ObjectFile: recs.ObjectFile}
		agg := newModuleAggregator(opts.Logger, src.IDs(), &mod)
		if err := c.walk(recs.Symbols, recs.Name, agg); err != nil {
			return nil, fmt.Errorf("module %s: %w", recs.Name, err)
		}
		if mod.SourceFiles, err = c.sourceFiles(recs.Name, recs.Checksums); err != nil {
			return nil, err
		}

		if mod.Compiler != nil {
			info.BuildInfo.Compiler = mod.Compiler
		}
		if mod.BuildArguments != nil {
			info.BuildInfo.Arguments = mod.BuildArguments
		}
		log.Debug().Str("module", mod.Name).Int("symbols", len(recs.Symbols)).Msg("module collected")
		info.Modules = append(info.Modules, mod)
	}

	if err := resolver.Drain(); err != nil {
		return nil, err
	}
	table, err := buildTypeTable(resolver, types)
	if err != nil {
		return nil, err
	}

	c.sort()
	info.Procedures = c.procs
	info.Publics = c.publics
	info.Globals = c.globals
	info.Labels = c.labels
	info.Types = table
	info.Degraded = resolver.Degraded()

	for _, idx := range info.Degraded {
		log.Warn().Uint32("index", uint32(idx)).Msg("unknown primitive type")
	}
	log.Debug().
		Int("modules", len(info.Modules)).
		Int("procedures", len(info.Procedures)).
		Int("publics", len(info.Publics)).
		Int("globals", len(info.Globals)).
		Int("types", table.Len()).
		Msg("build complete")

	return Relocate(info, opts.BaseAddress), nil
}

// buildTypeTable resolves every type record of the stream. Helper records
// such as field and argument lists are only reachable through the types
// that own them.
func buildTypeTable(r *codeview.TypeResolver, types codeview.TypeSource) (*TypeTable, error) {
	table := newTypeTable()
	for idx := types.IndexBegin(); idx < types.IndexEnd(); idx++ {
		rec := types.TypeRecord(idx)
		if rec == nil || !streams.IsTypeLeaf(rec.Kind) {
			continue
		}
		node, err := r.Resolve(idx)
		if err != nil {
			return nil, fmt.Errorf("type 0x%x: %w", uint32(idx), err)
		}
		table.add(idx, node)
	}
	return table, nil
}
