package pdb

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jtang613/pdbview/pkg/pdb/codeview"
)

// moduleAggregator fills in a Module from its compile, build info and
// object name records.
type moduleAggregator struct {
	log zerolog.Logger
	ids codeview.TypeSource
	mod *Module
}

func newModuleAggregator(log zerolog.Logger, ids codeview.TypeSource, mod *Module) *moduleAggregator {
	return &moduleAggregator{
		log: log.With().Str("component", "modules").Str("module", mod.Name).Logger(),
		ids: ids,
		mod: mod,
	}
}

func (a *moduleAggregator) record(rec codeview.SymbolRecord) error {
	switch codeview.Classify(rec.Kind) {
	case codeview.ClassCompile:
		info, err := codeview.ParseCompile(rec)
		if err != nil {
			return fmt.Errorf("module %s: %w", a.mod.Name, err)
		}
		a.mod.Compiler = info

	case codeview.ClassObjName:
		name, err := codeview.ParseObjNameSym(rec)
		if err != nil {
			return fmt.Errorf("module %s: %w", a.mod.Name, err)
		}
		if a.mod.ObjectFile == "" {
			a.mod.ObjectFile = name
		}

	case codeview.ClassBuildInfo:
		id, err := codeview.ParseBuildInfoSym(rec)
		if err != nil {
			return fmt.Errorf("module %s: %w", a.mod.Name, err)
		}
		// Build info is informational; a broken reference does not fail the build.
		args, err := codeview.BuildInfoArgs(a.ids, id)
		if err != nil {
			a.log.Warn().Err(err).Uint32("id", uint32(id)).Msg("skipping build info")
			return nil
		}
		a.mod.BuildArguments = args
	}
	return nil
}
