package codeview

import (
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

type nameKey struct {
	enum bool
	name string
}

// nameIndex maps aggregate names to the index of their full definition.
type nameIndex struct {
	unique map[nameKey]TypeIndex
	plain  map[nameKey]TypeIndex
}

// definition finds the full definition matching a forward reference,
// preferring the unique (decorated) name. The index is built on first use.
func (r *TypeResolver) definition(h aggregateHeader) (TypeIndex, bool) {
	if r.names == nil {
		r.names = r.buildNameIndex()
	}
	if h.unique != "" {
		if idx, ok := r.names.unique[nameKey{h.enum, h.unique}]; ok {
			return idx, true
		}
	}
	idx, ok := r.names.plain[nameKey{h.enum, h.name}]
	return idx, ok
}

func (r *TypeResolver) buildNameIndex() *nameIndex {
	ni := &nameIndex{
		unique: make(map[nameKey]TypeIndex),
		plain:  make(map[nameKey]TypeIndex),
	}

	for idx := r.src.IndexBegin(); idx < r.src.IndexEnd(); idx++ {
		rec := r.src.TypeRecord(idx)
		if rec == nil {
			continue
		}
		switch rec.Kind {
		case streams.LF_CLASS, streams.LF_STRUCTURE, streams.LF_INTERFACE, streams.LF_UNION, streams.LF_ENUM:
		default:
			continue
		}

		h, err := parseAggregateHeader(rec)
		if err != nil {
			r.log.Debug().Err(err).Msg("skipping record in name index")
			continue
		}
		if h.props.ForwardRef() {
			continue
		}

		// The first definition of a name wins.
		if h.unique != "" {
			k := nameKey{h.enum, h.unique}
			if _, ok := ni.unique[k]; !ok {
				ni.unique[k] = idx
			}
		}
		k := nameKey{h.enum, h.name}
		if _, ok := ni.plain[k]; !ok {
			ni.plain[k] = idx
		}
	}

	r.log.Debug().Int("definitions", len(ni.plain)).Msg("built forward reference index")
	return ni
}
