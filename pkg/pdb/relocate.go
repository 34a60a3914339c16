package pdb

import "slices"

// Relocate returns a copy of info with every procedure, public, global and
// label offset shifted by base. Addition wraps, so relocating by base and
// then by -base restores the original offsets. info is not modified.
func Relocate(info *AssemblyInfo, base int64) *AssemblyInfo {
	if info == nil {
		return nil
	}
	shift := uint64(base)
	out := *info

	out.Procedures = slices.Clone(info.Procedures)
	for i := range out.Procedures {
		out.Procedures[i].Offset += shift
	}
	out.Publics = slices.Clone(info.Publics)
	for i := range out.Publics {
		out.Publics[i].Offset += shift
	}
	out.Globals = slices.Clone(info.Globals)
	for i := range out.Globals {
		out.Globals[i].Offset += shift
	}
	out.Labels = slices.Clone(info.Labels)
	for i := range out.Labels {
		out.Labels[i].Offset += shift
	}
	return &out
}
