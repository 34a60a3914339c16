package output

import (
	"fmt"
	"strings"
)

// Section selects a part of the output.
type Section uint8

const (
	SectionInfo Section = 1 << iota
	SectionModules
	SectionProcedures
	SectionPublics
	SectionGlobals
	SectionLabels
	SectionTypes

	AllSections = SectionInfo | SectionModules | SectionProcedures | SectionPublics |
		SectionGlobals | SectionLabels | SectionTypes
)

var sectionNames = map[string]Section{
	"info":       SectionInfo,
	"modules":    SectionModules,
	"procedures": SectionProcedures,
	"functions":  SectionProcedures,
	"publics":    SectionPublics,
	"globals":    SectionGlobals,
	"variables":  SectionGlobals,
	"labels":     SectionLabels,
	"types":      SectionTypes,
	"all":        AllSections,
}

// ParseSections combines section names. No names selects every section.
func ParseSections(names []string) (Section, error) {
	if len(names) == 0 {
		return AllSections, nil
	}
	var s Section
	for _, name := range names {
		sec, ok := sectionNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown section %q", name)
		}
		s |= sec
	}
	return s, nil
}

// Has reports whether every bit of sec is selected.
func (s Section) Has(sec Section) bool { return s&sec == sec }

// selection is the projection of the chosen sections, keyed the way the
// full Document is.
func selection(doc *Document, s Section) map[string]any {
	out := make(map[string]any)
	if s.Has(SectionInfo) {
		out["build_info"] = doc.BuildInfo
	}
	if s.Has(SectionModules) {
		out["modules"] = doc.Modules
	}
	if s.Has(SectionProcedures) {
		out["procedures"] = doc.Procedures
	}
	if s.Has(SectionPublics) {
		out["publics"] = doc.Publics
	}
	if s.Has(SectionGlobals) {
		out["globals"] = doc.Globals
	}
	if s.Has(SectionLabels) {
		out["labels"] = doc.Labels
	}
	if s.Has(SectionTypes) {
		out["types"] = doc.Types
		if len(doc.Degraded) > 0 {
			out["degraded_types"] = doc.Degraded
		}
	}
	return out
}
