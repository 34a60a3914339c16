package codeview

import (
	"fmt"

	"github.com/jtang613/pdbview/pkg/pdb/pdberr"
	"github.com/jtang613/pdbview/pkg/pdb/streams"
)

// Argument slots of an LF_BUILDINFO record.
const (
	BuildInfoCurrentDirectory = iota
	BuildInfoBuildTool
	BuildInfoSourceFile
	BuildInfoPDB
	BuildInfoCommandLine
)

func item(ids TypeSource, id TypeIndex) (*streams.TypeRecord, error) {
	if ids == nil {
		return nil, pdberr.UnresolvedIndex(uint32(id), "no id stream")
	}
	if id < ids.IndexBegin() || id >= ids.IndexEnd() {
		return nil, pdberr.UnresolvedIndex(uint32(id), "outside id stream")
	}
	rec := ids.TypeRecord(id)
	if rec == nil {
		return nil, pdberr.UnresolvedIndex(uint32(id), "no id record")
	}
	return rec, nil
}

// FunctionType maps an LF_FUNC_ID or LF_MFUNC_ID item to the function type
// index it names.
func FunctionType(ids TypeSource, id TypeIndex) (TypeIndex, error) {
	rec, err := item(ids, id)
	if err != nil {
		return 0, err
	}
	if rec.Kind != streams.LF_FUNC_ID && rec.Kind != streams.LF_MFUNC_ID {
		return 0, pdberr.MalformedType(uint32(id), rec.Kind, "not a function id")
	}
	lr := newLeafReader(rec)
	lr.u32("scope")
	typ := lr.index32("function type")
	return typ, lr.err
}

// StringID returns the text of an LF_STRING_ID item, prefixed by its
// substring list when it has one.
func StringID(ids TypeSource, id TypeIndex) (string, error) {
	return stringID(ids, id, 0)
}

func stringID(ids TypeSource, id TypeIndex, depth int) (string, error) {
	if depth > 8 {
		return "", pdberr.MalformedType(uint32(id), streams.LF_STRING_ID, "substring nesting too deep")
	}
	rec, err := item(ids, id)
	if err != nil {
		return "", err
	}
	if rec.Kind != streams.LF_STRING_ID {
		return "", pdberr.MalformedType(uint32(id), rec.Kind, "not a string id")
	}

	lr := newLeafReader(rec)
	substrings := lr.index32("substring list")
	s := lr.name()
	if lr.err != nil {
		return "", lr.err
	}
	if substrings == 0 {
		return s, nil
	}

	list, err := item(ids, substrings)
	if err != nil {
		return "", err
	}
	if list.Kind != streams.LF_SUBSTR_LIST {
		return "", pdberr.MalformedType(uint32(substrings), list.Kind, "not a substring list")
	}
	lr = newLeafReader(list)
	var prefix string
	for i, n := uint32(0), lr.u32("substring count"); i < n; i++ {
		part := lr.index32("substring")
		if lr.err != nil {
			return "", lr.err
		}
		p, err := stringID(ids, part, depth+1)
		if err != nil {
			return "", err
		}
		prefix += p
	}
	return prefix + s, nil
}

// BuildInfoArgs resolves the arguments of an LF_BUILDINFO item. Empty slots
// (item 0) yield empty strings.
func BuildInfoArgs(ids TypeSource, id TypeIndex) ([]string, error) {
	rec, err := item(ids, id)
	if err != nil {
		return nil, err
	}
	if rec.Kind != streams.LF_BUILDINFO {
		return nil, pdberr.MalformedType(uint32(id), rec.Kind, "not a build info record")
	}

	lr := newLeafReader(rec)
	count := lr.u16("argument count")
	args := make([]string, 0, count)
	for i := uint16(0); i < count; i++ {
		arg := lr.index32("argument")
		if lr.err != nil {
			return nil, lr.err
		}
		if arg == 0 {
			args = append(args, "")
			continue
		}
		s, err := StringID(ids, arg)
		if err != nil {
			return nil, fmt.Errorf("build info 0x%x: %w", uint32(id), err)
		}
		args = append(args, s)
	}
	return args, nil
}
