package pdb

import "github.com/jtang613/pdbview/pkg/pdb/pdberr"

// Error kinds returned by Build, for use with errors.Is.
var (
	ErrMalformedType           = pdberr.ErrMalformedType
	ErrUnresolvedIndex         = pdberr.ErrUnresolvedIndex
	ErrUnknownPrimitive        = pdberr.ErrUnknownPrimitive
	ErrUnsupportedChecksumKind = pdberr.ErrUnsupportedChecksumKind
	ErrTruncatedSymbolRecord   = pdberr.ErrTruncatedSymbolRecord
)
