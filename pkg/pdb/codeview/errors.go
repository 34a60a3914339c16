package codeview

import "github.com/jtang613/pdbview/pkg/pdb/pdberr"

// Errors returned by the resolver and the symbol decoders. Match with errors.Is.
var (
	ErrMalformedType           = pdberr.ErrMalformedType
	ErrUnresolvedIndex         = pdberr.ErrUnresolvedIndex
	ErrUnknownPrimitive        = pdberr.ErrUnknownPrimitive
	ErrUnsupportedChecksumKind = pdberr.ErrUnsupportedChecksumKind
	ErrTruncatedSymbolRecord   = pdberr.ErrTruncatedSymbolRecord
)
