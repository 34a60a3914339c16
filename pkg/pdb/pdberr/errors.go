// Package pdberr defines the error taxonomy shared by the PDB decoding and
// resolution packages.
//
// Every error carries a Kind. Sentinels of each kind are exported so callers
// can match with errors.Is regardless of the context attached:
//
//	if errors.Is(err, pdberr.ErrUnresolvedIndex) { ... }
//
// KindUnknownPrimitive is non-fatal: the resolver absorbs it into a degraded
// node. Every other kind aborts a build.
package pdberr

import (
	"fmt"
	"strings"
)

// Kind categorizes the error.
type Kind string

const (
	KindMalformedType           Kind = "malformed_type"
	KindUnresolvedIndex         Kind = "unresolved_index"
	KindUnknownPrimitive        Kind = "unknown_primitive"
	KindUnsupportedChecksumKind Kind = "unsupported_checksum_kind"
	KindTruncatedSymbolRecord   Kind = "truncated_symbol_record"
)

// Sentinels for errors.Is matching.
var (
	ErrMalformedType           = &Error{Kind: KindMalformedType}
	ErrUnresolvedIndex         = &Error{Kind: KindUnresolvedIndex}
	ErrUnknownPrimitive        = &Error{Kind: KindUnknownPrimitive}
	ErrUnsupportedChecksumKind = &Error{Kind: KindUnsupportedChecksumKind}
	ErrTruncatedSymbolRecord   = &Error{Kind: KindTruncatedSymbolRecord}
)

// Error is the structured error used by the pdb packages.
type Error struct {
	Cause  error
	Kind   Kind
	Detail string
	// Index is the type index (or item id) involved, 0 when not applicable.
	Index uint32
	// Record is the leaf or symbol kind of the offending record, 0 when unknown.
	Record uint16
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))

	if e.Index != 0 {
		fmt.Fprintf(&b, " at index 0x%x", e.Index)
	}
	if e.Record != 0 {
		fmt.Fprintf(&b, " (record 0x%04x)", e.Record)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Fatal reports whether an error of this kind must abort a build.
func (k Kind) Fatal() bool {
	return k != KindUnknownPrimitive
}

// MalformedType reports a type record that is short or lacks a required sub-record.
func MalformedType(index uint32, leaf uint16, format string, args ...any) *Error {
	return &Error{Kind: KindMalformedType, Index: index, Record: leaf, Detail: fmt.Sprintf(format, args...)}
}

// UnresolvedIndex reports an index outside the type stream.
func UnresolvedIndex(index uint32, detail string) *Error {
	return &Error{Kind: KindUnresolvedIndex, Index: index, Detail: detail}
}

// UnknownPrimitive reports a simple type code missing from the primitive table.
func UnknownPrimitive(code uint32) *Error {
	return &Error{Kind: KindUnknownPrimitive, Index: code}
}

// UnsupportedChecksumKind reports a source file checksum of an unknown algorithm.
func UnsupportedChecksumKind(path string, kind uint8) *Error {
	return &Error{Kind: KindUnsupportedChecksumKind, Detail: fmt.Sprintf("file %q uses checksum kind %d", path, kind)}
}

// TruncatedSymbolRecord reports a symbol record shorter than its fixed layout.
func TruncatedSymbolRecord(kind uint16, have, want int) *Error {
	return &Error{
		Kind:   KindTruncatedSymbolRecord,
		Record: kind,
		Detail: fmt.Sprintf("%d bytes, need at least %d", have, want),
	}
}
