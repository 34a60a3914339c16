package pdberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"malformed matches sentinel", MalformedType(0x1003, 0x1505, "short"), ErrMalformedType, true},
		{"malformed is not unresolved", MalformedType(0x1003, 0x1505, "short"), ErrUnresolvedIndex, false},
		{"wrapped unresolved", fmt.Errorf("module a.obj: %w", UnresolvedIndex(0x2000, "")), ErrUnresolvedIndex, true},
		{"checksum", UnsupportedChecksumKind("a.c", 9), ErrUnsupportedChecksumKind, true},
		{"truncated", TruncatedSymbolRecord(0x1110, 3, 35), ErrTruncatedSymbolRecord, true},
		{"plain error", errors.New("x"), ErrMalformedType, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := MalformedType(0x1004, 0x1203, "field list ends inside %s", "LF_MEMBER")
	assert.Equal(t, "malformed type at index 0x1004 (record 0x1203): field list ends inside LF_MEMBER", err.Error())

	wrapped := &Error{Kind: KindUnresolvedIndex, Index: 0x9000, Cause: errors.New("stream ends at 0x1010")}
	assert.Equal(t, "unresolved index at index 0x9000: stream ends at 0x1010", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "stream ends at 0x1010")
}

func TestKindFatal(t *testing.T) {
	assert.False(t, KindUnknownPrimitive.Fatal())
	for _, k := range []Kind{KindMalformedType, KindUnresolvedIndex, KindUnsupportedChecksumKind, KindTruncatedSymbolRecord} {
		assert.True(t, k.Fatal(), string(k))
	}
}
