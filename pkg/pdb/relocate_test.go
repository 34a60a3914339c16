package pdb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInfo() *AssemblyInfo {
	return &AssemblyInfo{
		Procedures: []Procedure{{Name: "a", Offset: 0x1000}, {Name: "b", Offset: 0x2000}},
		Publics:    []PublicSymbol{{Name: "p", Offset: 0x10}},
		Globals:    []GlobalVariable{{Name: "g", Offset: 0}},
		Labels:     []Label{{Name: "l", Offset: math.MaxUint64}},
	}
}

func TestRelocateRoundTrip(t *testing.T) {
	for _, base := range []int64{0, 1, 0x140000000, -0x1000, math.MaxInt64, math.MinInt64} {
		orig := sampleInfo()
		moved := Relocate(orig, base)
		back := Relocate(moved, -base)
		assert.Equal(t, sampleInfo(), back, "base %#x", base)
		assert.Equal(t, sampleInfo(), orig, "input is not modified")
	}
}

func TestRelocateShiftsEveryOffset(t *testing.T) {
	out := Relocate(sampleInfo(), 0x400000)
	assert.Equal(t, uint64(0x401000), out.Procedures[0].Offset)
	assert.Equal(t, uint64(0x402000), out.Procedures[1].Offset)
	assert.Equal(t, uint64(0x400010), out.Publics[0].Offset)
	assert.Equal(t, uint64(0x400000), out.Globals[0].Offset)
	assert.Equal(t, uint64(0x3fffff), out.Labels[0].Offset)
}

func TestRelocateZeroIsIdentity(t *testing.T) {
	in := sampleInfo()
	out := Relocate(in, 0)
	require.Equal(t, in, out)
	for i := 1; i < len(out.Procedures); i++ {
		assert.LessOrEqual(t, out.Procedures[i-1].Offset, out.Procedures[i].Offset)
	}
	assert.Nil(t, Relocate(nil, 5))
}
