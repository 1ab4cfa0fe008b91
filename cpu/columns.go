package cpu

import (
	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/holiman/uint256"
)

// MemChannel holds the columns of one general purpose memory channel
// within a cycle. A channel that is not used by the instruction keeps
// all cells at zero.
type MemChannel struct {
	Used        goldilocks.Element
	IsRead      goldilocks.Element
	AddrContext goldilocks.Element
	AddrSegment goldilocks.Element
	AddrVirtual goldilocks.Element

	// Value carries the 256-bit word as eight 32-bit limbs, least
	// significant limb first.
	Value [8]goldilocks.Element
}

// Row is the per-cycle scratch buffer an opcode handler fills before
// handing the finished row to the trace sink. Each applicable cell is
// written exactly once per cycle.
type Row struct {
	IsCPUCycle goldilocks.Element
	Clock      goldilocks.Element

	// Register snapshot at the start of the cycle.
	Context        goldilocks.Element
	ProgramCounter goldilocks.Element
	IsKernelMode   goldilocks.Element
	StackLen       goldilocks.Element

	Opcode goldilocks.Element

	Channels [NumGPChannels]MemChannel

	// DiffPinv is the zero-test witness written by ISZERO and EQ: a
	// limb vector whose dot product with the operand difference is
	// exactly 1 when the operands differ, 0 when they are equal.
	DiffPinv [8]goldilocks.Element
}

// SetValue writes a 256-bit word into the channel's value columns as
// eight 32-bit limbs.
func (ch *MemChannel) SetValue(v *uint256.Int) {
	limbs := ValueLimbs(v)
	copy(ch.Value[:], limbs[:])
}

// ValueLimbs decomposes a 256-bit word into eight 32-bit limbs, least
// significant first, each embedded as a field element.
func ValueLimbs(v *uint256.Int) [8]goldilocks.Element {
	var limbs [8]goldilocks.Element
	for i := 0; i < 4; i++ {
		limbs[2*i].SetUint64(v[i] & 0xffffffff)
		limbs[2*i+1].SetUint64(v[i] >> 32)
	}
	return limbs
}

// NumRowCells is the flattened width of a Row.
const NumRowCells = 7 + NumGPChannels*13 + 8

// Flatten serializes the row to canonical cell values in column
// order, the shape the table builders downstream consume.
func (r *Row) Flatten() []uint64 {
	out := make([]uint64, 0, NumRowCells)
	out = append(out,
		r.IsCPUCycle.Uint64(), r.Clock.Uint64(),
		r.Context.Uint64(), r.ProgramCounter.Uint64(), r.IsKernelMode.Uint64(), r.StackLen.Uint64(),
		r.Opcode.Uint64(),
	)
	for i := range r.Channels {
		ch := &r.Channels[i]
		out = append(out, ch.Used.Uint64(), ch.IsRead.Uint64(),
			ch.AddrContext.Uint64(), ch.AddrSegment.Uint64(), ch.AddrVirtual.Uint64())
		for j := range ch.Value {
			out = append(out, ch.Value[j].Uint64())
		}
	}
	for i := range r.DiffPinv {
		out = append(out, r.DiffPinv[i].Uint64())
	}
	return out
}
