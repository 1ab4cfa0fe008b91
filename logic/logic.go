// Package logic builds the rows of the bitwise-logic sub-table.
//
// AND/OR/XOR are cheap natively but expensive to constrain directly
// over a prime field, so each executed bitwise instruction is
// delegated to a dedicated table carrying an explicit bit
// decomposition of both operands. A narrow boolean argument then
// establishes the relation bit by bit, decoupled from the main CPU
// constraints.
package logic

import (
	"fmt"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/holiman/uint256"
)

// Op selects one of the three bitwise operations.
type Op uint8

const (
	And Op = iota
	Or
	Xor
)

func (op Op) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	case Xor:
		return "XOR"
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Result applies the operation over all 256 bits.
func (op Op) Result(a, b *uint256.Int) *uint256.Int {
	out := new(uint256.Int)
	switch op {
	case And:
		return out.And(a, b)
	case Or:
		return out.Or(a, b)
	case Xor:
		return out.Xor(a, b)
	}
	panic(fmt.Sprintf("logic: unknown op %d", uint8(op)))
}

// Row is one fixed-width row of the logic table.
type Row [NumColumns]goldilocks.Element

// RowFrom assembles the table row for one executed bitwise operation:
// one-hot selector, bit decomposition of both inputs, and the result
// as eight 32-bit limbs.
func RowFrom(op Op, in0, in1, result *uint256.Int) Row {
	var row Row
	switch op {
	case And:
		row[IsAnd].SetOne()
	case Or:
		row[IsOr].SetOne()
	case Xor:
		row[IsXor].SetOne()
	default:
		panic(fmt.Sprintf("logic: unknown op %d", uint8(op)))
	}
	for i := 0; i < 256; i++ {
		row[Input0+i].SetUint64(bit(in0, i))
		row[Input1+i].SetUint64(bit(in1, i))
	}
	for i := 0; i < 4; i++ {
		row[Result+2*i].SetUint64(result[i] & 0xffffffff)
		row[Result+2*i+1].SetUint64(result[i] >> 32)
	}
	return row
}

func bit(v *uint256.Int, i int) uint64 {
	return (v[i/64] >> (i % 64)) & 1
}

// Flatten serializes the row to canonical cell values in column
// order.
func (r *Row) Flatten() []uint64 {
	out := make([]uint64, NumColumns)
	for i := range r {
		out[i] = r[i].Uint64()
	}
	return out
}
