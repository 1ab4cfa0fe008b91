package witness

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tidwall/btree"
)

// Segment partitions the address space into logical regions so that
// otherwise-overlapping offsets stay distinct in the memory argument.
type Segment uint32

const (
	SegmentCode Segment = iota
	SegmentStack
	SegmentMainMemory
	SegmentCalldata
	SegmentReturndata
)

func (s Segment) String() string {
	switch s {
	case SegmentCode:
		return "code"
	case SegmentStack:
		return "stack"
	case SegmentMainMemory:
		return "main"
	case SegmentCalldata:
		return "calldata"
	case SegmentReturndata:
		return "returndata"
	}
	return fmt.Sprintf("segment(%d)", uint32(s))
}

// MemoryAddress identifies one 256-bit word slot.
type MemoryAddress struct {
	Context uint32
	Segment Segment
	Virtual uint32
}

func (a MemoryAddress) String() string {
	return fmt.Sprintf("%d/%s/%d", a.Context, a.Segment, a.Virtual)
}

// MemoryOpKind is the direction of a logged access.
type MemoryOpKind uint8

const (
	MemoryRead MemoryOpKind = iota
	MemoryWrite
)

func (k MemoryOpKind) String() string {
	if k == MemoryRead {
		return "read"
	}
	return "write"
}

// MemoryOp is the record of one logged memory access. It is created
// exactly once, at access time, and owned by the trace sink after
// being pushed; nothing at this layer reads it back.
//
// Channel is the bus position of the access: the code channel for an
// instruction fetch, cpu.GPChannel(k) for the k-th general purpose
// access. It always equals Timestamp mod cpu.NumChannels, so a fetch
// is never confused with a general purpose access on channel zero.
type MemoryOp struct {
	Channel   int
	Timestamp uint64
	Address   MemoryAddress
	Kind      MemoryOpKind
	Value     uint256.Int
}

type memCell struct {
	addr  MemoryAddress
	value uint256.Int
}

func memCellLess(a, b memCell) bool {
	if a.addr.Context != b.addr.Context {
		return a.addr.Context < b.addr.Context
	}
	if a.addr.Segment != b.addr.Segment {
		return a.addr.Segment < b.addr.Segment
	}
	return a.addr.Virtual < b.addr.Virtual
}

// MemoryState is the sparse word-addressable store the generator runs
// against. Reads of untouched cells return zero. It is read-shared
// within a cycle; writes are applied between cycles by replaying the
// logged write ops.
type MemoryState struct {
	cells *btree.BTreeG[memCell]
}

func NewMemoryState() *MemoryState {
	return &MemoryState{cells: btree.NewBTreeG(memCellLess)}
}

// Get returns the last value written to addr, or zero if the cell was
// never touched.
func (m *MemoryState) Get(addr MemoryAddress) uint256.Int {
	cell, ok := m.cells.Get(memCell{addr: addr})
	if !ok {
		return uint256.Int{}
	}
	return cell.value
}

// Set overwrites one cell.
func (m *MemoryState) Set(addr MemoryAddress, value *uint256.Int) {
	m.cells.Set(memCell{addr: addr, value: *value})
}

// SetCode seeds a code image one byte per cell into the code segment
// of the given context.
func (m *MemoryState) SetCode(context uint32, code []byte) {
	for i, b := range code {
		var v uint256.Int
		v.SetUint64(uint64(b))
		m.Set(MemoryAddress{Context: context, Segment: SegmentCode, Virtual: uint32(i)}, &v)
	}
}

// Apply replays one logged op against the store. Reads are no-ops.
func (m *MemoryState) Apply(op MemoryOp) {
	if op.Kind == MemoryWrite {
		m.Set(op.Address, &op.Value)
	}
}

// Len returns the number of touched cells.
func (m *MemoryState) Len() int {
	return m.cells.Len()
}
