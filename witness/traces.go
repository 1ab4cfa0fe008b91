package witness

import (
	"github.com/zkevm-go/zkevm/cpu"
	"github.com/zkevm-go/zkevm/logic"
)

// Traces is the append-only sink the generator emits rows into: one
// CPU row per cycle, one memory row per logged access, one logic row
// per bitwise operation. Append order within a cycle is part of the
// trace contract. Nothing in this layer reads pushed rows back; the
// accessors exist for the downstream consumer.
type Traces struct {
	cpu    []cpu.Row
	logic  []logic.Row
	memory []MemoryOp
}

func NewTraces() *Traces {
	return &Traces{}
}

// Clock is the number of completed cycles, i.e. the index the
// in-flight cycle's CPU row will be pushed at.
func (t *Traces) Clock() uint64 {
	return uint64(len(t.cpu))
}

func (t *Traces) PushCPU(row cpu.Row) {
	t.cpu = append(t.cpu, row)
}

func (t *Traces) PushLogic(row logic.Row) {
	t.logic = append(t.logic, row)
}

func (t *Traces) PushMemory(op MemoryOp) {
	t.memory = append(t.memory, op)
}

func (t *Traces) CPU() []cpu.Row {
	return t.cpu
}

func (t *Traces) Logic() []logic.Row {
	return t.logic
}

func (t *Traces) Memory() []MemoryOp {
	return t.memory
}

// Checkpoint captures the sink lengths so a failed cycle can be
// rolled back without leaving partial rows behind.
type Checkpoint struct {
	cpuLen    int
	logicLen  int
	memoryLen int
}

func (t *Traces) Checkpoint() Checkpoint {
	return Checkpoint{cpuLen: len(t.cpu), logicLen: len(t.logic), memoryLen: len(t.memory)}
}

// Rollback discards every row pushed since the checkpoint was taken.
func (t *Traces) Rollback(cp Checkpoint) {
	t.cpu = t.cpu[:cp.cpuLen]
	t.logic = t.logic[:cp.logicLen]
	t.memory = t.memory[:cp.memoryLen]
}

// MemorySince returns the memory ops logged since the checkpoint, in
// append order.
func (t *Traces) MemorySince(cp Checkpoint) []MemoryOp {
	return t.memory[cp.memoryLen:]
}
