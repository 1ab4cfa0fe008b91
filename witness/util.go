package witness

import (
	"github.com/holiman/uint256"

	"github.com/zkevm-go/zkevm/cpu"
)

// Channel discipline: the caller assigns general purpose channels in
// ascending order per cycle. Pops occupy channels 0..k-1, a push
// always lands on the last channel, and an in-place overwrite (SWAP)
// on the one before it, so the k-th access of a cycle sits in the
// same channel regardless of which opcode produced it.

func fillChannel(row *cpu.Row, ch int, op *MemoryOp) {
	c := &row.Channels[ch]
	c.Used.SetOne()
	if op.Kind == MemoryRead {
		c.IsRead.SetOne()
	}
	c.AddrContext.SetUint64(uint64(op.Address.Context))
	c.AddrSegment.SetUint64(uint64(op.Address.Segment))
	c.AddrVirtual.SetUint64(uint64(op.Address.Virtual))
	c.SetValue(&op.Value)
}

// memReadGPWithLogAndFill performs a non-mutating lookup on a general
// purpose channel, fills the channel's row columns and returns the
// word together with its log entry.
func memReadGPWithLogAndFill(ch int, addr MemoryAddress, mem *MemoryState, traces *Traces, row *cpu.Row) (uint256.Int, MemoryOp) {
	val := mem.Get(addr)
	op := MemoryOp{
		Channel:   cpu.GPChannel(ch),
		Timestamp: cpu.Timestamp(traces.Clock(), cpu.GPChannel(ch)),
		Address:   addr,
		Kind:      MemoryRead,
		Value:     val,
	}
	fillChannel(row, ch, &op)
	return val, op
}

// memWriteGPLogAndFill logs a write on a general purpose channel. The
// store update itself is applied by the caller once the whole cycle
// has succeeded.
func memWriteGPLogAndFill(ch int, addr MemoryAddress, traces *Traces, row *cpu.Row, value *uint256.Int) MemoryOp {
	op := MemoryOp{
		Channel:   cpu.GPChannel(ch),
		Timestamp: cpu.Timestamp(traces.Clock(), cpu.GPChannel(ch)),
		Address:   addr,
		Kind:      MemoryWrite,
		Value:     *value,
	}
	fillChannel(row, ch, &op)
	return op
}

// stackPopWithLogAndFill reads the top n stack slots, newest first,
// on channels 0..n-1 and decrements the stack length. It fails with
// ErrStackUnderflow before touching anything if the stack is too
// short.
func stackPopWithLogAndFill(n int, regs *RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) ([]uint256.Int, []MemoryOp, error) {
	if regs.StackLen < uint32(n) {
		return nil, nil, ErrStackUnderflow
	}
	values := make([]uint256.Int, n)
	logs := make([]MemoryOp, n)
	for i := 0; i < n; i++ {
		addr := MemoryAddress{
			Context: regs.Context,
			Segment: SegmentStack,
			Virtual: regs.StackLen - 1 - uint32(i),
		}
		values[i], logs[i] = memReadGPWithLogAndFill(i, addr, mem, traces, row)
	}
	regs.StackLen -= uint32(n)
	return values, logs, nil
}

// stackPushLogAndFill logs a write of value to the new top slot on
// the last general purpose channel and increments the stack length.
func stackPushLogAndFill(regs *RegistersState, traces *Traces, row *cpu.Row, value *uint256.Int) MemoryOp {
	addr := MemoryAddress{
		Context: regs.Context,
		Segment: SegmentStack,
		Virtual: regs.StackLen,
	}
	log := memWriteGPLogAndFill(cpu.NumGPChannels-1, addr, traces, row, value)
	regs.StackLen++
	return log
}
