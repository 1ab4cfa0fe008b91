package witness

import (
	"fmt"

	"github.com/zkevm-go/zkevm/cpu"
	"github.com/zkevm-go/zkevm/cpu/kernel"
	"github.com/zkevm-go/zkevm/logic"
)

// Opcodes handled natively by the trace generator. Anything else is
// routed to a kernel syscall in user mode and is fatal in kernel
// mode, where every opcode is expected to be known.
const (
	opcodeEq         = 0x14
	opcodeIszero     = 0x15
	opcodeAnd        = 0x16
	opcodeOr         = 0x17
	opcodeXor        = 0x18
	opcodeNot        = 0x19
	opcodeDupBase    = 0x80
	opcodeSwapBase   = 0x90
	opcodeExitKernel = 0xf9
)

// DecodeOpcode maps one opcode byte to its Operation. Range limits on
// the DUP/SWAP depth are enforced here by construction (4-bit offset
// from the base opcode); the handlers themselves only guard against
// stack underflow.
func DecodeOpcode(opcode byte, isKernel bool) Operation {
	switch {
	case opcode == opcodeEq:
		return EqOp()
	case opcode == opcodeIszero:
		return IszeroOp()
	case opcode == opcodeAnd:
		return BinaryLogicOp(logic.And)
	case opcode == opcodeOr:
		return BinaryLogicOp(logic.Or)
	case opcode == opcodeXor:
		return BinaryLogicOp(logic.Xor)
	case opcode == opcodeNot:
		return NotOp()
	case opcode >= opcodeDupBase && opcode < opcodeDupBase+16:
		return DupOp(opcode - opcodeDupBase)
	case opcode >= opcodeSwapBase && opcode < opcodeSwapBase+16:
		return SwapOp(opcode - opcodeSwapBase)
	case opcode == opcodeExitKernel && isKernel:
		return ExitKernelOp()
	case !isKernel:
		return SyscallOp(opcode)
	default:
		return Operation{Kind: OpNotImplemented, Opcode: opcode}
	}
}

// PerformOp dispatches one decoded operation to its handler. The
// returned state is the input state whenever an error is returned.
func PerformOp(op Operation, kern *kernel.Kernel, regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	switch op.Kind {
	case OpDup:
		return generateDup(op.N, regs, mem, traces, row)
	case OpSwap:
		return generateSwap(op.N, regs, mem, traces, row)
	case OpIszero:
		return generateIszero(regs, mem, traces, row)
	case OpNot:
		return generateNot(regs, mem, traces, row)
	case OpSyscall:
		return generateSyscall(op.Opcode, kern, regs, mem, traces, row)
	case OpEq:
		return generateEq(regs, mem, traces, row)
	case OpExitKernel:
		return generateExitKernel(regs, mem, traces, row)
	case OpBinaryLogic:
		return generateBinaryLogic(op.LogicOp, regs, mem, traces, row)
	}
	panic(fmt.Sprintf("witness: opcode %#02x not implemented in kernel mode", op.Opcode))
}

// Step runs one cycle: fetch and decode the opcode at the program
// counter, dispatch the handler, and on success advance the program
// counter (for non-jumping instructions), apply the logged writes to
// the memory state and leave the emitted rows in the sink. On
// ErrStackUnderflow the sink is rolled back and both registers and
// memory are left exactly as they were.
func Step(kern *kernel.Kernel, regs RegistersState, mem *MemoryState, traces *Traces) (RegistersState, error) {
	cp := traces.Checkpoint()

	var row cpu.Row
	row.IsCPUCycle.SetOne()
	row.Clock.SetUint64(traces.Clock())
	row.Context.SetUint64(uint64(regs.Context))
	row.ProgramCounter.SetUint64(uint64(regs.ProgramCounter))
	if regs.IsKernel {
		row.IsKernelMode.SetOne()
	}
	row.StackLen.SetUint64(uint64(regs.StackLen))

	// Kernel code always executes out of context 0.
	codeContext := regs.Context
	if regs.IsKernel {
		codeContext = 0
	}
	fetchAddr := MemoryAddress{Context: codeContext, Segment: SegmentCode, Virtual: regs.ProgramCounter}
	opcodeWord := mem.Get(fetchAddr)
	opcode := byte(opcodeWord.Uint64())
	row.Opcode.SetUint64(uint64(opcode))
	traces.PushMemory(MemoryOp{
		Channel:   cpu.CodeChannel,
		Timestamp: cpu.Timestamp(traces.Clock(), cpu.CodeChannel),
		Address:   fetchAddr,
		Kind:      MemoryRead,
		Value:     opcodeWord,
	})

	op := DecodeOpcode(opcode, regs.IsKernel)
	newRegs, err := PerformOp(op, kern, regs, mem, traces, &row)
	if err != nil {
		traces.Rollback(cp)
		return regs, err
	}

	// SYSCALL and EXIT_KERNEL set the program counter themselves.
	if op.Kind != OpSyscall && op.Kind != OpExitKernel {
		newRegs.ProgramCounter = regs.ProgramCounter + 1
	}

	for _, mop := range traces.MemorySince(cp) {
		mem.Apply(mop)
	}
	return newRegs, nil
}
