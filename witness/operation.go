package witness

import (
	"fmt"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/holiman/uint256"

	"github.com/zkevm-go/zkevm/cpu"
	"github.com/zkevm-go/zkevm/cpu/kernel"
	"github.com/zkevm-go/zkevm/logic"
)

// OperationKind tags the closed set of decoded instructions.
type OperationKind uint8

const (
	OpNotImplemented OperationKind = iota
	OpDup
	OpSwap
	OpIszero
	OpNot
	OpSyscall
	OpEq
	OpExitKernel
	OpBinaryLogic
)

// Operation is one decoded instruction, constructed once per cycle by
// the decoder and immutable afterwards.
type Operation struct {
	Kind    OperationKind
	N       uint8    // Dup/Swap depth
	Opcode  uint8    // Syscall selector
	LogicOp logic.Op // BinaryLogic operation
}

func DupOp(n uint8) Operation         { return Operation{Kind: OpDup, N: n} }
func SwapOp(n uint8) Operation        { return Operation{Kind: OpSwap, N: n} }
func IszeroOp() Operation             { return Operation{Kind: OpIszero} }
func NotOp() Operation                { return Operation{Kind: OpNot} }
func SyscallOp(opcode uint8) Operation { return Operation{Kind: OpSyscall, Opcode: opcode} }
func EqOp() Operation                 { return Operation{Kind: OpEq} }
func ExitKernelOp() Operation         { return Operation{Kind: OpExitKernel} }
func BinaryLogicOp(op logic.Op) Operation {
	return Operation{Kind: OpBinaryLogic, LogicOp: op}
}

func (op Operation) String() string {
	switch op.Kind {
	case OpDup:
		return fmt.Sprintf("DUP(%d)", op.N)
	case OpSwap:
		return fmt.Sprintf("SWAP(%d)", op.N)
	case OpIszero:
		return "ISZERO"
	case OpNot:
		return "NOT"
	case OpSyscall:
		return fmt.Sprintf("SYSCALL(%#02x)", op.Opcode)
	case OpEq:
		return "EQ"
	case OpExitKernel:
		return "EXIT_KERNEL"
	case OpBinaryLogic:
		return op.LogicOp.String()
	}
	return "NOT_IMPLEMENTED"
}

// generateBinaryLogic pops two operands, pushes op(a, b) and emits
// the logic sub-table row carrying the bit decomposition.
func generateBinaryLogic(op logic.Op, regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	ins, logs, err := stackPopWithLogAndFill(2, &regs, mem, traces, row)
	if err != nil {
		return regs, err
	}
	in0, in1 := ins[0], ins[1]
	result := op.Result(&in0, &in1)
	logOut := stackPushLogAndFill(&regs, traces, row, result)

	traces.PushLogic(logic.RowFrom(op, &in0, &in1, result))
	traces.PushMemory(logs[0])
	traces.PushMemory(logs[1])
	traces.PushMemory(logOut)
	traces.PushCPU(*row)
	return regs, nil
}

// generateDup reads the slot n+1 below the top without popping and
// pushes a copy of it.
func generateDup(n uint8, regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	if regs.StackLen < 1+uint32(n) {
		return regs, ErrStackUnderflow
	}
	otherAddr := MemoryAddress{
		Context: regs.Context,
		Segment: SegmentStack,
		Virtual: regs.StackLen - 1 - uint32(n),
	}

	val, logIn := memReadGPWithLogAndFill(0, otherAddr, mem, traces, row)
	logOut := stackPushLogAndFill(&regs, traces, row, &val)

	traces.PushMemory(logIn)
	traces.PushMemory(logOut)
	traces.PushCPU(*row)
	return regs, nil
}

// generateSwap exchanges the top slot with the slot n+1 below it: pop
// the top, read the target directly, overwrite the target in place
// with the old top, push the old target value. Net stack height is
// unchanged.
func generateSwap(n uint8, regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	if regs.StackLen < 2+uint32(n) {
		return regs, ErrStackUnderflow
	}
	otherAddr := MemoryAddress{
		Context: regs.Context,
		Segment: SegmentStack,
		Virtual: regs.StackLen - 2 - uint32(n),
	}

	ins, logs, err := stackPopWithLogAndFill(1, &regs, mem, traces, row)
	if err != nil {
		return regs, err
	}
	in0 := ins[0]
	in1, logIn1 := memReadGPWithLogAndFill(1, otherAddr, mem, traces, row)
	logOut0 := memWriteGPLogAndFill(cpu.NumGPChannels-2, otherAddr, traces, row, &in0)
	logOut1 := stackPushLogAndFill(&regs, traces, row, &in1)

	traces.PushMemory(logs[0])
	traces.PushMemory(logIn1)
	traces.PushMemory(logOut0)
	traces.PushMemory(logOut1)
	traces.PushCPU(*row)
	return regs, nil
}

// generateNot pops one operand and pushes its 256-bit complement.
func generateNot(regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	ins, logs, err := stackPopWithLogAndFill(1, &regs, mem, traces, row)
	if err != nil {
		return regs, err
	}
	result := new(uint256.Int).Not(&ins[0])
	logOut := stackPushLogAndFill(&regs, traces, row, result)

	traces.PushMemory(logs[0])
	traces.PushMemory(logOut)
	traces.PushCPU(*row)
	return regs, nil
}

// generateIszero pops x and pushes 1 if x == 0 else 0, writing the
// inverse-difference witness for the zero test into the row.
func generateIszero(regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	ins, logs, err := stackPopWithLogAndFill(1, &regs, mem, traces, row)
	if err != nil {
		return regs, err
	}
	x := ins[0]
	var result uint256.Int
	if x.IsZero() {
		result.SetOne()
	}
	logOut := stackPushLogAndFill(&regs, traces, row, &result)

	generatePinvDiff(&x, &uint256.Int{}, row)

	traces.PushMemory(logs[0])
	traces.PushMemory(logOut)
	traces.PushCPU(*row)
	return regs, nil
}

// generateEq pops a and b and pushes 1 if equal else 0. Equality
// reduces to zero-testing a-b, so the witness is the same
// inverse-difference construction as ISZERO.
func generateEq(regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	ins, logs, err := stackPopWithLogAndFill(2, &regs, mem, traces, row)
	if err != nil {
		return regs, err
	}
	in0, in1 := ins[0], ins[1]
	var result uint256.Int
	if in0.Eq(&in1) {
		result.SetOne()
	}
	logOut := stackPushLogAndFill(&regs, traces, row, &result)

	generatePinvDiff(&in0, &in1, row)

	traces.PushMemory(logs[0])
	traces.PushMemory(logs[1])
	traces.PushMemory(logOut)
	traces.PushCPU(*row)
	return regs, nil
}

// generateSyscall elevates into kernel mode: it reads the 3-byte
// big-endian handler address at jumptable+opcode from kernel code,
// pushes the packed return word, and jumps. The read is always
// exactly three bytes whatever the table holds, and the only caller
// controlled input is the 8-bit opcode selecting the slot.
func generateSyscall(opcode uint8, kern *kernel.Kernel, regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	jumpTableAddr := kern.Lookup(kernel.SyscallJumpTableLabel)
	handlerAddrAddr := jumpTableAddr + uint32(opcode)

	codeAddr := func(virt uint32) MemoryAddress {
		return MemoryAddress{Context: 0, Segment: SegmentCode, Virtual: virt}
	}
	handlerAddr0, logIn0 := memReadGPWithLogAndFill(0, codeAddr(handlerAddrAddr), mem, traces, row)
	handlerAddr1, logIn1 := memReadGPWithLogAndFill(1, codeAddr(handlerAddrAddr+1), mem, traces, row)
	handlerAddr2, logIn2 := memReadGPWithLogAndFill(2, codeAddr(handlerAddrAddr+2), mem, traces, row)

	handlerAddr := handlerAddr0.Uint64()<<16 + handlerAddr1.Uint64()<<8 + handlerAddr2.Uint64()
	newProgramCounter := uint32(handlerAddr)

	syscallInfo := EncodeExitInfo(regs.ProgramCounter, regs.IsKernel)
	logOut := stackPushLogAndFill(&regs, traces, row, &syscallInfo)

	regs.ProgramCounter = newProgramCounter
	regs.IsKernel = true

	traces.PushMemory(logIn0)
	traces.PushMemory(logIn1)
	traces.PushMemory(logIn2)
	traces.PushMemory(logOut)
	traces.PushCPU(*row)
	return regs, nil
}

// generateExitKernel pops a packed return word and restores the
// program counter and privilege flag from it. A word whose flag bits
// decode to neither 0 nor 1 means kernel-code corruption or a forged
// return word; trace generation cannot continue.
func generateExitKernel(regs RegistersState, mem *MemoryState, traces *Traces, row *cpu.Row) (RegistersState, error) {
	ins, logs, err := stackPopWithLogAndFill(1, &regs, mem, traces, row)
	if err != nil {
		return regs, err
	}
	pc, isKernel, err := DecodeExitInfo(&ins[0])
	if err != nil {
		panic(fmt.Sprintf("witness: EXIT_KERNEL: %v", err))
	}

	regs.ProgramCounter = pc
	regs.IsKernel = isKernel

	traces.PushMemory(logs[0])
	traces.PushCPU(*row)
	return regs, nil
}

// generatePinvDiff writes the zero-test witness for val0 vs val1 into
// the row. Let diff be the limb-wise field difference of the
// operands. The witness is a limb vector diffPinv with
// dot(diff, diffPinv) = 1 when any limb differs and 0 when the values
// are equal, so the constraint system certifies (in)equality without
// branching: no valid witness exists for the wrong claim.
func generatePinvDiff(val0, val1 *uint256.Int, row *cpu.Row) {
	limbs0 := cpu.ValueLimbs(val0)
	limbs1 := cpu.ValueLimbs(val1)

	numUnequal := uint64(0)
	for i := range limbs0 {
		if !limbs0[i].Equal(&limbs1[i]) {
			numUnequal++
		}
	}

	// Inverse of zero is zero, which is exactly the sentinel the
	// equal case needs.
	var numUnequalInv goldilocks.Element
	numUnequalInv.SetUint64(numUnequal)
	numUnequalInv.Inverse(&numUnequalInv)

	for i := range limbs0 {
		var d goldilocks.Element
		d.Sub(&limbs0[i], &limbs1[i])
		d.Inverse(&d)
		row.DiffPinv[i].Mul(&d, &numUnequalInv)
	}
}
