package witness

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/zkevm-go/zkevm/cpu"
	"github.com/zkevm-go/zkevm/cpu/kernel"
	"github.com/zkevm-go/zkevm/logic"
)

func TestDecodeOpcode(t *testing.T) {
	tests := []struct {
		name     string
		opcode   byte
		isKernel bool
		expected Operation
	}{
		{"eq", 0x14, false, EqOp()},
		{"iszero", 0x15, false, IszeroOp()},
		{"and", 0x16, false, BinaryLogicOp(logic.And)},
		{"or", 0x17, false, BinaryLogicOp(logic.Or)},
		{"xor", 0x18, false, BinaryLogicOp(logic.Xor)},
		{"not", 0x19, false, NotOp()},
		{"dup1", 0x80, false, DupOp(0)},
		{"dup16", 0x8f, false, DupOp(15)},
		{"swap1", 0x90, false, SwapOp(0)},
		{"swap16", 0x9f, false, SwapOp(15)},
		{"exitKernelInKernel", 0xf9, true, ExitKernelOp()},
		{"exitKernelInUserIsSyscall", 0xf9, false, SyscallOp(0xf9)},
		{"unknownInUserIsSyscall", 0x01, false, SyscallOp(0x01)},
		{"nativeInKernel", 0x14, true, EqOp()},
		{"unknownInKernel", 0x01, true, Operation{Kind: OpNotImplemented, Opcode: 0x01}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, DecodeOpcode(test.opcode, test.isKernel))
		})
	}
}

// stepKernel builds a kernel whose code image starts with the given
// program bytes.
func stepKernel(program []byte) *kernel.Kernel {
	code := make([]byte, 1024)
	copy(code, program)
	return kernel.New(code, map[string]uint32{
		kernel.SyscallJumpTableLabel: 512,
		kernel.HaltLabel:             uint32(len(program)),
	})
}

func seedStack(mem *MemoryState, context uint32, values ...uint64) uint32 {
	for i, v := range values {
		var w uint256.Int
		w.SetUint64(v)
		mem.Set(MemoryAddress{Context: context, Segment: SegmentStack, Virtual: uint32(i)}, &w)
	}
	return uint32(len(values))
}

func TestStepAdvancesProgramCounter(t *testing.T) {
	kern := stepKernel([]byte{0x14}) // EQ
	mem := NewMemoryState()
	mem.SetCode(0, kern.Code)
	traces := NewTraces()
	regs := RegistersState{IsKernel: true, StackLen: seedStack(mem, 0, 5, 5)}

	regs, err := Step(kern, regs, mem, traces)
	require.NoError(t, err)

	require.Equal(t, uint32(1), regs.ProgramCounter)
	require.Equal(t, uint32(1), regs.StackLen)
	require.Len(t, traces.CPU(), 1)

	// The result write was applied to the store.
	top := mem.Get(MemoryAddress{Context: 0, Segment: SegmentStack, Virtual: 0})
	require.Equal(t, uint64(1), top.Uint64())

	// First memory row of the cycle is the instruction fetch. Its bus
	// position is distinct from the first general purpose access, so
	// the two stay distinguishable by the Channel field alone.
	ops := traces.Memory()
	require.Equal(t, cpu.CodeChannel, ops[0].Channel)
	require.Equal(t, SegmentCode, ops[0].Address.Segment)
	require.Equal(t, uint64(0x14), ops[0].Value.Uint64())
	require.Equal(t, cpu.GPChannel(0), ops[1].Channel)
	require.NotEqual(t, ops[0].Channel, ops[1].Channel)
}

func TestStepFillsRegisterSnapshot(t *testing.T) {
	kern := stepKernel([]byte{0x19}) // NOT
	mem := NewMemoryState()
	mem.SetCode(0, kern.Code)
	traces := NewTraces()
	regs := RegistersState{Context: 0, IsKernel: true, StackLen: seedStack(mem, 0, 7)}

	_, err := Step(kern, regs, mem, traces)
	require.NoError(t, err)

	row := traces.CPU()[0]
	require.Equal(t, uint64(1), row.IsCPUCycle.Uint64())
	require.Equal(t, uint64(0), row.Clock.Uint64())
	require.Equal(t, uint64(0), row.ProgramCounter.Uint64())
	require.Equal(t, uint64(1), row.IsKernelMode.Uint64())
	require.Equal(t, uint64(1), row.StackLen.Uint64())
	require.Equal(t, uint64(0x19), row.Opcode.Uint64())
}

func TestStepUnderflowRollsBack(t *testing.T) {
	kern := stepKernel([]byte{0x90}) // SWAP1 on an empty stack
	mem := NewMemoryState()
	mem.SetCode(0, kern.Code)
	traces := NewTraces()
	regs := RegistersState{IsKernel: true}

	newRegs, err := Step(kern, regs, mem, traces)

	require.ErrorIs(t, err, ErrStackUnderflow)
	require.Equal(t, regs, newRegs)
	require.Empty(t, traces.CPU())
	require.Empty(t, traces.Memory(), "fetch log must be rolled back too")
}

func TestStepUnknownKernelOpcodePanics(t *testing.T) {
	kern := stepKernel([]byte{0x01})
	mem := NewMemoryState()
	mem.SetCode(0, kern.Code)
	regs := RegistersState{IsKernel: true}

	require.Panics(t, func() { _, _ = Step(kern, regs, mem, NewTraces()) })
}

func TestStepSyscallAndExitKernelRoundTrip(t *testing.T) {
	const handlerAddr = 768

	kern := stepKernel(nil)
	kern.Code[handlerAddr] = 0xf9 // EXIT_KERNEL
	kernel.SetJumpTableEntry(kern.Code, 512, 0x01, handlerAddr)

	mem := NewMemoryState()
	mem.SetCode(0, kern.Code)
	mem.SetCode(1, []byte{0x01}) // user program: one syscall-able opcode

	traces := NewTraces()
	regs := RegistersState{Context: 1, IsKernel: false}

	regs, err := Step(kern, regs, mem, traces)
	require.NoError(t, err)
	require.True(t, regs.IsKernel)
	require.Equal(t, uint32(handlerAddr), regs.ProgramCounter)
	require.Equal(t, uint32(1), regs.StackLen)

	regs, err = Step(kern, regs, mem, traces)
	require.NoError(t, err)
	require.False(t, regs.IsKernel)
	require.Equal(t, uint32(0), regs.ProgramCounter, "returns to the syscall instruction's pc")
	require.Equal(t, uint32(0), regs.StackLen)
	require.Len(t, traces.CPU(), 2)
}

func TestStepClockAdvances(t *testing.T) {
	kern := stepKernel([]byte{0x15, 0x15}) // ISZERO twice
	mem := NewMemoryState()
	mem.SetCode(0, kern.Code)
	traces := NewTraces()
	regs := RegistersState{IsKernel: true, StackLen: seedStack(mem, 0, 0)}

	var err error
	regs, err = Step(kern, regs, mem, traces)
	require.NoError(t, err)
	regs, err = Step(kern, regs, mem, traces)
	require.NoError(t, err)

	require.Equal(t, uint64(0), traces.CPU()[0].Clock.Uint64())
	require.Equal(t, uint64(1), traces.CPU()[1].Clock.Uint64())
	require.Equal(t, uint32(2), regs.ProgramCounter)
}
