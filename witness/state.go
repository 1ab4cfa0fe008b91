package witness

import (
	"fmt"

	"github.com/holiman/uint256"
)

// RegistersState is the minimal per-cycle machine state. It is
// threaded by value through exactly one handler invocation per cycle
// and returned updated; a failed handler returns it unchanged.
type RegistersState struct {
	Context        uint32
	IsKernel       bool
	ProgramCounter uint32
	StackLen       uint32
}

// exitInfoKernelBit is the bit position of the kernel-mode flag in a
// packed kernel-exit word. The low 32 bits hold the program counter.
const exitInfoKernelBit = 32

// EncodeExitInfo packs a program counter and kernel-mode flag into
// one 256-bit word, the format SYSCALL pushes and EXIT_KERNEL pops.
func EncodeExitInfo(pc uint32, isKernel bool) uint256.Int {
	var w uint256.Int
	w.SetUint64(uint64(pc))
	if isKernel {
		w[0] |= 1 << exitInfoKernelBit
	}
	return w
}

// DecodeExitInfo is the inverse of EncodeExitInfo. Everything above
// the program counter must decode to exactly 0 or 1; any other value
// means the packed word was not produced by EncodeExitInfo and the
// caller must treat the trace as corrupt.
func DecodeExitInfo(w *uint256.Int) (pc uint32, isKernel bool, err error) {
	pc = uint32(w[0])
	flag := new(uint256.Int).Rsh(w, exitInfoKernelBit)
	switch {
	case flag.IsZero():
		return pc, false, nil
	case flag.Eq(uint256.NewInt(1)):
		return pc, true, nil
	default:
		return 0, false, fmt.Errorf("malformed kernel exit word %s: flag bits decode to neither 0 nor 1", w.Hex())
	}
}
