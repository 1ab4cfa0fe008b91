// Package cpu defines the per-cycle CPU trace row and the memory bus
// geometry shared between the trace generator and the downstream
// table builders.
package cpu

// The memory bus exposes one code channel plus NumGPChannels general
// purpose channels per cycle. The constraint system references
// channels positionally, so the channel an access lands in is part of
// the trace contract, not an implementation detail.
const (
	// NumGPChannels is the number of general purpose memory channels
	// available to an instruction within a single cycle.
	NumGPChannels = 8

	// NumChannels is the total bus width: the code channel at position
	// zero followed by the general purpose channels.
	NumChannels = NumGPChannels + 1
)

// CodeChannel is the bus position of the instruction-fetch channel.
const CodeChannel = 0

// GPChannel maps a general purpose channel index to its bus position.
func GPChannel(i int) int {
	return 1 + i
}

// Timestamp orders memory accesses globally: every access in cycle
// `clock` on bus position `channel` gets a unique, strictly increasing
// timestamp consumed by the memory consistency argument.
func Timestamp(clock uint64, channel int) uint64 {
	return clock*NumChannels + uint64(channel)
}
