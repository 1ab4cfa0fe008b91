// Package kernel holds the privileged kernel program: its code bytes
// and the global label table resolved at assembly time. The label
// table is read-only after construction and shared by reference; an
// unresolvable label is a configuration error, not a runtime
// condition.
package kernel

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Well-known labels the trace generator resolves by name.
const (
	SyscallJumpTableLabel = "syscall_jumptable"
	HaltLabel             = "halt"
)

// Kernel is a precompiled kernel program.
type Kernel struct {
	Code         []byte
	GlobalLabels map[string]uint32
}

// New builds a kernel from raw code bytes and a label table.
func New(code []byte, labels map[string]uint32) *Kernel {
	return &Kernel{Code: code, GlobalLabels: labels}
}

// Lookup resolves a global label to its code offset. A missing label
// means the kernel the generator was configured with does not match
// the kernel the constraints were built for, which is fatal.
func (k *Kernel) Lookup(label string) uint32 {
	addr, ok := k.GlobalLabels[label]
	if !ok {
		panic(fmt.Sprintf("kernel: unresolvable global label %q", label))
	}
	return addr
}

// HasLabel reports whether the kernel defines the given global label.
func (k *Kernel) HasLabel(label string) bool {
	_, ok := k.GlobalLabels[label]
	return ok
}

// SetJumpTableEntry writes a 3-byte big-endian handler address into
// the code image at base+op, the slot the SYSCALL instruction for
// `op` reads. Entries of adjacent opcodes overlap byte-wise; the
// kernel assembler is responsible for laying the table out so that
// every reachable slot decodes to a valid handler.
func SetJumpTableEntry(code []byte, base uint32, op uint8, handlerAddr uint32) {
	at := base + uint32(op)
	code[at] = byte(handlerAddr >> 16)
	code[at+1] = byte(handlerAddr >> 8)
	code[at+2] = byte(handlerAddr)
}

type kernelFile struct {
	Code   string            `toml:"code"`
	Labels map[string]uint32 `toml:"labels"`
}

// LoadTOML parses a kernel description: hex-encoded code plus a label
// table.
func LoadTOML(data []byte) (*Kernel, error) {
	var kf kernelFile
	if err := toml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("kernel: parsing description: %w", err)
	}
	code, err := hex.DecodeString(strings.TrimPrefix(kf.Code, "0x"))
	if err != nil {
		return nil, fmt.Errorf("kernel: decoding code hex: %w", err)
	}
	labels := kf.Labels
	if labels == nil {
		labels = map[string]uint32{}
	}
	for label, addr := range labels {
		if addr > uint32(len(code)) {
			return nil, fmt.Errorf("kernel: label %q at %d beyond code end %d", label, addr, len(code))
		}
	}
	return New(code, labels), nil
}

// LoadFile reads and parses a kernel description file.
func LoadFile(path string) (*Kernel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kernel: reading %s: %w", path, err)
	}
	return LoadTOML(data)
}
