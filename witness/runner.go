package witness

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"
	"golang.org/x/sync/errgroup"

	"github.com/zkevm-go/zkevm/cpu/kernel"
)

// GenerationInputs describes one independent trace generation run.
type GenerationInputs struct {
	Kernel *kernel.Kernel

	// Context the run executes in. User-mode runs execute Code out of
	// this context; kernel-mode runs execute the kernel image out of
	// context 0.
	Context  uint32
	IsKernel bool

	// Entry is the global label to start at; empty means offset 0.
	Entry string

	// Code is the user program image, seeded into the run context's
	// code segment. Ignored for kernel-mode runs.
	Code []byte

	// InitialStack is seeded bottom first.
	InitialStack []uint256.Int

	// MaxSteps bounds the run; exceeding it is an error.
	MaxSteps uint64
}

// Generate produces the full trace of one run: it seeds memory, then
// steps until the program counter reaches the kernel's halt label in
// kernel mode or the step budget runs out.
func Generate(logger log.Logger, inputs GenerationInputs) (*Traces, RegistersState, error) {
	if inputs.Kernel == nil {
		panic("witness: generation without a kernel")
	}
	mem := NewMemoryState()
	mem.SetCode(0, inputs.Kernel.Code)
	if !inputs.IsKernel && len(inputs.Code) > 0 {
		mem.SetCode(inputs.Context, inputs.Code)
	}
	for i, v := range inputs.InitialStack {
		addr := MemoryAddress{Context: inputs.Context, Segment: SegmentStack, Virtual: uint32(i)}
		mem.Set(addr, &v)
	}

	regs := RegistersState{
		Context:  inputs.Context,
		IsKernel: inputs.IsKernel,
		StackLen: uint32(len(inputs.InitialStack)),
	}
	if inputs.Entry != "" {
		regs.ProgramCounter = inputs.Kernel.Lookup(inputs.Entry)
	}

	var haltAddr uint32
	haltKnown := inputs.Kernel.HasLabel(kernel.HaltLabel)
	if haltKnown {
		haltAddr = inputs.Kernel.Lookup(kernel.HaltLabel)
	}

	traces := NewTraces()
	for step := uint64(0); ; step++ {
		if haltKnown && regs.IsKernel && regs.ProgramCounter == haltAddr {
			logger.Debug("trace generation halted", "steps", step, "cells", mem.Len(),
				"cpuRows", len(traces.CPU()), "memOps", len(traces.Memory()), "logicRows", len(traces.Logic()))
			return traces, regs, nil
		}
		if step >= inputs.MaxSteps {
			return traces, regs, fmt.Errorf("no halt within %d steps, pc=%d", inputs.MaxSteps, regs.ProgramCounter)
		}
		var err error
		regs, err = Step(inputs.Kernel, regs, mem, traces)
		if err != nil {
			return traces, regs, fmt.Errorf("step %d at pc %d: %w", step, regs.ProgramCounter, err)
		}
	}
}

// GenerateBatch runs independent generations in parallel. Per-step
// channel ordering is preserved inside each run, and results come
// back in input order, so the batch is deterministic regardless of
// scheduling.
func GenerateBatch(ctx context.Context, logger log.Logger, inputs []GenerationInputs) ([]*Traces, error) {
	results := make([]*Traces, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			traces, _, err := Generate(logger, inputs[i])
			if err != nil {
				return fmt.Errorf("generation %d: %w", i, err)
			}
			results[i] = traces
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
