// tracegen runs the execution-trace generator against a kernel
// description and writes the produced tables to a dump file.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/golang/snappy"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"
	"github.com/ugorji/go/codec"
	"github.com/urfave/cli/v2"

	"github.com/zkevm-go/zkevm/cpu/kernel"
	"github.com/zkevm-go/zkevm/witness"
)

func main() {
	app := &cli.App{
		Name:  "tracegen",
		Usage: "generate zkEVM execution traces from a kernel description",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kernel", Usage: "kernel description file (TOML)", Required: true},
			&cli.StringFlag{Name: "entry", Usage: "global label to start execution at"},
			&cli.StringFlag{Name: "stack", Usage: "comma separated initial stack values, bottom first"},
			&cli.Uint64Flag{Name: "context", Usage: "execution context id"},
			&cli.BoolFlag{Name: "user", Usage: "start in user mode instead of kernel mode"},
			&cli.Uint64Flag{Name: "max-steps", Usage: "step budget", Value: 1 << 20},
			&cli.StringFlag{Name: "out", Usage: "output file", Value: "trace.dump"},
			&cli.StringFlag{Name: "format", Usage: "dump format: json or cbor", Value: "json"},
			&cli.BoolFlag{Name: "compress", Usage: "snappy compress the dump"},
			&cli.StringFlag{Name: "max-size", Usage: "refuse to write dumps larger than this", Value: "256mb"},
			&cli.StringFlag{Name: "verbosity", Usage: "log level", Value: "info"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("tracegen failed", "err", err)
		os.Exit(1)
	}
}

type traceDump struct {
	CPU    [][]uint64    `json:"cpu"`
	Logic  [][]uint64    `json:"logic"`
	Memory []memoryEntry `json:"memory"`
}

type memoryEntry struct {
	Channel   int    `json:"channel"`
	Timestamp uint64 `json:"timestamp"`
	Context   uint32 `json:"context"`
	Segment   string `json:"segment"`
	Virtual   uint32 `json:"virtual"`
	Kind      string `json:"kind"`
	Value     string `json:"value"`
}

func run(ctx *cli.Context) error {
	lvl, err := log.LvlFromString(ctx.String("verbosity"))
	if err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StderrHandler))
	logger := log.New("module", "tracegen")

	maxSize, err := datasize.ParseString(ctx.String("max-size"))
	if err != nil {
		return fmt.Errorf("parsing max-size: %w", err)
	}

	kern, err := kernel.LoadFile(ctx.String("kernel"))
	if err != nil {
		return err
	}
	stack, err := parseStack(ctx.String("stack"))
	if err != nil {
		return err
	}

	traces, regs, err := witness.Generate(logger, witness.GenerationInputs{
		Kernel:       kern,
		Context:      uint32(ctx.Uint64("context")),
		IsKernel:     !ctx.Bool("user"),
		Entry:        ctx.String("entry"),
		InitialStack: stack,
		MaxSteps:     ctx.Uint64("max-steps"),
	})
	if err != nil {
		return err
	}
	logger.Info("generation finished",
		"pc", regs.ProgramCounter, "stackLen", regs.StackLen,
		"cpuRows", len(traces.CPU()), "memOps", len(traces.Memory()), "logicRows", len(traces.Logic()))

	dump := buildDump(traces)
	var buf bytes.Buffer
	switch ctx.String("format") {
	case "json":
		if err := json.NewEncoder(&buf).Encode(&dump); err != nil {
			return err
		}
	case "cbor":
		var handle codec.CborHandle
		if err := codec.NewEncoder(&buf, &handle).Encode(&dump); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown dump format %q", ctx.String("format"))
	}

	out := buf.Bytes()
	if ctx.Bool("compress") {
		out = snappy.Encode(nil, out)
	}
	if uint64(len(out)) > maxSize.Bytes() {
		return fmt.Errorf("dump is %s, over the %s limit", datasize.ByteSize(len(out)).HR(), maxSize.HR())
	}
	if err := os.WriteFile(ctx.String("out"), out, 0o644); err != nil {
		return err
	}
	logger.Info("wrote trace dump", "file", ctx.String("out"), "size", datasize.ByteSize(len(out)).HR())
	return nil
}

func buildDump(traces *witness.Traces) traceDump {
	dump := traceDump{}
	for i := range traces.CPU() {
		dump.CPU = append(dump.CPU, traces.CPU()[i].Flatten())
	}
	for i := range traces.Logic() {
		dump.Logic = append(dump.Logic, traces.Logic()[i].Flatten())
	}
	for _, op := range traces.Memory() {
		dump.Memory = append(dump.Memory, memoryEntry{
			Channel:   op.Channel,
			Timestamp: op.Timestamp,
			Context:   op.Address.Context,
			Segment:   op.Address.Segment.String(),
			Virtual:   op.Address.Virtual,
			Kind:      op.Kind.String(),
			Value:     op.Value.Hex(),
		})
	}
	return dump
}

func parseStack(s string) ([]uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	var stack []uint256.Int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		var v *uint256.Int
		var err error
		if strings.HasPrefix(part, "0x") {
			v, err = uint256.FromHex(part)
		} else {
			v, err = uint256.FromDecimal(part)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing stack value %q: %w", part, err)
		}
		stack = append(stack, *v)
	}
	return stack, nil
}
