package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/insts"
	"github.com/archsim/mips32/loader"
	"github.com/archsim/mips32/viz"
)

var functionalCmd = &cobra.Command{
	Use:   "functional",
	Short: "Run a binary image through the functional (non-timing) emulator.",
	RunE:  runFunctional,
}

func init() {
	flags := functionalCmd.Flags()
	flags.Uint32("mem-size", emu.DefaultMemorySize, "memory size in bytes")
	flags.Uint64("max-steps", 0, "maximum instructions to execute (0 = unlimited)")
	flags.String("bin", "", "path to the binary image (required)")
	flags.Uint32("breakpoint", 0, "stop before fetching this address (0 = disabled)")
	flags.Bool("flat", false, "treat --bin as a headerless flat .text image")
	flags.Bool("trace", false, "write a per-step trace to stdout")
	flags.String("format", "text", "trace format: text, csv, or json")
	flags.String("log-level", "info", "log level: debug, info, warn, error, or silent")
	functionalCmd.MarkFlagRequired("bin")
}

func runFunctional(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	binPath, _ := flags.GetString("bin")
	memSize, _ := flags.GetUint32("mem-size")
	maxSteps, _ := flags.GetUint64("max-steps")
	breakpoint, _ := flags.GetUint32("breakpoint")
	flat, _ := flags.GetBool("flat")
	trace, _ := flags.GetBool("trace")
	format, _ := flags.GetString("format")
	logLevelFlag, _ := flags.GetString("log-level")

	level, err := parseLogLevel(logLevelFlag)
	if err != nil {
		return usageError(err)
	}
	log := newLogger(level)

	raw, err := os.ReadFile(binPath)
	if err != nil {
		return usageError(err)
	}

	mem := emu.NewMemorySize(memSize)

	var image loader.Image
	if flat {
		image, err = loader.LoadFlat(mem, raw)
	} else {
		image, err = loader.LoadImage(mem, raw)
	}
	if err != nil {
		return usageError(err)
	}

	log.logf(levelInfo, "loaded %s: text=0x%08x(%d) data=0x%08x(%d) entry=0x%08x",
		binPath, image.TextBase, image.TextSize, image.DataBase, image.DataSize, image.Entry)

	e := emu.NewEmulator(
		emu.WithMemory(mem),
		emu.WithEntryPoint(image.Entry),
		emu.WithMaxInstructions(maxSteps),
	)

	var writer viz.Writer
	if trace {
		w, err := viz.NewWriter(viz.Format(format), os.Stdout)
		if err != nil {
			return usageError(err)
		}
		writer = w
		defer writer.Close()
	}

	dec := insts.NewDecoder()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for cycle := uint64(0); ; cycle++ {
		if ctx.Err() != nil {
			log.logf(levelWarn, "interrupted after %d instructions", cycle)
			os.Exit(exitSimFault)
		}

		pc := e.RegFile().PC
		if breakpoint != 0 && pc == breakpoint {
			fmt.Printf("breakpoint reached at pc=0x%08x\n", pc)
			os.Exit(exitNormal)
		}

		var mnemonic string
		if word, err := mem.Read32(pc); err == nil {
			if inst, err := dec.Decode(word); err == nil {
				mnemonic = inst.Disassemble()
			}
		}

		result := e.Step()

		if writer != nil {
			writer.WriteCycle(viz.CycleRecord{Cycle: cycle, PC: pc, Instruction: mnemonic, Retired: result.Err == nil})
		}

		if result.Err != nil {
			if f, ok := result.Err.(*emu.Fault); ok && f.Kind == emu.Breakpoint {
				fmt.Printf("breakpoint reached at pc=0x%08x\n", f.PC)
				os.Exit(exitNormal)
			}
			log.logf(levelError, "%s", result.Err)
			os.Exit(exitSimFault)
		}

		if result.Exited {
			log.logf(levelInfo, "exited with code %d after %d instructions", result.ExitCode, e.InstructionCount())
			os.Exit(int(result.ExitCode))
		}
	}
}

func usageError(err error) error {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitUsageError)
	return nil
}
