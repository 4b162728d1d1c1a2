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
	"github.com/archsim/mips32/timing/cache"
	"github.com/archsim/mips32/timing/core"
	"github.com/archsim/mips32/timing/ooo"
	"github.com/archsim/mips32/timing/pipeline"
	"github.com/archsim/mips32/viz"
)

var timingCmd = &cobra.Command{
	Use:   "timing",
	Short: "Run a binary image through the cycle-accurate in-order pipeline or the out-of-order engine.",
	RunE:  runTiming,
}

func init() {
	flags := timingCmd.Flags()
	flags.Uint32("mem-size", emu.DefaultMemorySize, "memory size in bytes")
	flags.Uint64("max-cycles", 0, "maximum cycles to run (0 = unlimited)")
	flags.String("bin", "", "path to the binary image (required)")
	flags.Bool("flat", false, "treat --bin as a headerless flat .text image")
	flags.Uint32("breakpoint", 0, "stop before fetching this address (0 = disabled)")

	flags.Int("stages", 5, "reported pipeline stage count (informational; Tick always models 5 stages)")
	flags.Bool("forwarding", true, "enable EX/MEM and MEM/WB operand forwarding in the in-order pipeline")
	flags.String("predictor", "bimodal", "branch predictor: bimodal or static")

	flags.Bool("ooo", false, "use the Tomasulo-style out-of-order engine instead of the in-order pipeline")
	flags.Int("superscalar", 1, "dispatch/issue/commit width (out-of-order engine only)")
	flags.Int("rob-capacity", 0, "reorder buffer capacity override (out-of-order engine only; 0 = default)")

	flags.Bool("icache", false, "enable an L1 instruction cache")
	flags.Int("l1i-size", 0, "L1 instruction cache size in bytes (0 = package default)")
	flags.Int("l1i-assoc", 0, "L1 instruction cache associativity (0 = package default)")
	flags.Int("l1i-block", 0, "L1 instruction cache block size in bytes (0 = package default)")

	flags.Bool("dcache", false, "enable an L1 data cache")
	flags.Int("l1d-size", 0, "L1 data cache size in bytes (0 = package default)")
	flags.Int("l1d-assoc", 0, "L1 data cache associativity (0 = package default)")
	flags.Int("l1d-block", 0, "L1 data cache block size in bytes (0 = package default)")

	flags.Bool("l2cache", false, "enable a shared L2 cache behind the L1s")
	flags.Int("l2-size", 0, "L2 cache size in bytes (0 = package default)")
	flags.Int("l2-assoc", 0, "L2 cache associativity (0 = package default)")
	flags.Int("l2-block", 0, "L2 cache block size in bytes (0 = package default)")

	flags.Bool("trace", false, "write a per-cycle trace to stdout")
	flags.String("format", "text", "trace format: text, csv, or json")
	flags.String("log-level", "info", "log level: debug, info, warn, error, or silent")

	timingCmd.MarkFlagRequired("bin")
}

// overrideCacheConfig applies nonzero size/assoc/block overrides onto
// a package default cache.Config, leaving latencies and policy alone.
func overrideCacheConfig(base cache.Config, size, assoc, block int) cache.Config {
	if size > 0 {
		base.Size = size
	}
	if assoc > 0 {
		base.Associativity = assoc
	}
	if block > 0 {
		base.BlockSize = block
	}
	return base
}

func runTiming(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	binPath, _ := flags.GetString("bin")
	memSize, _ := flags.GetUint32("mem-size")
	maxCycles, _ := flags.GetUint64("max-cycles")
	flat, _ := flags.GetBool("flat")
	breakpoint, _ := flags.GetUint32("breakpoint")

	stages, _ := flags.GetInt("stages")
	forwarding, _ := flags.GetBool("forwarding")
	predictorName, _ := flags.GetString("predictor")

	useOOO, _ := flags.GetBool("ooo")
	superscalar, _ := flags.GetInt("superscalar")
	robCapacity, _ := flags.GetInt("rob-capacity")

	useICache, _ := flags.GetBool("icache")
	l1iSize, _ := flags.GetInt("l1i-size")
	l1iAssoc, _ := flags.GetInt("l1i-assoc")
	l1iBlock, _ := flags.GetInt("l1i-block")

	useDCache, _ := flags.GetBool("dcache")
	l1dSize, _ := flags.GetInt("l1d-size")
	l1dAssoc, _ := flags.GetInt("l1d-assoc")
	l1dBlock, _ := flags.GetInt("l1d-block")

	useL2, _ := flags.GetBool("l2cache")
	l2Size, _ := flags.GetInt("l2-size")
	l2Assoc, _ := flags.GetInt("l2-assoc")
	l2Block, _ := flags.GetInt("l2-block")

	trace, _ := flags.GetBool("trace")
	format, _ := flags.GetString("format")
	logLevelFlag, _ := flags.GetString("log-level")

	level, err := parseLogLevel(logLevelFlag)
	if err != nil {
		return usageError(err)
	}
	log := newLogger(level)

	var predictorKind pipeline.PredictorKind
	switch predictorName {
	case "bimodal":
		predictorKind = pipeline.PredictorBimodal
	case "static":
		predictorKind = pipeline.PredictorStatic
	default:
		return usageError(fmt.Errorf("unknown predictor %q (want bimodal or static)", predictorName))
	}

	if useOOO && stages != 5 {
		log.logf(levelWarn, "--stages is ignored in --ooo mode")
	}
	if !useOOO && superscalar > 1 {
		log.logf(levelWarn, "--superscalar is ignored without --ooo: the in-order pipeline is single-issue")
	}

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

	regFile := &emu.RegFile{}
	regFile.Write(29, emu.StackTop)

	var writer viz.Writer
	if trace {
		w, err := viz.NewWriter(viz.Format(format), os.Stdout)
		if err != nil {
			return usageError(err)
		}
		writer = w
		defer writer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dec := insts.NewDecoder()

	if useOOO {
		config := ooo.DefaultConfig()
		if superscalar > 1 {
			config = ooo.Superscalar(superscalar)
		}
		if robCapacity > 0 {
			config.ROBCapacity = robCapacity
		}

		oc := core.NewOOOCore(regFile, mem, config)
		oc.SetPC(image.Entry)

		for cycle := uint64(0); maxCycles == 0 || cycle < maxCycles; cycle++ {
			if ctx.Err() != nil {
				log.logf(levelWarn, "interrupted after %d cycles", cycle)
				os.Exit(exitSimFault)
			}
			if oc.Halted() {
				break
			}
			pc := oc.Driver.PC()
			if breakpoint != 0 && pc == breakpoint {
				fmt.Printf("breakpoint reached at pc=0x%08x\n", pc)
				os.Exit(exitNormal)
			}
			oc.Tick()
			if writer != nil {
				writer.WriteCycle(viz.CycleRecord{
					Cycle:       cycle,
					PC:          pc,
					Instruction: disassembleAt(mem, dec, pc),
					Predictor:   oc.PredictorStats(),
				})
			}
		}

		if !oc.Halted() {
			log.logf(levelInfo, "stopped after reaching max cycles, still running")
			os.Exit(exitSimFault)
		}
		if f, ok := oc.Fault().(*emu.Fault); ok {
			if f.Kind == emu.Breakpoint {
				fmt.Printf("breakpoint reached at pc=0x%08x\n", f.PC)
				os.Exit(exitNormal)
			}
			log.logf(levelError, "%s", f)
			os.Exit(exitSimFault)
		}
		log.logf(levelInfo, "exited with code %d, %d instructions, %.2f CPI",
			oc.ExitCode(), oc.Stats().Instructions, oc.Stats().CPI())
		os.Exit(int(oc.ExitCode()))
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithForwarding(forwarding),
		pipeline.WithPredictorKind(predictorKind),
	}
	if useL2 {
		opts = append(opts, pipeline.WithL2Cache(overrideCacheConfig(cache.DefaultL2Config(), l2Size, l2Assoc, l2Block)))
	}
	if useICache {
		opts = append(opts, pipeline.WithICache(overrideCacheConfig(cache.DefaultL1IConfig(), l1iSize, l1iAssoc, l1iBlock)))
	}
	if useDCache {
		opts = append(opts, pipeline.WithDCache(overrideCacheConfig(cache.DefaultL1DConfig(), l1dSize, l1dAssoc, l1dBlock)))
	}

	c := core.NewCore(regFile, mem, opts...)
	c.SetPC(image.Entry)

	for cycle := uint64(0); maxCycles == 0 || cycle < maxCycles; cycle++ {
		if ctx.Err() != nil {
			log.logf(levelWarn, "interrupted after %d cycles", cycle)
			os.Exit(exitSimFault)
		}
		if c.Halted() {
			break
		}
		pc := c.Pipeline.PC()
		if breakpoint != 0 && pc == breakpoint {
			fmt.Printf("breakpoint reached at pc=0x%08x\n", pc)
			os.Exit(exitNormal)
		}
		c.Tick()
		if writer != nil {
			writer.WriteCycle(viz.CycleRecord{
				Cycle:       cycle,
				PC:          pc,
				Instruction: disassembleAt(mem, dec, pc),
				Stages:      stageEntries(c.Pipeline),
				Predictor:   c.PredictorStats(),
				ICache:      c.ICacheStats(),
				DCache:      c.DCacheStats(),
			})
		}
	}

	if !c.Halted() {
		log.logf(levelInfo, "stopped after reaching max cycles, still running")
		os.Exit(exitSimFault)
	}
	if f, ok := c.Fault().(*emu.Fault); ok {
		if f.Kind == emu.Breakpoint {
			fmt.Printf("breakpoint reached at pc=0x%08x\n", f.PC)
			os.Exit(exitNormal)
		}
		log.logf(levelError, "%s", f)
		os.Exit(exitSimFault)
	}
	log.logf(levelInfo, "exited with code %d, %d instructions, %.2f CPI",
		c.ExitCode(), c.Stats().Instructions, c.Stats().CPI())
	os.Exit(int(c.ExitCode()))
	return nil
}

func disassembleAt(mem *emu.Memory, dec *insts.Decoder, pc uint32) string {
	word, err := mem.Read32(pc)
	if err != nil {
		return ""
	}
	inst, err := dec.Decode(word)
	if err != nil {
		return ""
	}
	return inst.Disassemble()
}

// stageEntries builds one viz.StageEntry per in-order pipeline latch,
// the boundary between two adjacent stages, so a trace shows each
// latch's instruction, its PC, and whether it held a live instruction,
// a stall bubble, or a flush bubble this cycle.
func stageEntries(p *pipeline.Pipeline) []viz.StageEntry {
	return []viz.StageEntry{
		latchEntry("ID", p.GetIFID()),
		latchEntry("EX", p.GetIDEX()),
		latchEntry("MEM", p.GetEXMEM()),
		latchEntry("WB", p.GetMEMWB()),
	}
}

func latchEntry(name string, l *pipeline.StageLatch) viz.StageEntry {
	switch {
	case l.FlushFlag:
		return viz.StageEntry{Name: name, Status: viz.StageFlushed}
	case l.StallFlag:
		return viz.StageEntry{Name: name, Status: viz.StageStalled}
	case l.Valid:
		mnemonic := ""
		if l.Inst != nil {
			mnemonic = l.Inst.Disassemble()
		}
		return viz.StageEntry{Name: name, PC: l.PC, Instruction: mnemonic, Status: viz.StageBusy}
	default:
		return viz.StageEntry{Name: name, Status: viz.StageEmpty}
	}
}
