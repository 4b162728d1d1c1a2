package benchmarks

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/loader"
	"github.com/archsim/mips32/timing/core"
	"github.com/archsim/mips32/timing/ooo"
	"github.com/archsim/mips32/timing/pipeline"
)

// wordsToBytes little-endian-encodes a text segment for the loader,
// the same layout loader.LoadFlat expects.
func wordsToBytes(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

// Result is the architectural outcome of running one Program to
// completion under a particular execution model, enough to check the
// spec's functional-equivalence property (testable property 3)
// across models.
type Result struct {
	Regs     emu.RegFile
	ExitCode int32
	Fault    error
	Memory   *emu.Memory
}

// RunFunctional runs p on the plain functional emulator (the decode
// → semantics → register-file/memory loop, no timing).
func RunFunctional(p Program, maxInstructions uint64) Result {
	mem := emu.NewMemory()
	_, err := loader.LoadFlat(mem, wordsToBytes(p.Words))
	if err != nil {
		return Result{Fault: err, Memory: mem}
	}

	e := emu.NewEmulator(
		emu.WithMemory(mem),
		emu.WithEntryPoint(emu.TextBase),
		emu.WithMaxInstructions(maxInstructions),
		emu.WithStdout(&bytes.Buffer{}),
	)

	exit := e.Run(context.Background())
	return Result{Regs: e.RegFile().Snapshot(), ExitCode: exit, Memory: mem}
}

// RunInOrder runs p on the configurable in-order pipeline.
func RunInOrder(p Program, maxCycles uint64, opts ...pipeline.PipelineOption) Result {
	mem := emu.NewMemory()
	regFile := &emu.RegFile{}
	regFile.Write(29, emu.StackTop)

	if _, err := loader.LoadFlat(mem, wordsToBytes(p.Words)); err != nil {
		return Result{Fault: err, Memory: mem}
	}

	c := core.NewCore(regFile, mem, opts...)
	c.SetPC(emu.TextBase)
	c.RunCycles(context.Background(), maxCycles)

	return Result{Regs: regFile.Snapshot(), ExitCode: c.ExitCode(), Fault: c.Fault(), Memory: mem}
}

// ReportInOrder runs p on the in-order pipeline and summarizes its
// timing counters as a Report.
func ReportInOrder(p Program, maxCycles uint64, opts ...pipeline.PipelineOption) Report {
	mem := emu.NewMemory()
	regFile := &emu.RegFile{}
	regFile.Write(29, emu.StackTop)

	if _, err := loader.LoadFlat(mem, wordsToBytes(p.Words)); err != nil {
		return Report{Name: p.Name, Fault: err}
	}

	c := core.NewCore(regFile, mem, opts...)
	c.SetPC(emu.TextBase)
	c.RunCycles(context.Background(), maxCycles)

	s := c.Stats()
	return Report{Name: p.Name, Cycles: s.Cycles, Instructions: s.Instructions, CPI: s.CPI(), ExitCode: c.ExitCode(), Fault: c.Fault()}
}

// ReportOOO runs p on the out-of-order driver and summarizes its
// timing counters as a Report.
func ReportOOO(p Program, maxCycles uint64, cfg ooo.Config) Report {
	mem := emu.NewMemory()
	regFile := &emu.RegFile{}
	regFile.Write(29, emu.StackTop)

	if _, err := loader.LoadFlat(mem, wordsToBytes(p.Words)); err != nil {
		return Report{Name: p.Name, Fault: err}
	}

	c := core.NewOOOCore(regFile, mem, cfg)
	c.SetPC(emu.TextBase)
	c.RunCycles(context.Background(), maxCycles)

	s := c.Stats()
	return Report{Name: p.Name, Cycles: s.Cycles, Instructions: s.Instructions, CPI: s.CPI(), ExitCode: c.ExitCode(), Fault: c.Fault()}
}

// RunOOO runs p on the Tomasulo-style out-of-order driver.
func RunOOO(p Program, maxCycles uint64, cfg ooo.Config) Result {
	mem := emu.NewMemory()
	regFile := &emu.RegFile{}
	regFile.Write(29, emu.StackTop)

	if _, err := loader.LoadFlat(mem, wordsToBytes(p.Words)); err != nil {
		return Result{Fault: err, Memory: mem}
	}

	c := core.NewOOOCore(regFile, mem, cfg)
	c.SetPC(emu.TextBase)
	c.RunCycles(context.Background(), maxCycles)

	return Result{Regs: regFile.Snapshot(), ExitCode: c.ExitCode(), Fault: c.Fault(), Memory: mem}
}
