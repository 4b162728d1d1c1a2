// Package core provides the cycle-accurate CPU core model. It wraps
// the pipeline implementation to provide a high-level interface.
package core

import (
	"context"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/timing/cache"
	"github.com/archsim/mips32/timing/pipeline"
)

// Stats mirrors pipeline.Statistics, the subset of counters a
// command-line driver or benchmark harness needs without depending on
// the timing/pipeline package directly.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Stalls       uint64
	Flushes      uint64
}

// CPI returns the cycles-per-instruction ratio.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core wraps a 5-stage in-order pipeline bound to a shared register
// file and memory, and provides the simple run/tick/reset interface
// cmd/mips32sim drives.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	regFile *emu.RegFile
	memory  *emu.Memory
	opts    []pipeline.PipelineOption
}

// NewCore creates a new Core with the given register file, memory,
// and pipeline options (caches, forwarding, predictor kind, and so
// on, same as pipeline.NewPipeline).
func NewCore(regFile *emu.RegFile, memory *emu.Memory, opts ...pipeline.PipelineOption) *Core {
	return &Core{
		Pipeline: pipeline.NewPipeline(regFile, memory, opts...),
		regFile:  regFile,
		memory:   memory,
		opts:     opts,
	}
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the core has halted (e.g., due to an exit
// syscall or a fatal fault).
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode returns the exit code if the core has halted cleanly.
func (c *Core) ExitCode() int32 {
	return c.Pipeline.ExitCode()
}

// Fault returns the fault that halted the core, or nil.
func (c *Core) Fault() error {
	return c.Pipeline.Fault()
}

// Resume clears a non-fatal breakpoint halt.
func (c *Core) Resume() {
	c.Pipeline.Resume()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.Pipeline.Stats()
	return Stats{Cycles: s.Cycles, Instructions: s.Instructions, Stalls: s.Stalls, Flushes: s.Flushes}
}

// PredictorStats returns the branch predictor's accumulated
// statistics.
func (c *Core) PredictorStats() pipeline.BranchPredictorStats {
	return c.Pipeline.PredictorStats()
}

// ICacheStats returns the L1 instruction cache's statistics, or the
// zero value if no I-cache is configured.
func (c *Core) ICacheStats() cache.Statistics {
	return c.Pipeline.ICacheStats()
}

// DCacheStats returns the L1 data cache's statistics, or the zero
// value if no D-cache is configured.
func (c *Core) DCacheStats() cache.Statistics {
	return c.Pipeline.DCacheStats()
}

// Run executes the core until it halts or ctx is cancelled. Returns
// the exit code.
func (c *Core) Run(ctx context.Context) int32 {
	return c.Pipeline.Run(ctx)
}

// RunCycles executes the core for the specified number of cycles, or
// until ctx is cancelled. Returns true if still running, false if
// halted.
func (c *Core) RunCycles(ctx context.Context, cycles uint64) bool {
	return c.Pipeline.RunCycles(ctx, cycles)
}

// Reset clears all pipeline state (stats, latches, halted flag,
// predictor history) by rebuilding the pipeline with the same
// options. The register file and memory are left untouched: Reset
// restarts a run of the already-loaded program, it does not reload
// it.
func (c *Core) Reset() {
	c.Pipeline = pipeline.NewPipeline(c.regFile, c.memory, c.opts...)
}
