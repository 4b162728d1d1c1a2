package core

import (
	"context"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/timing/ooo"
	"github.com/archsim/mips32/timing/pipeline"
)

// OOOStats mirrors ooo.Stats for callers that only depend on package
// core, the same role Stats plays for the in-order Core.
type OOOStats struct {
	Cycles       uint64
	Instructions uint64
	StallCycles  uint64
	Mispredicts  uint64
}

// CPI returns the cycles-per-instruction ratio.
func (s OOOStats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// OOOCore wraps the Tomasulo-style out-of-order driver the same way
// Core wraps the in-order pipeline, so a command-line front end can
// select either model behind one small interface.
type OOOCore struct {
	// Driver is the underlying out-of-order execution engine.
	Driver *ooo.Driver

	regFile *emu.RegFile
	memory  *emu.Memory
	config  ooo.Config
}

// NewOOOCore creates a new OOOCore with the given register file,
// memory, and Tomasulo structural configuration.
func NewOOOCore(regFile *emu.RegFile, memory *emu.Memory, config ooo.Config) *OOOCore {
	return &OOOCore{
		Driver:  ooo.NewDriver(regFile, memory, config),
		regFile: regFile,
		memory:  memory,
		config:  config,
	}
}

// SetPC sets the fetch program counter.
func (c *OOOCore) SetPC(pc uint32) {
	c.Driver.SetPC(pc)
}

// Tick executes one cycle of the out-of-order engine.
func (c *OOOCore) Tick() {
	c.Driver.Tick()
}

// Halted returns true if the core has halted.
func (c *OOOCore) Halted() bool {
	return c.Driver.Halted()
}

// ExitCode returns the exit code if the core has halted cleanly.
func (c *OOOCore) ExitCode() int32 {
	return c.Driver.ExitCode()
}

// Fault returns the fault that halted the core, or nil.
func (c *OOOCore) Fault() error {
	return c.Driver.Fault()
}

// Resume clears a non-fatal breakpoint halt.
func (c *OOOCore) Resume() {
	c.Driver.Resume()
}

// Stats returns performance statistics for the core.
func (c *OOOCore) Stats() OOOStats {
	s := c.Driver.Stats()
	return OOOStats{Cycles: s.Cycles, Instructions: s.Instructions, StallCycles: s.StallCycles, Mispredicts: s.Mispredicts}
}

// PredictorStats returns the branch predictor's accumulated
// statistics.
func (c *OOOCore) PredictorStats() pipeline.BranchPredictorStats {
	return c.Driver.PredictorStats()
}

// Run executes the core until it halts or ctx is cancelled. Returns
// the exit code.
func (c *OOOCore) Run(ctx context.Context) int32 {
	return c.Driver.Run(ctx)
}

// RunCycles executes the core for the specified number of cycles, or
// until ctx is cancelled. Returns true if still running, false if
// halted.
func (c *OOOCore) RunCycles(ctx context.Context, cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.Driver.Halted(); i++ {
		if ctx.Err() != nil {
			break
		}
		c.Driver.Tick()
	}
	return !c.Driver.Halted()
}

// Reset clears all engine state (ROB, reservation stations, RAT,
// stats, halted flag) by rebuilding the driver with the same
// configuration. The register file and memory are left untouched.
func (c *OOOCore) Reset() {
	c.Driver = ooo.NewDriver(c.regFile, c.memory, c.config)
}
