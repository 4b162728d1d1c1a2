// Package latency provides instruction timing models for cycle-accurate
// MIPS32 simulation.
//
// Latency values are configurable execute-stage durations and can be
// loaded from JSON via TimingConfig.
package latency

import (
	"github.com/archsim/mips32/insts"
)

// Table provides instruction latency lookups for the Execute stage.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{config: DefaultTimingConfig()}
}

// NewTableWithConfig creates a new latency table with a custom timing
// configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{config: config}
}

// GetLatency returns the Execute-stage latency in cycles for the
// given instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpMult, insts.OpMultu:
		return t.config.MultiplyLatency
	case insts.OpDiv, insts.OpDivu:
		return t.config.DivideLatency
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu, insts.OpLwc1:
		return t.config.LoadLatency
	case insts.OpSw, insts.OpSh, insts.OpSb, insts.OpSwc1:
		return t.config.StoreLatency
	case insts.OpBeq, insts.OpBne, insts.OpBgtz, insts.OpBgez, insts.OpBltz, insts.OpBlez,
		insts.OpJ, insts.OpJal, insts.OpJr, insts.OpJalr, insts.OpBc1t, insts.OpBc1f:
		return t.config.BranchLatency
	case insts.OpSyscall, insts.OpBreak:
		return t.config.SyscallLatency
	default:
		return t.config.ALULatency
	}
}

// IsMemoryOp reports whether the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu, insts.OpLwc1,
		insts.OpSw, insts.OpSh, insts.OpSb, insts.OpSwc1:
		return true
	default:
		return false
	}
}

// IsLoadOp reports whether the instruction is a load.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu, insts.OpLwc1:
		return true
	default:
		return false
	}
}

// IsStoreOp reports whether the instruction is a store.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpSw, insts.OpSh, insts.OpSb, insts.OpSwc1:
		return true
	default:
		return false
	}
}

// IsBranchOp reports whether the instruction is a branch or jump.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpBeq, insts.OpBne, insts.OpBgtz, insts.OpBgez, insts.OpBltz, insts.OpBlez,
		insts.OpJ, insts.OpJal, insts.OpJr, insts.OpJalr, insts.OpBc1t, insts.OpBc1f:
		return true
	default:
		return false
	}
}

// IsMultiCycle reports whether the instruction's Execute latency
// exceeds a single cycle, the case pipeline.go must model as an
// in-place Execute stall rather than a simple pass-through.
func (t *Table) IsMultiCycle(inst *insts.Instruction) bool {
	return t.GetLatency(inst) > 1
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
