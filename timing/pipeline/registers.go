// Package pipeline provides a configurable N-stage in-order pipeline
// model for cycle-accurate MIPS32 timing simulation.
package pipeline

import "github.com/archsim/mips32/insts"

// StageLatch is the pipeline latch carried across every stage
// boundary: `{ instr, decoded operands, computed result, stall_flag,
// flush_flag, producer_tag }`. A single shared shape is used for every
// boundary so the pipeline's stage count is data-driven (Config.Stages)
// rather than hardcoded into per-boundary struct types.
type StageLatch struct {
	// Valid indicates this latch carries a live instruction.
	Valid bool

	// PC is the program counter of the instruction occupying this
	// latch.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// RsValue/RtValue are the operand values read in Decode, before
	// any same-cycle forwarding is applied in Execute.
	RsValue uint32
	RtValue uint32

	// Rs/Rt are the source register numbers, used for hazard
	// detection.
	Rs uint8
	Rt uint8

	// ProducerTag is the destination register this instruction will
	// write, valid only when RegWrite is set.
	ProducerTag uint8

	// Control signals, set in Decode and carried forward.
	MemRead   bool
	MemWrite  bool
	RegWrite  bool
	MemToReg  bool
	IsBranch  bool
	IsJump    bool
	IsSyscall bool
	IsBreak   bool

	// ALUResult holds the Execute-stage result: the computed value for
	// ALU ops, the effective address for loads/stores, or the branch
	// target for taken branches/jumps.
	ALUResult uint32

	// StoreValue is the value to be written for store instructions.
	StoreValue uint32

	// MemData is the value read from memory in the Memory stage.
	MemData uint32

	// Hi/Lo hold the double-width result of mult/multu/div/divu,
	// committed to RegFile.HI/LO at Writeback instead of ProducerTag's
	// general-purpose register.
	Hi, Lo     uint32
	WritesHILO bool

	// BranchTaken/BranchTarget hold the Execute stage's resolved
	// outcome for branch/jump instructions.
	BranchTaken  bool
	BranchTarget uint32

	// PredictedTaken/PredictedTarget/EarlyResolved carry the Fetch
	// stage's prediction forward so Execute can detect mispredictions.
	PredictedTaken  bool
	PredictedTarget uint32
	EarlyResolved   bool

	// StallFlag/FlushFlag record whether this latch is a stall bubble
	// (instruction held back) or a flush bubble (squashed instruction)
	// for visualization purposes.
	StallFlag bool
	FlushFlag bool
}

// Clear resets the latch to an empty bubble.
func (l *StageLatch) Clear() {
	*l = StageLatch{}
}

// Stall marks the latch as an inserted stall bubble; all instruction
// content is cleared but the flag survives for reporting.
func (l *StageLatch) Stall() {
	l.Clear()
	l.StallFlag = true
}

// Flush marks the latch as a squashed instruction; all instruction
// content is cleared but the flag survives for reporting.
func (l *StageLatch) Flush() {
	l.Clear()
	l.FlushFlag = true
}
