// Package viz renders per-cycle simulation traces in the format a
// caller wants: human-readable text, CSV for spreadsheets, or
// line-delimited JSON for streaming into another tool.
package viz

import (
	"github.com/archsim/mips32/timing/cache"
	"github.com/archsim/mips32/timing/pipeline"
)

// StageStatus classifies what a pipeline stage did in a given cycle.
type StageStatus int

const (
	StageEmpty StageStatus = iota
	StageBusy
	StageStalled
	StageFlushed
)

// String renders the status the way the spec names it: busy, stalled,
// flushed, or empty.
func (s StageStatus) String() string {
	switch s {
	case StageBusy:
		return "busy"
	case StageStalled:
		return "stalled"
	case StageFlushed:
		return "flushed"
	default:
		return "empty"
	}
}

// StageEntry describes one pipeline stage's contents for one cycle.
type StageEntry struct {
	// Name is the stage label (e.g. "IF", "ID", "EX", "MEM", "WB", or
	// "commit" for the out-of-order engine's single reported slot).
	Name string
	// PC is the program counter of the instruction occupying this
	// stage, zero if the stage is empty.
	PC uint32
	// Instruction is the disassembled mnemonic, empty if the stage
	// held no live instruction this cycle.
	Instruction string
	Status      StageStatus
}

// CycleRecord describes one simulated cycle (in-order pipeline,
// out-of-order engine, or the functional emulator's step loop) for
// tracing and reporting. Fields that don't apply to a given engine or
// cycle (e.g. Stages on the functional emulator, ICache on a run with
// no data cache configured) are left at their zero value.
type CycleRecord struct {
	// Cycle is the simulation cycle number this record describes.
	Cycle uint64
	// PC is the program counter most representative of this record
	// (the fetched instruction for an in-order pipeline trace, the
	// committing instruction for an out-of-order trace, or the
	// executed instruction for a functional-emulator trace).
	PC uint32
	// Instruction is the disassembled mnemonic, or empty if nothing
	// meaningful fetched or committed this cycle.
	Instruction string
	// Retired is true if an instruction completed (committed, or left
	// the pipeline via Writeback) this cycle.
	Retired bool
	// Stalled is true if the front end held an instruction back this
	// cycle rather than issuing it (structural or data hazard).
	Stalled bool
	// Flushed is true if this cycle squashed in-flight instructions
	// (branch misprediction recovery).
	Flushed bool
	// Hazards names the active hazards this cycle (e.g. "load-use",
	// "control"), empty when none fired.
	Hazards []string
	// Stages holds one entry per named pipeline stage this cycle,
	// sourced from Pipeline.GetIFID/GetIDEX/GetEXMEM/GetMEMWB for an
	// in-order trace. Nil for engines with no named stage latches
	// (the out-of-order driver, the functional emulator).
	Stages []StageEntry
	// Predictor is a snapshot of the branch predictor's cumulative
	// counters as of this cycle.
	Predictor pipeline.BranchPredictorStats
	// ICache/DCache are snapshots of the L1 cache counters as of this
	// cycle, zero-valued if the corresponding cache isn't configured.
	ICache cache.Statistics
	DCache cache.Statistics
}

// Writer accepts a stream of CycleRecords, one per simulated cycle,
// and renders them incrementally. Implementations must not buffer the
// entire run in memory: WriteCycle is called once per cycle for runs
// that can be millions of cycles long.
type Writer interface {
	WriteCycle(rec CycleRecord) error
	// Close flushes any buffered output and releases resources. It is
	// safe to call Close without having written any records.
	Close() error
}
