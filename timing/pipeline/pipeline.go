package pipeline

import (
	"context"
	"os"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/insts"
	"github.com/archsim/mips32/timing/cache"
	"github.com/archsim/mips32/timing/latency"
)

// Statistics holds pipeline performance counters accumulated across
// every Tick.
type Statistics struct {
	Cycles               uint64
	Instructions         uint64
	Stalls               uint64
	Flushes              uint64
	ExecStalls           uint64
	MemStalls            uint64
	DataHazards          uint64
	BranchPredictions    uint64
	BranchCorrect        uint64
	BranchMispredictions uint64
}

// CPI returns the cycles-per-instruction ratio.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Config holds the structural parameters of the in-order pipeline.
// Superscalar width is out of scope here: multi-issue belongs to the
// timing/ooo package, not this single-issue model.
type Config struct {
	// Stages reports the pipeline's stage count for statistics and
	// visualization; Tick models the fixed Fetch/Decode/Execute/
	// Memory/Writeback stage set regardless of this value.
	Stages int
	// Forwarding enables EX/MEM and MEM/WB operand forwarding. With it
	// disabled, any RAW dependency stalls instead.
	Forwarding bool
	// PredictorKind selects the Fetch-stage branch predictor.
	PredictorKind PredictorKind
}

// DefaultConfig returns the baseline 5-stage, forwarding-enabled,
// bimodal-predicted configuration.
func DefaultConfig() Config {
	return Config{Stages: 5, Forwarding: true, PredictorKind: PredictorBimodal}
}

// PipelineOption is a functional option for configuring a Pipeline.
type PipelineOption func(*Pipeline)

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) { p.syscallHandler = handler }
}

// WithLatencyTable sets the instruction timing table. Without one,
// every instruction's Execute stage takes a single cycle.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) { p.latencyTable = table }
}

// WithL2Cache enables a shared L2 cache sitting behind whichever L1s
// are configured. It must be passed before WithICache/WithDCache/
// WithDefaultCaches in the options list: those options capture the
// current backing store (L2 if already installed, memory otherwise)
// at the time they run.
func WithL2Cache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.l2Cache = cache.New(config, cache.NewMemoryBacking(p.memory))
	}
}

// l1Backing returns the BackingStore an L1 cache option should sit in
// front of: the L2 cache if WithL2Cache already ran, or memory
// directly otherwise.
func (p *Pipeline) l1Backing() cache.BackingStore {
	if p.l2Cache != nil {
		return cache.NewCacheBacking(p.l2Cache)
	}
	return cache.NewMemoryBacking(p.memory)
}

// WithICache enables an L1 instruction cache in front of Fetch.
func WithICache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.cachedFetchStage = NewCachedFetchStage(cache.New(config, p.l1Backing()), p.memory)
		p.useICache = true
	}
}

// WithDCache enables an L1 data cache in front of Memory.
func WithDCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.cachedMemoryStage = NewCachedMemoryStage(cache.New(config, p.l1Backing()))
		p.useDCache = true
	}
}

// WithDefaultCaches enables both I-cache and D-cache with the
// package's representative L1 configurations.
func WithDefaultCaches() PipelineOption {
	return func(p *Pipeline) {
		p.cachedFetchStage = NewCachedFetchStage(cache.New(cache.DefaultL1IConfig(), p.l1Backing()), p.memory)
		p.useICache = true
		p.cachedMemoryStage = NewCachedMemoryStage(cache.New(cache.DefaultL1DConfig(), p.l1Backing()))
		p.useDCache = true
	}
}

// WithForwarding toggles EX/MEM and MEM/WB forwarding.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) { p.forwarding = enabled }
}

// WithPredictorKind selects the branch predictor implementation.
func WithPredictorKind(kind PredictorKind) PipelineOption {
	return func(p *Pipeline) {
		if kind == PredictorStatic {
			p.predictor = NewStaticPredictor()
		} else {
			p.predictor = NewBranchPredictor(DefaultBranchPredictorConfig())
		}
	}
}

// Pipeline implements a single-issue, 5-stage in-order MIPS32 CPU
// model. Fetch decodes as it fetches (the decoder is a stateless pure
// function, so there is no benefit to deferring decode a stage);
// Decode reads operands and derives control signals; Execute computes
// the ALU/branch/jump result without touching the register file;
// Memory performs the load/store through the optional data cache;
// Writeback commits the result.
type Pipeline struct {
	ifid, idex, exmem, memwb StageLatch

	decoder *insts.Decoder

	cachedFetchStage  *CachedFetchStage
	cachedMemoryStage *CachedMemoryStage
	useICache         bool
	useDCache         bool
	l2Cache           *cache.Cache

	hazardUnit *HazardUnit
	forwarding bool

	predictor Predictor

	latencyTable *latency.Table
	exLatency    uint64

	regFile *emu.RegFile
	memory  *emu.Memory
	fpUnit  *emu.FPUnit

	syscallHandler emu.SyscallHandler

	pc uint32

	stats Statistics

	halted   bool
	exitCode int32
	fault    error
}

// NewPipeline creates a new 5-stage in-order pipeline bound to the
// given architectural state.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		decoder:    insts.NewDecoder(),
		hazardUnit: NewHazardUnit(),
		forwarding: true,
		predictor:  NewBranchPredictor(DefaultBranchPredictorConfig()),
		regFile:    regFile,
		memory:     memory,
		fpUnit:     emu.NewFPUnit(regFile),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.syscallHandler == nil {
		p.syscallHandler = emu.NewDefaultSyscallHandler(regFile, memory, os.Stdin, os.Stdout)
	}

	return p
}

// PC returns the current fetch program counter.
func (p *Pipeline) PC() uint32 { return p.pc }

// SetPC sets the fetch program counter and the architectural PC.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
	p.regFile.PC = pc
}

// GetIFID returns the IF/ID latch.
func (p *Pipeline) GetIFID() *StageLatch { return &p.ifid }

// GetIDEX returns the ID/EX latch.
func (p *Pipeline) GetIDEX() *StageLatch { return &p.idex }

// GetEXMEM returns the EX/MEM latch.
func (p *Pipeline) GetEXMEM() *StageLatch { return &p.exmem }

// GetMEMWB returns the MEM/WB latch.
func (p *Pipeline) GetMEMWB() *StageLatch { return &p.memwb }

// Stats returns a snapshot of the accumulated pipeline statistics.
func (p *Pipeline) Stats() Statistics { return p.stats }

// L2Stats returns the shared L2 cache's statistics, or the zero value
// if WithL2Cache was never applied.
func (p *Pipeline) L2Stats() cache.Statistics {
	if p.l2Cache == nil {
		return cache.Statistics{}
	}
	return p.l2Cache.Stats()
}

// ICacheStats returns the L1 instruction cache's statistics, or the
// zero value if WithICache was never applied.
func (p *Pipeline) ICacheStats() cache.Statistics {
	if !p.useICache {
		return cache.Statistics{}
	}
	return p.cachedFetchStage.CacheStats()
}

// DCacheStats returns the L1 data cache's statistics, or the zero
// value if WithDCache was never applied.
func (p *Pipeline) DCacheStats() cache.Statistics {
	if !p.useDCache {
		return cache.Statistics{}
	}
	return p.cachedMemoryStage.CacheStats()
}

// PredictorStats returns the branch predictor's accumulated
// statistics, for reporting and tracing.
func (p *Pipeline) PredictorStats() BranchPredictorStats {
	return p.predictor.Stats()
}

// LatencyTable returns the instruction timing table in use, or nil if
// every instruction takes a single Execute cycle.
func (p *Pipeline) LatencyTable() *latency.Table { return p.latencyTable }

// SetLatencyTable installs a timing table after construction.
func (p *Pipeline) SetLatencyTable(table *latency.Table) { p.latencyTable = table }

// Halted reports whether the pipeline has stopped, either by a clean
// exit syscall or a fault.
func (p *Pipeline) Halted() bool { return p.halted }

// ExitCode returns the exit syscall's status code, valid once Halted
// reports true and Fault is nil.
func (p *Pipeline) ExitCode() int32 { return p.exitCode }

// Fault returns the fault that halted the pipeline, or nil for a clean
// exit syscall or a still-running pipeline.
func (p *Pipeline) Fault() error { return p.fault }

// Resume clears a non-fatal fault (Breakpoint) so Tick/Run can
// continue past it. Calling it with no fault, or a fatal one, has no
// effect.
func (p *Pipeline) Resume() {
	f, ok := p.fault.(*emu.Fault)
	if !ok || f.Kind.Fatal() {
		return
	}
	p.halted = false
	p.fault = nil
}

// Run executes the pipeline until it halts, returning the exit code.
func (p *Pipeline) Run(ctx context.Context) int32 {
	for !p.halted {
		if ctx.Err() != nil {
			return p.exitCode
		}
		p.Tick()
	}
	return p.exitCode
}

// RunCycles executes at most the given number of cycles, stopping
// early if the pipeline halts or ctx is cancelled. Reports whether it
// is still running.
func (p *Pipeline) RunCycles(ctx context.Context, cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		if ctx.Err() != nil {
			break
		}
		p.Tick()
	}
	return !p.halted
}

func (p *Pipeline) raiseFault(err error) {
	p.halted = true
	p.fault = err
}

// fetchWord fetches the raw instruction word at pc, routing through
// the I-cache if one is configured.
func (p *Pipeline) fetchWord(pc uint32) (word uint32, ok bool, stall bool) {
	if p.useICache {
		return p.cachedFetchStage.Fetch(pc)
	}
	word, err := p.memory.Read32(pc)
	if err != nil {
		p.raiseFault(err)
		return 0, false, false
	}
	return word, true, false
}

// memAccess performs latch's load or store, routing through the
// D-cache if one is configured.
func (p *Pipeline) memAccess(latch *StageLatch) (data uint32, stall bool) {
	if p.useDCache {
		return p.cachedMemoryStage.Access(latch)
	}
	if !latch.MemRead && !latch.MemWrite {
		return 0, false
	}

	addr := latch.ALUResult
	if latch.MemRead {
		v, err := p.readMemory(latch.Inst, addr)
		if err != nil {
			p.raiseFault(err)
			return 0, false
		}
		return v, false
	}

	if err := p.writeMemory(latch.Inst, addr, latch.StoreValue); err != nil {
		p.raiseFault(err)
	}
	return 0, false
}

func (p *Pipeline) readMemory(inst *insts.Instruction, addr uint32) (uint32, error) {
	switch inst.Op {
	case insts.OpLb:
		v, err := p.memory.Read8(addr)
		return uint32(int32(int8(v))), err
	case insts.OpLbu:
		v, err := p.memory.Read8(addr)
		return uint32(v), err
	case insts.OpLh:
		v, err := p.memory.Read16(addr)
		return uint32(int32(int16(v))), err
	case insts.OpLhu:
		v, err := p.memory.Read16(addr)
		return uint32(v), err
	default: // Lw, Lwc1
		return p.memory.Read32(addr)
	}
}

func (p *Pipeline) writeMemory(inst *insts.Instruction, addr, value uint32) error {
	switch inst.Op {
	case insts.OpSb:
		return p.memory.Write8(addr, uint8(value))
	case insts.OpSh:
		return p.memory.Write16(addr, uint16(value))
	default: // Sw, Swc1
		return p.memory.Write32(addr, value)
	}
}

// executeFPSideEffect applies a coprocessor-1 arithmetic/compare
// instruction directly against the register file's F/FCC state.
// Floating-point register traffic carries no hazard tracking (see
// decodeControl), so these run eagerly at Execute with no staged
// commit through the latches.
func (p *Pipeline) executeFPSideEffect(inst *insts.Instruction) bool {
	// FP-R layout decodes ft into Rs, fs into Rt, fd into Rd.
	switch inst.Op {
	case insts.OpAddS:
		p.fpUnit.AddS(inst.Rd, inst.Rt, inst.Rs)
	case insts.OpSubS:
		p.fpUnit.SubS(inst.Rd, inst.Rt, inst.Rs)
	case insts.OpMulS:
		p.fpUnit.MulS(inst.Rd, inst.Rt, inst.Rs)
	case insts.OpDivS:
		p.fpUnit.DivS(inst.Rd, inst.Rt, inst.Rs)
	case insts.OpAbsS:
		p.fpUnit.AbsS(inst.Rd, inst.Rt)
	case insts.OpNegS:
		p.fpUnit.NegS(inst.Rd, inst.Rt)
	case insts.OpMovS:
		p.fpUnit.MovS(inst.Rd, inst.Rt)
	case insts.OpCvtSW:
		p.fpUnit.CvtSW(inst.Rd, inst.Rt)
	case insts.OpCvtWS:
		p.fpUnit.CvtWS(inst.Rd, inst.Rt)
	case insts.OpCeqS:
		p.fpUnit.CeqS(inst.Rt, inst.Rs)
	case insts.OpCltS:
		p.fpUnit.CltS(inst.Rt, inst.Rs)
	case insts.OpCleS:
		p.fpUnit.CleS(inst.Rt, inst.Rs)
	default:
		return false
	}
	return true
}

// Tick executes one pipeline cycle. Every stage reads the latch values
// as they stood at the start of the cycle and writes its result into a
// local "next" latch; all four boundary latches and the PC are
// committed together at the end, so no stage observes a partially
// updated cycle.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}
	p.stats.Cycles++

	rawForwarding := p.hazardUnit.DetectForwarding(&p.idex, &p.exmem, &p.memwb)
	if rawForwarding.ForwardRs != ForwardNone || rawForwarding.ForwardRt != ForwardNone {
		p.stats.DataHazards++
	}
	effectiveForwarding := rawForwarding
	if !p.forwarding {
		effectiveForwarding = ForwardingResult{}
	}

	loadUseHazard := false
	if p.idex.Valid && p.idex.MemRead && p.idex.ProducerTag != 0 && p.ifid.Valid && p.ifid.Inst != nil {
		next := decodeControl(p.ifid.Inst)
		loadUseHazard = p.hazardUnit.DetectLoadUseHazard(&p.idex, next.rs, next.rt)
	}

	// Writeback: commit whatever was latched into MEM/WB last cycle.
	if p.memwb.Valid {
		switch {
		case p.memwb.WritesHILO:
			p.regFile.HI, p.regFile.LO = p.memwb.Hi, p.memwb.Lo
		case p.memwb.RegWrite:
			value := p.memwb.ALUResult
			if p.memwb.MemToReg {
				value = p.memwb.MemData
			}
			p.regFile.Write(p.memwb.ProducerTag, value)
		}
		p.stats.Instructions++
	}

	// Memory.
	var nextMemWB StageLatch
	memStall := false
	if p.exmem.Valid {
		if p.exmem.IsBreak {
			p.raiseFault(&emu.Fault{Kind: emu.Breakpoint, PC: p.exmem.PC})
			return
		}
		if p.exmem.IsSyscall {
			result, err := p.syscallHandler.Handle()
			if err != nil {
				p.raiseFault(err)
				return
			}
			if result.Exited {
				p.halted = true
				p.exitCode = result.ExitCode
				return
			}
		}

		data, stall := p.memAccess(&p.exmem)
		if p.halted {
			return
		}
		memStall = stall
		if memStall {
			p.stats.MemStalls++
		} else {
			nextMemWB = StageLatch{
				Valid:       true,
				PC:          p.exmem.PC,
				Inst:        p.exmem.Inst,
				ALUResult:   p.exmem.ALUResult,
				MemData:     data,
				ProducerTag: p.exmem.ProducerTag,
				RegWrite:    p.exmem.RegWrite,
				MemToReg:    p.exmem.MemToReg,
				Hi:          p.exmem.Hi,
				Lo:          p.exmem.Lo,
				WritesHILO:  p.exmem.WritesHILO,
			}
		}
	}

	// Execute.
	var nextExMem StageLatch
	execStall := false
	branchMispredicted := false
	var branchTargetPC uint32

	if p.idex.Valid && !memStall {
		if p.latencyTable != nil && p.exLatency == 0 {
			p.exLatency = p.latencyTable.GetLatency(p.idex.Inst)
			if p.useDCache && p.latencyTable.IsLoadOp(p.idex.Inst) {
				p.exLatency = 1 // the D-cache charges its own hit/miss latency in Memory
			}
		}
		if p.exLatency > 0 {
			p.exLatency--
		}

		if p.exLatency > 0 {
			execStall = true
			p.stats.ExecStalls++
		} else if p.executeFPSideEffect(p.idex.Inst) {
			nextExMem = StageLatch{
				Valid: true, PC: p.idex.PC, Inst: p.idex.Inst,
				IsSyscall: p.idex.IsSyscall, IsBreak: p.idex.IsBreak,
			}
		} else {
			rsVal := p.hazardUnit.GetForwardedValue(effectiveForwarding.ForwardRs, p.idex.RsValue, &p.exmem, &p.memwb)
			rtVal := p.hazardUnit.GetForwardedValue(effectiveForwarding.ForwardRt, p.idex.RtValue, &p.exmem, &p.memwb)

			// HI/LO have no GPR number for the hazard unit to track, so
			// mfhi/mflo/mthi/mtlo forward directly off the EX/MEM latch:
			// Writeback above already applied MEM/WB's HI/LO into
			// regFile, so only a producer still sitting in EX/MEM can be
			// stale in regFile.HI/LO.
			hiVal, loVal := p.regFile.HI, p.regFile.LO
			if p.exmem.Valid && p.exmem.WritesHILO {
				hiVal, loVal = p.exmem.Hi, p.exmem.Lo
			}

			result := executeALU(p.idex.Inst, p.idex.PC, rsVal, rtVal, hiVal, loVal, p.regFile.FCC)
			if result.err != nil {
				p.raiseFault(result.err)
				return
			}

			if p.idex.IsBranch || p.idex.IsJump {
				actualTaken, actualTarget := result.branchTaken, result.branchTarget
				p.stats.BranchPredictions++

				mispredicted := false
				if actualTaken {
					if !p.idex.PredictedTaken || p.idex.PredictedTarget != actualTarget {
						mispredicted = true
					}
				} else if p.idex.PredictedTaken {
					mispredicted = true
				}
				if p.idex.EarlyResolved {
					mispredicted = false
				}

				p.predictor.Update(p.idex.PC, actualTaken, actualTarget)

				if mispredicted {
					p.stats.BranchMispredictions++
					branchMispredicted = true
					branchTargetPC = actualTarget
					if !actualTaken {
						branchTargetPC = p.idex.PC + 4
					}
				} else {
					p.stats.BranchCorrect++
				}
			}

			nextExMem = StageLatch{
				Valid: true, PC: p.idex.PC, Inst: p.idex.Inst,
				ALUResult: result.value, StoreValue: rtVal,
				ProducerTag: p.idex.ProducerTag, RegWrite: p.idex.RegWrite,
				MemRead: p.idex.MemRead, MemWrite: p.idex.MemWrite, MemToReg: p.idex.MemToReg,
				IsSyscall: p.idex.IsSyscall, IsBreak: p.idex.IsBreak,
				Hi: result.hi, Lo: result.lo, WritesHILO: result.writesHILO,
			}
		}
	}

	dataHazard := p.hazardUnit.RAWHazard(p.forwarding, loadUseHazard, rawForwarding) || execStall || memStall
	stallResult := p.hazardUnit.ComputeStalls(dataHazard, branchMispredicted)

	// Fetch.
	var nextIFID StageLatch
	fetchStall := false
	if !stallResult.StallIF && !stallResult.FlushIF && !memStall && !execStall {
		word, ok, stall := p.fetchWord(p.pc)
		fetchStall = stall
		if fetchStall {
			p.stats.Stalls++
		}
		if p.halted {
			return
		}

		if ok && !fetchStall {
			inst, err := p.decoder.Decode(word)
			if err != nil {
				p.raiseFault(&emu.Fault{Kind: emu.InvalidInstruction, PC: p.pc, Word: word})
				return
			}

			pred := p.predictor.Predict(p.pc)
			earlyResolved := false
			if inst.Op == insts.OpJ || inst.Op == insts.OpJal {
				pred.Taken, pred.Target, pred.TargetKnown = true, jumpTarget(p.pc, inst.Target), true
				earlyResolved = true
			}

			nextIFID = StageLatch{
				Valid: true, PC: p.pc, Inst: inst,
				PredictedTaken: pred.Taken, PredictedTarget: pred.Target, EarlyResolved: earlyResolved,
			}

			if pred.Taken && pred.TargetKnown {
				p.pc = pred.Target
			} else {
				p.pc += 4
			}
		}
	} else if (stallResult.StallIF || memStall || execStall) && !stallResult.FlushIF {
		nextIFID = p.ifid
		p.stats.Stalls++
	}

	// Decode.
	var nextIDEX StageLatch
	if p.ifid.Valid && !stallResult.StallID && !stallResult.FlushID && !execStall && !memStall && !fetchStall {
		ctrl := decodeControl(p.ifid.Inst)
		nextIDEX = StageLatch{
			Valid: true, PC: p.ifid.PC, Inst: p.ifid.Inst,
			RsValue: p.regFile.Read(ctrl.rs), RtValue: p.regFile.Read(ctrl.rt),
			Rs: ctrl.rs, Rt: ctrl.rt, ProducerTag: ctrl.dest,
			RegWrite: ctrl.regWrite, MemRead: ctrl.memRead, MemWrite: ctrl.memWrite, MemToReg: ctrl.memToReg,
			IsBranch: ctrl.isBranch, IsJump: ctrl.isJump, IsSyscall: ctrl.isSyscall, IsBreak: ctrl.isBreak,
			WritesHILO:      ctrl.writesHILO,
			PredictedTaken:  p.ifid.PredictedTaken,
			PredictedTarget: p.ifid.PredictedTarget,
			EarlyResolved:   p.ifid.EarlyResolved,
		}
	} else if (stallResult.StallID || execStall || memStall || fetchStall) && !stallResult.FlushID {
		nextIDEX = p.idex
	}

	if branchMispredicted {
		p.pc = branchTargetPC
		nextIFID.Flush()
		nextIDEX.Flush()
		p.stats.Flushes++
	}

	if !memStall && !fetchStall {
		p.memwb = nextMemWB
	} else {
		p.memwb.Clear()
	}
	if !execStall && !memStall {
		p.exmem = nextExMem
	}
	if stallResult.InsertBubbleEX && !execStall && !memStall {
		p.idex.Clear()
	} else if !memStall {
		p.idex = nextIDEX
	}
	if !fetchStall {
		p.ifid = nextIFID
	}
}
