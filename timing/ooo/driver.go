package ooo

import (
	"context"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/insts"
	"github.com/archsim/mips32/timing/pipeline"
)

// Stats mirrors timing/pipeline.Stats for the out-of-order engine:
// the handful of counters the CLI and benchmarks report.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	StallCycles  uint64
	Mispredicts  uint64
}

// Driver is the Tomasulo-style out-of-order execution engine: a
// reorder buffer, a register alias table, one reservation-station
// bank per functional-unit class, and a single Common Data Bus tying
// them together. It operates on the same emu.RegFile/emu.Memory
// architectural state timing/pipeline.Pipeline does, so the two can
// be run on the same program and their final register files compared
// (spec testable property 3).
type Driver struct {
	regFile *emu.RegFile
	memory  *emu.Memory
	decoder *insts.Decoder
	syscall emu.SyscallHandler

	predictor pipeline.Predictor

	rob    *ROB
	rat    *RAT
	banks  [int(numFunctionalUnitClasses)]*stationBank
	config Config

	pc         uint32
	fetchPC    uint32
	halted     bool
	exitCode   int32
	fault      error
	breakpoint bool

	stats Stats

	// ratSnapshots remembers, per in-flight branch ROB id, the RAT
	// state at dispatch time so a misprediction can roll back to
	// exactly the aliases that were live before the branch.
	ratSnapshots map[int]RATSnapshot
}

// NewDriver creates an out-of-order engine wired to the given
// architectural state and configuration.
func NewDriver(regFile *emu.RegFile, memory *emu.Memory, config Config) *Driver {
	d := &Driver{
		regFile:      regFile,
		memory:       memory,
		decoder:      insts.NewDecoder(),
		syscall:      emu.NewDefaultSyscallHandler(regFile, memory, noInput{}, discardWriter{}),
		predictor:    pipeline.NewBranchPredictor(pipeline.DefaultBranchPredictorConfig()),
		rob:          NewROB(config.ROBCapacity),
		rat:          NewRAT(),
		config:       config,
		ratSnapshots: make(map[int]RATSnapshot),
	}
	for class := range d.banks {
		d.banks[class] = newStationBank(config.Stations[class])
	}
	return d
}

// SetSyscallHandler overrides the default handler, e.g. to attach
// real stdin/stdout.
func (d *Driver) SetSyscallHandler(h emu.SyscallHandler) { d.syscall = h }

// SetPredictor overrides the branch predictor, e.g. with
// pipeline.NewStaticPredictor() for a worst-case baseline.
func (d *Driver) SetPredictor(p pipeline.Predictor) { d.predictor = p }

// SetPC sets the fetch program counter, used to start execution at an
// entry point other than zero.
func (d *Driver) SetPC(pc uint32) { d.pc, d.fetchPC = pc, pc }

// PC returns the next-fetch program counter.
func (d *Driver) PC() uint32 { return d.fetchPC }

// Halted reports whether the engine has stopped (syscall exit or a
// fatal fault reached commit).
func (d *Driver) Halted() bool { return d.halted }

// ExitCode returns the program's exit status once Halted.
func (d *Driver) ExitCode() int32 { return d.exitCode }

// Fault returns the fatal fault that halted the engine, if any.
func (d *Driver) Fault() error { return d.fault }

// Stats returns the engine's cumulative counters.
func (d *Driver) Stats() Stats { return d.stats }

// PredictorStats returns the branch predictor's accumulated
// statistics, for reporting and tracing.
func (d *Driver) PredictorStats() pipeline.BranchPredictorStats {
	return d.predictor.Stats()
}

// Resume clears a non-fatal breakpoint halt so Tick can continue.
func (d *Driver) Resume() {
	if d.breakpoint {
		d.breakpoint, d.halted = false, false
	}
}

// Run ticks the engine until it halts, returning the exit code.
func (d *Driver) Run(ctx context.Context) int32 {
	for !d.halted {
		if ctx.Err() != nil {
			return d.exitCode
		}
		d.Tick()
	}
	return d.exitCode
}

// Tick advances the engine by one cycle through the spec's six-phase
// order: commit, writeback/CDB, execute, issue, dispatch, fetch.
func (d *Driver) Tick() {
	if d.halted {
		return
	}
	d.stats.Cycles++

	d.commit()
	broadcast := d.writeback()
	d.execute()
	d.issue()
	d.dispatch(broadcast)
}

// commit retires up to CommitWidth head ROB entries that are ready,
// applying their architectural effect in program order.
func (d *Driver) commit() {
	for i := 0; i < d.config.CommitWidth && !d.halted; i++ {
		head := d.rob.Head()
		if head == nil || !head.Ready {
			return
		}
		d.commitEntry(head)
		d.rob.CommitHead()
		d.stats.Instructions++
	}
}

func (d *Driver) commitEntry(e *ROBEntry) {
	if e.Exception != nil {
		d.raiseFault(e.Exception)
		return
	}
	switch {
	case e.IsBreak:
		d.raiseFault(&emu.Fault{Kind: emu.Breakpoint, PC: e.PC})
		return
	case e.IsSyscall:
		result, err := d.syscall.Handle()
		if err != nil {
			d.raiseFault(err)
			return
		}
		if result.Exited {
			d.halted, d.exitCode = true, result.ExitCode
			return
		}
	case e.MemWrite:
		if err := d.commitStore(e); err != nil {
			d.raiseFault(err)
			return
		}
	case e.WritesFCC:
		d.regFile.FCC = e.Value != 0
	case e.WritesHILO:
		d.regFile.LO, d.regFile.HI = e.Value, e.HiValue
	case e.HasDest && e.IsFPDest:
		d.regFile.WriteF(e.Dest, e.Value)
	case e.HasDest:
		d.regFile.Write(e.Dest, e.Value)
	}
	if e.HasDest && !e.IsFPDest {
		d.rat.ClearIfProducer(e.Dest, e.ROBID)
	}
	if e.WritesHILO {
		d.rat.ClearIfProducerHI(e.ROBID)
		d.rat.ClearIfProducerLO(e.ROBID)
	}
	if e.IsBranch && e.BranchMispredicted {
		d.squash(e)
	}
}

func (d *Driver) commitStore(e *ROBEntry) error {
	switch e.Inst.Op {
	case insts.OpSw:
		return d.memory.Write32(e.MemAddr, e.StoreValue)
	case insts.OpSh:
		return d.memory.Write16(e.MemAddr, uint16(e.StoreValue))
	case insts.OpSb:
		return d.memory.Write8(e.MemAddr, uint8(e.StoreValue))
	}
	return nil
}

func (d *Driver) raiseFault(err error) {
	d.fault = err
	if f, ok := err.(*emu.Fault); ok && !f.Kind.Fatal() {
		d.breakpoint = true
		d.halted = true
		return
	}
	d.halted = true
}

// squash rolls every structure back to the state it had right after
// the mispredicted branch dispatched, and redirects Fetch.
func (d *Driver) squash(branch *ROBEntry) {
	d.stats.Mispredicts++
	if snap, ok := d.ratSnapshots[branch.ROBID]; ok {
		d.rat.Restore(snap)
		delete(d.ratSnapshots, branch.ROBID)
	}
	for class := range d.banks {
		d.banks[class].squashNewerThan(d.rob, branch.ROBID)
	}
	d.rob.SquashNewerThan(branch.ROBID)
	d.fetchPC = branch.BranchTarget
}

// writeback arbitrates a single CDB slot among functional units whose
// execution just completed, in ROB order, and broadcasts the result
// to every listening reservation station and to the ROB entry itself.
// It returns the broadcast so dispatch can also resolve operands a
// newly dispatched instruction needs from the very same cycle.
func (d *Driver) writeback() cdbBroadcast {
	var winner cdbBroadcast
	winnerSet := false
	for class := range d.banks {
		bank := d.banks[class]
		for i := range bank.entries {
			e := &bank.entries[i]
			if !e.Busy || !e.Issued || e.CyclesLeft > 0 {
				continue
			}
			if !winnerSet || d.rob.InFlightBefore(e.ROBID, winner.robID) {
				winner = d.resultOf(class, i)
				winnerSet = true
			}
		}
	}
	if !winnerSet {
		return cdbBroadcast{}
	}
	d.applyBroadcast(winner)
	return winner
}

func (d *Driver) resultOf(class FunctionalUnitClass, idx int) cdbBroadcast {
	e := &d.banks[class].entries[idx]

	if class == FPAdd || class == FPMul {
		value, setsFCC := executeFP(e.Inst, e.Vj, e.Vk)
		b := cdbBroadcast{valid: true, robID: e.ROBID, value: value, writesFCC: setsFCC}
		d.banks[class].free(idx)
		return b
	}

	result := execute(e.Inst, e.PC, e.Vj, e.Vk, d.regFile.FCC)
	b := cdbBroadcast{valid: true, robID: e.ROBID, value: result.value, exception: result.err}
	if writesHILO(e.Inst) {
		b.writesHILO, b.hiValue = true, result.hi
	}

	entry := d.rob.Entry(e.ROBID)
	if class == LoadStore {
		if isStoreOp(e.Inst) {
			entry.MemAddr = result.value
			entry.StoreValue = e.Vk
		} else if isLoadOp(e.Inst) {
			v, err := d.readMemory(e.Inst, result.value)
			if err != nil {
				b.exception = err
			} else {
				b.value = v
			}
		}
	}
	if entry.IsBranch {
		mispredicted, target := d.resolveBranch(entry, result)
		b.isBranch, b.branchMispredicted, b.branchTarget = true, mispredicted, target
	}

	d.banks[class].free(idx)
	return b
}

func (d *Driver) resolveBranch(entry *ROBEntry, result execResult) (mispredicted bool, target uint32) {
	actualTarget := result.branchTarget
	if !result.branchTaken {
		actualTarget = entry.PC + 4
	}
	mispredicted = actualTarget != entry.BranchTarget
	return mispredicted, actualTarget
}

func (d *Driver) applyBroadcast(b cdbBroadcast) {
	entry := d.rob.Entry(b.robID)
	entry.Value = b.value
	entry.Ready = true
	entry.Exception = b.exception
	if b.writesHILO {
		entry.WritesHILO = true
		entry.HiValue = b.hiValue
	}
	if b.writesFCC {
		entry.WritesFCC = true
	}
	if b.isBranch {
		entry.BranchMispredicted = b.branchMispredicted
		entry.BranchTarget = b.branchTarget
		if b.branchMispredicted {
			// Branches redirect Fetch the instant they resolve, not at
			// commit, so independent work after the branch is not
			// fetched down the wrong path while it waits to retire.
			d.fetchPC = b.branchTarget
		}
	}
	for class := range d.banks {
		d.banks[class].captureBroadcast(b.robID, b.value, b.hiValue)
	}
}

// execute advances every issued, not-yet-complete reservation station
// by one cycle of latency.
func (d *Driver) execute() {
	for class := range d.banks {
		for i := range d.banks[class].entries {
			e := &d.banks[class].entries[i]
			if e.Busy && e.Issued && e.CyclesLeft > 0 {
				e.CyclesLeft--
			}
		}
	}
}

// issue selects, per functional-unit class, up to IssueWidth
// oldest-ready stations and starts their execution latency counting
// down.
func (d *Driver) issue() {
	for class := range d.banks {
		bank := d.banks[class]
		for _, idx := range bank.selectIssue(d.rob, d.config.IssueWidth[class]) {
			bank.entries[idx].Issued = true
			bank.entries[idx].CyclesLeft = d.config.Latency[class]
		}
	}
}

// dispatch fetches, decodes, and allocates ROB/RS entries for up to
// DispatchWidth instructions, reading ready operands from the
// register file or the RAT and, where an operand's producer just
// broadcast this very cycle, from cdb directly.
func (d *Driver) dispatch(cdb cdbBroadcast) {
	for i := 0; i < d.config.DispatchWidth; i++ {
		if d.halted || d.rob.Full() {
			return
		}
		word, err := d.memory.Read32(d.fetchPC)
		if err != nil {
			d.dispatchFault(err)
			return
		}
		inst, err := d.decoder.Decode(word)
		if err != nil {
			d.dispatchFault(err)
			return
		}
		pc := d.fetchPC

		class := classOf(inst)
		bank := d.banks[class]
		if bank.full() {
			return
		}

		dest, hasDest := destRegister(inst)
		fpDest := isFPDest(inst)

		var vj, vk uint32
		var qj, qk int
		qjWantsHI, qkWantsHI := false, false
		switch inst.Op {
		case insts.OpMfhi:
			vj, qj = d.resolveHI(cdb)
			qk = noProducer
			qjWantsHI = true
		case insts.OpMflo:
			vj, qj = d.resolveLO(cdb)
			qk = noProducer
		case insts.OpMthi:
			vj, qj = d.resolveOperand(inst.Rs, cdb)
			vk, qk = d.resolveLO(cdb)
		case insts.OpMtlo:
			vj, qj = d.resolveOperand(inst.Rs, cdb)
			vk, qk = d.resolveHI(cdb)
			qkWantsHI = true
		case insts.OpAddS, insts.OpSubS, insts.OpMulS, insts.OpDivS,
			insts.OpCeqS, insts.OpCltS, insts.OpCleS:
			// FP-R layout decodes ft into Rs, fs into Rt; both read the
			// F register file directly since it carries no RAT renaming.
			vj, qj = d.regFile.ReadF(inst.Rs), noProducer
			vk, qk = d.regFile.ReadF(inst.Rt), noProducer
		case insts.OpAbsS, insts.OpNegS, insts.OpMovS, insts.OpCvtSW, insts.OpCvtWS:
			qj = noProducer
			vk, qk = d.regFile.ReadF(inst.Rt), noProducer
		default:
			rs, rt := operandRegs(inst)
			vj, qj = d.resolveOperand(rs, cdb)
			vk, qk = d.resolveOperand(rt, cdb)
		}

		entry := ROBEntry{
			Inst: inst, PC: pc, Dest: dest, HasDest: hasDest,
			IsFPDest:   fpDest,
			WritesFCC:  writesFCC(inst),
			WritesHILO: writesHILO(inst),
			MemWrite:   isStoreOp(inst),
			IsSyscall:  inst.Op == insts.OpSyscall,
			IsBreak:    inst.Op == insts.OpBreak,
			IsBranch:   isBranchOp(inst),
		}
		prediction := d.predictor.Predict(pc)
		nextPC := pc + 4
		if entry.IsBranch {
			entry.BranchTarget = nextPC
			if prediction.Taken && prediction.TargetKnown {
				entry.BranchTarget = prediction.Target
			}
		}
		robID := d.rob.Allocate(entry)

		if hasDest && !fpDest {
			d.rat.SetProducer(dest, robID)
		}
		if entry.WritesHILO {
			d.rat.SetProducerHI(robID)
			d.rat.SetProducerLO(robID)
		}
		if entry.IsBranch {
			d.ratSnapshots[robID] = d.rat.Snapshot()
		}

		if _, ok := bank.allocate(inst, pc, robID, vj, vk, qj, qk, qjWantsHI, qkWantsHI); !ok {
			// Bank had a free slot per full() above but lost it to a
			// concurrent allocate within this same dispatch batch;
			// unwind the ROB reservation and stop dispatching this
			// cycle rather than leaving an RS-less ROB entry.
			d.rob.SquashNewerThan(robID - 1)
			return
		}

		if entry.IsBranch && !prediction.TargetKnown {
			// Unknown target (e.g. cold BTB entry): stall fetch at the
			// branch until it resolves rather than guess a target.
			d.fetchPC = pc + 4
			return
		}
		if entry.IsBranch && prediction.Taken && prediction.TargetKnown {
			d.fetchPC = prediction.Target
		} else {
			d.fetchPC = nextPC
		}
		if inst.Op == insts.OpJ || inst.Op == insts.OpJal {
			d.fetchPC = jumpTargetAddr(pc, inst.Target)
		}
	}
}

func (d *Driver) dispatchFault(err error) {
	d.fault = err
	d.halted = true
}

// resolveOperand reads register reg's value for a newly dispatched
// instruction: ready from the register file, ready from this very
// cycle's CDB broadcast, or pending on a producing ROB id.
func (d *Driver) resolveOperand(reg uint8, cdb cdbBroadcast) (value uint32, producer int) {
	alias := d.rat.Lookup(reg)
	if alias.Committed {
		return d.regFile.Read(reg), noProducer
	}
	if cdb.valid && cdb.robID == alias.ROBID {
		return cdb.value, noProducer
	}
	if entry := d.rob.Entry(alias.ROBID); entry.Ready {
		return entry.Value, noProducer
	}
	return 0, alias.ROBID
}

// resolveHI and resolveLO mirror resolveOperand for the two special
// registers, which have no architectural register number and so
// cannot go through the RAT's `[32]RATEntry` lookup or RegFile.Read.
func (d *Driver) resolveHI(cdb cdbBroadcast) (value uint32, producer int) {
	alias := d.rat.LookupHI()
	if alias.Committed {
		return d.regFile.HI, noProducer
	}
	if cdb.valid && cdb.robID == alias.ROBID && cdb.writesHILO {
		return cdb.hiValue, noProducer
	}
	if entry := d.rob.Entry(alias.ROBID); entry.Ready {
		return entry.HiValue, noProducer
	}
	return 0, alias.ROBID
}

func (d *Driver) resolveLO(cdb cdbBroadcast) (value uint32, producer int) {
	alias := d.rat.LookupLO()
	if alias.Committed {
		return d.regFile.LO, noProducer
	}
	if cdb.valid && cdb.robID == alias.ROBID && cdb.writesHILO {
		return cdb.value, noProducer
	}
	if entry := d.rob.Entry(alias.ROBID); entry.Ready {
		return entry.Value, noProducer
	}
	return 0, alias.ROBID
}

func isStoreOp(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpSw, insts.OpSh, insts.OpSb:
		return true
	default:
		return false
	}
}

func isLoadOp(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu:
		return true
	default:
		return false
	}
}

// readMemory mirrors timing/pipeline.Pipeline.readMemory's sign/zero
// extension by width. Lwc1 never reaches here: it has no GP
// destination (see destRegister) and is left unwired for the same
// reason timing/pipeline never sets MemRead for it.
func (d *Driver) readMemory(inst *insts.Instruction, addr uint32) (uint32, error) {
	switch inst.Op {
	case insts.OpLb:
		v, err := d.memory.Read8(addr)
		return uint32(int32(int8(v))), err
	case insts.OpLbu:
		v, err := d.memory.Read8(addr)
		return uint32(v), err
	case insts.OpLh:
		v, err := d.memory.Read16(addr)
		return uint32(int32(int16(v))), err
	case insts.OpLhu:
		v, err := d.memory.Read16(addr)
		return uint32(v), err
	default: // Lw
		return d.memory.Read32(addr)
	}
}

func isBranchOp(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpBeq, insts.OpBne, insts.OpBgtz, insts.OpBgez, insts.OpBltz, insts.OpBlez,
		insts.OpJ, insts.OpJal, insts.OpJr, insts.OpJalr, insts.OpBc1t, insts.OpBc1f:
		return true
	default:
		return false
	}
}

type noInput struct{}

func (noInput) Read(p []byte) (int, error) { return 0, nil }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
