package ooo

import "github.com/archsim/mips32/insts"

// noProducer marks a reservation-station operand as already resolved
// (Qj/Qk has no pending producer), distinguishing a ready operand from
// one waiting on ROB id 0, which is itself a valid ROB slot.
const noProducer = -1

// ROBEntry is one slot of the reorder buffer: `{ rob_id, instr,
// dest_arch_reg, value, ready, exception, pc }`.
type ROBEntry struct {
	Busy bool

	ROBID   int
	Inst    *insts.Instruction
	PC      uint32
	Dest    uint8
	HasDest bool

	// IsFPDest marks Dest as an F register rather than a GPR: commit
	// writes it through RegFile.WriteF instead of Write, and dispatch
	// never registers it with the integer RAT (F registers carry no
	// renaming in this engine, matching timing/pipeline).
	IsFPDest bool

	// WritesFCC marks a floating-point compare result: Value (0 or 1)
	// becomes the new FCC bit at commit instead of a GPR/F write.
	WritesFCC bool

	// WritesHILO marks a mult/div result: Value holds LO, HiValue
	// holds HI, and commit writes both special registers instead of
	// Dest.
	WritesHILO bool
	HiValue    uint32

	// MemWrite/MemAddr/StoreValue carry a store through to commit,
	// where the architectural write actually happens.
	MemWrite   bool
	MemAddr    uint32
	StoreValue uint32

	// IsBranch/BranchMispredicted/BranchTarget record a resolved
	// branch outcome for the squash-on-commit flush path, even though
	// branches actually redirect Fetch as soon as they resolve in
	// Execute (see Driver.writeback).
	IsBranch           bool
	BranchMispredicted bool
	BranchTarget       uint32

	IsSyscall bool
	IsBreak   bool

	Value     uint32
	Ready     bool
	Exception error
}

// rsEntry is one reservation station slot: `{ busy, op, Vj, Vk, Qj,
// Qk, dest_rob_id, address }`.
type rsEntry struct {
	Busy bool

	Inst  *insts.Instruction
	PC    uint32
	ROBID int

	Vj, Vk uint32
	Qj, Qk int // noProducer when the operand is already resolved

	// QjWantsHI/QkWantsHI mark a pending operand as waiting on its
	// producer's HI half rather than its general result/LO half — set
	// for mfhi's Qj and mtlo's Qk (the untouched-HI passthrough).
	QjWantsHI, QkWantsHI bool

	// Issued marks a station that has already been handed to its
	// functional unit, so the issue phase does not pick it again while
	// it is executing.
	Issued       bool
	CyclesLeft   int
	address      uint32
	addressKnown bool
}

// cdbBroadcast is the single-slot Common Data Bus message a
// functional unit posts at Writeback: `(rob_id, value)`, plus the
// auxiliary fields mult/div and loads need to also publish.
type cdbBroadcast struct {
	valid bool

	robID int
	value uint32

	writesHILO bool
	hiValue    uint32

	writesFCC bool

	isBranch           bool
	branchMispredicted bool
	branchTarget       uint32

	exception error
}
