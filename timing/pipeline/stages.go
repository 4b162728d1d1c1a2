package pipeline

import (
	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/insts"
)

// control holds the signals Decode derives from an instruction's Op,
// independent of any runtime register values.
type control struct {
	rs, rt     uint8
	dest       uint8
	regWrite   bool
	memRead    bool
	memWrite   bool
	memToReg   bool
	isBranch   bool
	isJump     bool
	isSyscall  bool
	isBreak    bool
	writesHILO bool
}

// decodeControl derives Decode's control signals from the opcode.
// Register 0 as a destination is harmless since RegFile silently
// discards writes to it, so RAW-hazard checks skip it uniformly.
func decodeControl(inst *insts.Instruction) control {
	c := control{rs: inst.Rs, rt: inst.Rt}

	switch inst.Op {
	case insts.OpAdd, insts.OpAddu, insts.OpSub, insts.OpSubu,
		insts.OpAnd, insts.OpOr, insts.OpXor, insts.OpNor,
		insts.OpSlt, insts.OpSltu:
		c.dest, c.regWrite = inst.Rd, true
	case insts.OpSllv, insts.OpSrlv, insts.OpSrav:
		c.dest, c.regWrite = inst.Rd, true
		c.rs, c.rt = inst.Rt, inst.Rs // shift amount comes from rs, shiftee from rt
	case insts.OpSll, insts.OpSrl, insts.OpSra:
		c.dest, c.regWrite = inst.Rd, true
		c.rs, c.rt = inst.Rt, 0
	case insts.OpAddi, insts.OpAddiu, insts.OpAndi, insts.OpOri,
		insts.OpXori, insts.OpSlti, insts.OpSltiu:
		c.dest, c.regWrite = inst.Rt, true
		c.rt = 0
	case insts.OpLui:
		c.dest, c.regWrite = inst.Rt, true
		c.rs, c.rt = 0, 0
	case insts.OpMult, insts.OpMultu, insts.OpDiv, insts.OpDivu:
		c.writesHILO = true
	case insts.OpMfhi, insts.OpMflo:
		c.dest, c.regWrite = inst.Rd, true
		c.rs, c.rt = 0, 0
	case insts.OpMthi, insts.OpMtlo:
		c.writesHILO = true
		c.rt = 0
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu:
		c.dest, c.regWrite, c.memRead, c.memToReg = inst.Rt, true, true, true
		c.rt = 0
	case insts.OpSw, insts.OpSh, insts.OpSb:
		c.memWrite = true // rt carries the store value
	case insts.OpLwc1, insts.OpSwc1:
		c.rt = 0 // FP register traffic, no GP hazard tracking
	case insts.OpAddS, insts.OpSubS, insts.OpMulS, insts.OpDivS, insts.OpAbsS, insts.OpNegS, insts.OpMovS,
		insts.OpCvtSW, insts.OpCvtWS, insts.OpCeqS, insts.OpCltS, insts.OpCleS:
		c.rs, c.rt = 0, 0 // FP register traffic, no GP hazard tracking
	case insts.OpBeq, insts.OpBne:
		c.isBranch = true
	case insts.OpBgtz, insts.OpBgez, insts.OpBltz, insts.OpBlez:
		c.isBranch = true
		c.rt = 0
	case insts.OpBc1t, insts.OpBc1f:
		c.isBranch = true
		c.rs, c.rt = 0, 0
	case insts.OpJ:
		c.isJump = true
		c.rs, c.rt = 0, 0
	case insts.OpJal:
		c.isJump, c.dest, c.regWrite = true, 31, true
		c.rs, c.rt = 0, 0
	case insts.OpJr:
		c.isJump = true
		c.rt = 0
	case insts.OpJalr:
		c.isJump, c.dest, c.regWrite = true, inst.Rd, true
		c.rt = 0
	case insts.OpSyscall:
		c.isSyscall = true
		c.rs, c.rt = 0, 0
	case insts.OpBreak:
		c.isBreak = true
		c.rs, c.rt = 0, 0
	case insts.OpNop:
		c.rs, c.rt = 0, 0
	}
	return c
}

// accessSize returns the byte width of a load/store instruction's
// memory access.
func accessSize(inst *insts.Instruction) int {
	if inst == nil {
		return 4
	}
	switch inst.Op {
	case insts.OpLh, insts.OpLhu, insts.OpSh:
		return 2
	case insts.OpLb, insts.OpLbu, insts.OpSb:
		return 1
	default:
		return 4
	}
}

// executeResult is what the Execute stage produces for one
// instruction: the integer result (ALU value, effective address, or
// jump/branch target), the resolved branch outcome, and any fault.
type executeResult struct {
	value        uint32
	branchTaken  bool
	branchTarget uint32
	hi, lo       uint32
	writesHILO   bool
	err          error
}

// executeALU evaluates the instruction's arithmetic/logic/shift/
// branch/jump effect from its already-forwarded operand values. It
// never touches the register file directly: results are committed at
// Writeback so a later-discovered fault or flush can still squash
// them. hiVal/loVal are HI/LO's already-forwarded current contents,
// needed by mfhi/mflo/mthi/mtlo the same way rsVal/rtVal serve the
// general-purpose ops.
func executeALU(inst *insts.Instruction, pc, rsVal, rtVal, hiVal, loVal uint32, fcc bool) executeResult {
	switch inst.Op {
	case insts.OpBc1t:
		return executeResult{branchTaken: fcc, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpBc1f:
		return executeResult{branchTaken: !fcc, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpAdd:
		v, over := addOverflows32(int32(rsVal), int32(rtVal))
		if over {
			return executeResult{err: &emu.Fault{Kind: emu.ArithmeticOverflow, PC: pc}}
		}
		return executeResult{value: uint32(v)}
	case insts.OpAddu:
		return executeResult{value: rsVal + rtVal}
	case insts.OpSub:
		v, over := subOverflows32(int32(rsVal), int32(rtVal))
		if over {
			return executeResult{err: &emu.Fault{Kind: emu.ArithmeticOverflow, PC: pc}}
		}
		return executeResult{value: uint32(v)}
	case insts.OpSubu:
		return executeResult{value: rsVal - rtVal}
	case insts.OpAnd:
		return executeResult{value: rsVal & rtVal}
	case insts.OpOr:
		return executeResult{value: rsVal | rtVal}
	case insts.OpXor:
		return executeResult{value: rsVal ^ rtVal}
	case insts.OpNor:
		return executeResult{value: ^(rsVal | rtVal)}
	case insts.OpSlt:
		return executeResult{value: boolToWord(int32(rsVal) < int32(rtVal))}
	case insts.OpSltu:
		return executeResult{value: boolToWord(rsVal < rtVal)}
	case insts.OpSll:
		return executeResult{value: rsVal << (inst.Shamt & 0x1F)}
	case insts.OpSrl:
		return executeResult{value: rsVal >> (inst.Shamt & 0x1F)}
	case insts.OpSra:
		return executeResult{value: uint32(int32(rsVal) >> (inst.Shamt & 0x1F))}
	case insts.OpSllv:
		return executeResult{value: rtVal << (rsVal & 0x1F)}
	case insts.OpSrlv:
		return executeResult{value: rtVal >> (rsVal & 0x1F)}
	case insts.OpSrav:
		return executeResult{value: uint32(int32(rtVal) >> (rsVal & 0x1F))}
	case insts.OpAddi:
		v, over := addOverflows32(int32(rsVal), int32(inst.Imm))
		if over {
			return executeResult{err: &emu.Fault{Kind: emu.ArithmeticOverflow, PC: pc}}
		}
		return executeResult{value: uint32(v)}
	case insts.OpAddiu:
		return executeResult{value: rsVal + inst.Imm}
	case insts.OpAndi:
		return executeResult{value: rsVal & inst.Imm}
	case insts.OpOri:
		return executeResult{value: rsVal | inst.Imm}
	case insts.OpXori:
		return executeResult{value: rsVal ^ inst.Imm}
	case insts.OpSlti:
		return executeResult{value: boolToWord(int32(rsVal) < int32(inst.Imm))}
	case insts.OpSltiu:
		return executeResult{value: boolToWord(rsVal < inst.Imm)}
	case insts.OpLui:
		return executeResult{value: inst.Imm << 16}
	case insts.OpMult:
		p := int64(int32(rsVal)) * int64(int32(rtVal))
		return executeResult{hi: uint32(p >> 32), lo: uint32(p), writesHILO: true}
	case insts.OpMultu:
		p := uint64(rsVal) * uint64(rtVal)
		return executeResult{hi: uint32(p >> 32), lo: uint32(p), writesHILO: true}
	case insts.OpDiv:
		if int32(rtVal) == 0 {
			return executeResult{err: &emu.Fault{Kind: emu.DivisionByZero, PC: pc}}
		}
		return executeResult{lo: uint32(int32(rsVal) / int32(rtVal)), hi: uint32(int32(rsVal) % int32(rtVal)), writesHILO: true}
	case insts.OpDivu:
		if rtVal == 0 {
			return executeResult{err: &emu.Fault{Kind: emu.DivisionByZero, PC: pc}}
		}
		return executeResult{lo: rsVal / rtVal, hi: rsVal % rtVal, writesHILO: true}
	case insts.OpMfhi:
		return executeResult{value: hiVal}
	case insts.OpMflo:
		return executeResult{value: loVal}
	case insts.OpMthi:
		return executeResult{hi: rsVal, lo: loVal, writesHILO: true}
	case insts.OpMtlo:
		return executeResult{hi: hiVal, lo: rsVal, writesHILO: true}
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu,
		insts.OpSw, insts.OpSh, insts.OpSb, insts.OpLwc1, insts.OpSwc1:
		return executeResult{value: rsVal + inst.Imm}
	case insts.OpBeq:
		return executeResult{branchTaken: rsVal == rtVal, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpBne:
		return executeResult{branchTaken: rsVal != rtVal, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpBlez:
		return executeResult{branchTaken: int32(rsVal) <= 0, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpBgtz:
		return executeResult{branchTaken: int32(rsVal) > 0, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpBltz:
		return executeResult{branchTaken: int32(rsVal) < 0, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpBgez:
		return executeResult{branchTaken: int32(rsVal) >= 0, branchTarget: branchTarget(pc, inst.Imm)}
	case insts.OpJ:
		return executeResult{branchTaken: true, branchTarget: jumpTarget(pc, inst.Target)}
	case insts.OpJal:
		return executeResult{value: pc + 4, branchTaken: true, branchTarget: jumpTarget(pc, inst.Target)}
	case insts.OpJr:
		return executeResult{branchTaken: true, branchTarget: rsVal}
	case insts.OpJalr:
		return executeResult{value: pc + 4, branchTaken: true, branchTarget: rsVal}
	default:
		return executeResult{}
	}
}

func branchTarget(pc, offset uint32) uint32 {
	return pc + 4 + (offset << 2)
}

func jumpTarget(pc, target uint32) uint32 {
	return ((pc + 4) & 0xF0000000) | (target & 0x0FFFFFFF)
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func addOverflows32(a, b int32) (int32, bool) {
	r := a + b
	return r, (a >= 0 && b >= 0 && r < 0) || (a < 0 && b < 0 && r >= 0)
}

func subOverflows32(a, b int32) (int32, bool) {
	r := a - b
	return r, (a >= 0 && b < 0 && r < 0) || (a < 0 && b >= 0 && r >= 0)
}
