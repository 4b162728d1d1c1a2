package ooo

import (
	"math"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/insts"
)

// classOf assigns an instruction to the functional-unit class that
// will execute it. add.s/sub.s and the rest of the simple FP family
// occupy FPAdd; mul.s/div.s occupy FPMul, mirroring their integer
// IntALU/IntMul split.
func classOf(inst *insts.Instruction) FunctionalUnitClass {
	switch inst.Op {
	case insts.OpMult, insts.OpMultu, insts.OpDiv, insts.OpDivu:
		return IntMul
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu,
		insts.OpSw, insts.OpSh, insts.OpSb, insts.OpLwc1, insts.OpSwc1:
		return LoadStore
	case insts.OpMulS, insts.OpDivS:
		return FPMul
	case insts.OpAddS, insts.OpSubS, insts.OpAbsS, insts.OpNegS, insts.OpMovS,
		insts.OpCvtSW, insts.OpCvtWS, insts.OpCeqS, insts.OpCltS, insts.OpCleS:
		return FPAdd
	default:
		return IntALU
	}
}

// operandRegs returns the architectural source registers this
// instruction reads, mirroring timing/pipeline's decodeControl but
// kept as this package's own copy since the two engines are
// independently instantiable. mfhi/mflo/mthi/mtlo read HI/LO instead
// of (or in addition to) a GPR, and the coprocessor-1 arithmetic/
// compare family reads F registers instead of GPRs — both are
// resolved separately in Driver.dispatch, so neither ever reaches
// here.
func operandRegs(inst *insts.Instruction) (rs, rt uint8) {
	switch inst.Op {
	case insts.OpSllv, insts.OpSrlv, insts.OpSrav:
		return inst.Rt, inst.Rs
	case insts.OpSll, insts.OpSrl, insts.OpSra:
		return inst.Rt, 0
	case insts.OpAddi, insts.OpAddiu, insts.OpAndi, insts.OpOri, insts.OpXori,
		insts.OpSlti, insts.OpSltiu, insts.OpLw, insts.OpLh, insts.OpLhu,
		insts.OpLb, insts.OpLbu, insts.OpBgtz, insts.OpBgez, insts.OpBltz,
		insts.OpBlez, insts.OpJr, insts.OpLwc1, insts.OpSwc1:
		return inst.Rs, 0
	case insts.OpLui, insts.OpJ, insts.OpJal, insts.OpSyscall, insts.OpBreak,
		insts.OpNop, insts.OpBc1t, insts.OpBc1f:
		return 0, 0
	case insts.OpJalr:
		return inst.Rs, 0
	default:
		return inst.Rs, inst.Rt
	}
}

// destRegister reports the architectural destination this
// instruction writes, if any.
func destRegister(inst *insts.Instruction) (dest uint8, hasDest bool) {
	switch inst.Op {
	case insts.OpAdd, insts.OpAddu, insts.OpSub, insts.OpSubu,
		insts.OpAnd, insts.OpOr, insts.OpXor, insts.OpNor, insts.OpSlt, insts.OpSltu,
		insts.OpSllv, insts.OpSrlv, insts.OpSrav, insts.OpSll, insts.OpSrl, insts.OpSra,
		insts.OpMfhi, insts.OpMflo:
		return inst.Rd, true
	case insts.OpAddi, insts.OpAddiu, insts.OpAndi, insts.OpOri, insts.OpXori,
		insts.OpSlti, insts.OpSltiu, insts.OpLui,
		insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu:
		return inst.Rt, true
	case insts.OpJal:
		return 31, true
	case insts.OpJalr:
		return inst.Rd, true
	case insts.OpAddS, insts.OpSubS, insts.OpMulS, insts.OpDivS, insts.OpAbsS,
		insts.OpNegS, insts.OpMovS, insts.OpCvtSW, insts.OpCvtWS:
		return inst.Rd, true
	default:
		return 0, false
	}
}

// isFPDest reports whether destRegister's Dest for inst names an F
// register rather than a GPR, so commit can route the write through
// RegFile.WriteF and dispatch can skip the integer RAT for it.
func isFPDest(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpAddS, insts.OpSubS, insts.OpMulS, insts.OpDivS, insts.OpAbsS,
		insts.OpNegS, insts.OpMovS, insts.OpCvtSW, insts.OpCvtWS:
		return true
	default:
		return false
	}
}

// writesFCC reports whether inst's result is the floating-point
// condition code rather than a register.
func writesFCC(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpCeqS, insts.OpCltS, insts.OpCleS:
		return true
	default:
		return false
	}
}

// writesHILO reports whether this instruction's result goes into
// HI/LO rather than a general-purpose register. Mthi/Mtlo write only
// one half architecturally, but execute still produces both halves
// (passing the untouched half through unchanged) so commit can apply
// them the same way it does mult/div's full pair.
func writesHILO(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpMult, insts.OpMultu, insts.OpDiv, insts.OpDivu, insts.OpMthi, insts.OpMtlo:
		return true
	default:
		return false
	}
}

// execResult mirrors timing/pipeline's executeResult: the computed
// value, resolved branch outcome, and any fault, for one instruction
// given its forwarded operand values.
type execResult struct {
	value, hi  uint32
	branchTaken  bool
	branchTarget uint32
	err          error
}

// execute evaluates inst's arithmetic/logic/branch/jump effect. It is
// this package's own copy of timing/pipeline.executeALU's dispatch
// table, since that function is unexported and the two engines must
// remain independently buildable.
func execute(inst *insts.Instruction, pc, rsVal, rtVal uint32, fcc bool) execResult {
	switch inst.Op {
	case insts.OpAdd:
		v, over := addOverflows(int32(rsVal), int32(rtVal))
		if over {
			return execResult{err: &emu.Fault{Kind: emu.ArithmeticOverflow, PC: pc}}
		}
		return execResult{value: uint32(v)}
	case insts.OpAddu:
		return execResult{value: rsVal + rtVal}
	case insts.OpSub:
		v, over := subOverflows(int32(rsVal), int32(rtVal))
		if over {
			return execResult{err: &emu.Fault{Kind: emu.ArithmeticOverflow, PC: pc}}
		}
		return execResult{value: uint32(v)}
	case insts.OpSubu:
		return execResult{value: rsVal - rtVal}
	case insts.OpAnd:
		return execResult{value: rsVal & rtVal}
	case insts.OpOr:
		return execResult{value: rsVal | rtVal}
	case insts.OpXor:
		return execResult{value: rsVal ^ rtVal}
	case insts.OpNor:
		return execResult{value: ^(rsVal | rtVal)}
	case insts.OpSlt:
		return execResult{value: boolToWord(int32(rsVal) < int32(rtVal))}
	case insts.OpSltu:
		return execResult{value: boolToWord(rsVal < rtVal)}
	case insts.OpSll:
		return execResult{value: rsVal << (inst.Shamt & 0x1F)}
	case insts.OpSrl:
		return execResult{value: rsVal >> (inst.Shamt & 0x1F)}
	case insts.OpSra:
		return execResult{value: uint32(int32(rsVal) >> (inst.Shamt & 0x1F))}
	case insts.OpSllv:
		return execResult{value: rtVal << (rsVal & 0x1F)}
	case insts.OpSrlv:
		return execResult{value: rtVal >> (rsVal & 0x1F)}
	case insts.OpSrav:
		return execResult{value: uint32(int32(rtVal) >> (rsVal & 0x1F))}
	case insts.OpAddi:
		v, over := addOverflows(int32(rsVal), int32(inst.Imm))
		if over {
			return execResult{err: &emu.Fault{Kind: emu.ArithmeticOverflow, PC: pc}}
		}
		return execResult{value: uint32(v)}
	case insts.OpAddiu:
		return execResult{value: rsVal + inst.Imm}
	case insts.OpAndi:
		return execResult{value: rsVal & inst.Imm}
	case insts.OpOri:
		return execResult{value: rsVal | inst.Imm}
	case insts.OpXori:
		return execResult{value: rsVal ^ inst.Imm}
	case insts.OpSlti:
		return execResult{value: boolToWord(int32(rsVal) < int32(inst.Imm))}
	case insts.OpSltiu:
		return execResult{value: boolToWord(rsVal < inst.Imm)}
	case insts.OpLui:
		return execResult{value: inst.Imm << 16}
	case insts.OpMult:
		p := int64(int32(rsVal)) * int64(int32(rtVal))
		return execResult{hi: uint32(p >> 32), value: uint32(p)}
	case insts.OpMultu:
		p := uint64(rsVal) * uint64(rtVal)
		return execResult{hi: uint32(p >> 32), value: uint32(p)}
	case insts.OpDiv:
		if int32(rtVal) == 0 {
			return execResult{err: &emu.Fault{Kind: emu.DivisionByZero, PC: pc}}
		}
		return execResult{value: uint32(int32(rsVal) / int32(rtVal)), hi: uint32(int32(rsVal) % int32(rtVal))}
	case insts.OpDivu:
		if rtVal == 0 {
			return execResult{err: &emu.Fault{Kind: emu.DivisionByZero, PC: pc}}
		}
		return execResult{value: rsVal / rtVal, hi: rsVal % rtVal}
	case insts.OpMfhi, insts.OpMflo:
		return execResult{value: rsVal}
	case insts.OpMthi:
		return execResult{hi: rsVal, value: rtVal}
	case insts.OpMtlo:
		return execResult{hi: rtVal, value: rsVal}
	case insts.OpLw, insts.OpLh, insts.OpLhu, insts.OpLb, insts.OpLbu,
		insts.OpSw, insts.OpSh, insts.OpSb, insts.OpLwc1, insts.OpSwc1:
		return execResult{value: rsVal + inst.Imm}
	case insts.OpBeq:
		return execResult{branchTaken: rsVal == rtVal, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpBne:
		return execResult{branchTaken: rsVal != rtVal, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpBlez:
		return execResult{branchTaken: int32(rsVal) <= 0, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpBgtz:
		return execResult{branchTaken: int32(rsVal) > 0, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpBltz:
		return execResult{branchTaken: int32(rsVal) < 0, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpBgez:
		return execResult{branchTaken: int32(rsVal) >= 0, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpBc1t:
		return execResult{branchTaken: fcc, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpBc1f:
		return execResult{branchTaken: !fcc, branchTarget: branchTargetAddr(pc, inst.Imm)}
	case insts.OpJ:
		return execResult{branchTaken: true, branchTarget: jumpTargetAddr(pc, inst.Target)}
	case insts.OpJal:
		return execResult{value: pc + 4, branchTaken: true, branchTarget: jumpTargetAddr(pc, inst.Target)}
	case insts.OpJr:
		return execResult{branchTaken: true, branchTarget: rsVal}
	case insts.OpJalr:
		return execResult{value: pc + 4, branchTaken: true, branchTarget: rsVal}
	default:
		return execResult{}
	}
}

// executeFP evaluates a coprocessor-1 arithmetic/compare instruction
// purely from its two F-register bit-pattern operands, mirroring
// emu.FPUnit's per-op semantics without touching a register file
// directly — the result only reaches RegFile.F/FCC through
// Driver.commitEntry, so a squashed speculative FP op never corrupts
// architectural state. FP-R layout decodes ft into Rs, fs into Rt, fd
// into Rd, so ftBits is Vj and fsBits is Vk wherever Driver.dispatch
// reads them.
func executeFP(inst *insts.Instruction, ftBits, fsBits uint32) (value uint32, setsFCC bool) {
	ft := math.Float32frombits(ftBits)
	fs := math.Float32frombits(fsBits)
	switch inst.Op {
	case insts.OpAddS:
		return math.Float32bits(fs + ft), false
	case insts.OpSubS:
		return math.Float32bits(fs - ft), false
	case insts.OpMulS:
		return math.Float32bits(fs * ft), false
	case insts.OpDivS:
		return math.Float32bits(fs / ft), false
	case insts.OpAbsS:
		if fs < 0 {
			fs = -fs
		}
		return math.Float32bits(fs), false
	case insts.OpNegS:
		return math.Float32bits(-fs), false
	case insts.OpMovS:
		return fsBits, false
	case insts.OpCvtSW:
		return math.Float32bits(float32(int32(fsBits))), false
	case insts.OpCvtWS:
		return uint32(int32(fs)), false
	case insts.OpCeqS:
		return boolToWord(fs == ft), true
	case insts.OpCltS:
		return boolToWord(fs < ft), true
	case insts.OpCleS:
		return boolToWord(fs <= ft), true
	default:
		return 0, false
	}
}

func branchTargetAddr(pc, offset uint32) uint32 {
	return pc + 4 + (offset << 2)
}

func jumpTargetAddr(pc, target uint32) uint32 {
	return ((pc + 4) & 0xF0000000) | (target & 0x0FFFFFFF)
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func addOverflows(a, b int32) (int32, bool) {
	r := a + b
	return r, (a >= 0 && b >= 0 && r < 0) || (a < 0 && b < 0 && r >= 0)
}

func subOverflows(a, b int32) (int32, bool) {
	r := a - b
	return r, (a >= 0 && b < 0 && r < 0) || (a < 0 && b >= 0 && r >= 0)
}
