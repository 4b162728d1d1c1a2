package insts

import "fmt"

// Disassemble renders i as a short assembly-like mnemonic, e.g.
// "addiu $4, $0, 10" or "beq $2, $3, 8". It is meant for traces and
// debugging output, not as a faithful GNU-as-compatible disassembler:
// registers are printed by number, and pseudo-forms (movz/nop) are not
// collapsed back from their underlying encoding.
func (i *Instruction) Disassemble() string {
	switch i.Family {
	case FamilyR:
		if i.Op == OpSll || i.Op == OpSrl || i.Op == OpSra {
			return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rd, i.Rt, i.Shamt)
		}
		if i.Op == OpMfhi || i.Op == OpMflo {
			return fmt.Sprintf("%s $%d", i.Op, i.Rd)
		}
		if i.Op == OpMthi || i.Op == OpMtlo {
			return fmt.Sprintf("%s $%d", i.Op, i.Rs)
		}
		if i.Op == OpMult || i.Op == OpMultu || i.Op == OpDiv || i.Op == OpDivu {
			return fmt.Sprintf("%s $%d, $%d", i.Op, i.Rs, i.Rt)
		}
		if i.Op == OpJr {
			return fmt.Sprintf("%s $%d", i.Op, i.Rs)
		}
		if i.Op == OpJalr {
			return fmt.Sprintf("%s $%d, $%d", i.Op, i.Rd, i.Rs)
		}
		return fmt.Sprintf("%s $%d, $%d, $%d", i.Op, i.Rd, i.Rs, i.Rt)
	case FamilyI:
		switch i.Op {
		case OpLui:
			return fmt.Sprintf("%s $%d, %d", i.Op, i.Rt, int32(i.Imm))
		case OpBeq, OpBne:
			return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rs, i.Rt, int32(i.Imm))
		case OpBgtz, OpBgez, OpBltz, OpBlez:
			return fmt.Sprintf("%s $%d, %d", i.Op, i.Rs, int32(i.Imm))
		case OpLw, OpLh, OpLhu, OpLb, OpLbu, OpLwc1:
			return fmt.Sprintf("%s $%d, %d($%d)", i.Op, i.Rt, int32(i.Imm), i.Rs)
		case OpSw, OpSh, OpSb, OpSwc1:
			return fmt.Sprintf("%s $%d, %d($%d)", i.Op, i.Rt, int32(i.Imm), i.Rs)
		default:
			return fmt.Sprintf("%s $%d, $%d, %d", i.Op, i.Rt, i.Rs, int32(i.Imm))
		}
	case FamilyJ:
		return fmt.Sprintf("%s 0x%x", i.Op, i.Target)
	case FamilyFPR, FamilyFPBranch, FamilyFPMem:
		return i.Op.String()
	case FamilySyscall:
		return i.Op.String()
	default:
		return "nop"
	}
}
