// Package emu provides functional MIPS32 emulation.
package emu

// BranchUnit implements MIPS32 branch and jump operations. There is
// no branch delay slot: a taken branch or jump redirects fetch to its
// target on the following cycle, matching the simplification the rest
// of this simulator's pipeline and out-of-order models assume.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given
// register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// branchTarget computes a PC-relative target: the instruction's own
// address plus 4 plus the word offset scaled to bytes.
func branchTarget(pc uint32, offset uint32) uint32 {
	return pc + 4 + (offset << 2)
}

// Beq branches to pc-relative target if rs == rt.
func (b *BranchUnit) Beq(pc uint32, rs, rt uint8, offset uint32) bool {
	if b.regFile.Read(rs) == b.regFile.Read(rt) {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// Bne branches to pc-relative target if rs != rt.
func (b *BranchUnit) Bne(pc uint32, rs, rt uint8, offset uint32) bool {
	if b.regFile.Read(rs) != b.regFile.Read(rt) {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// Blez branches to pc-relative target if rs <= 0 (signed).
func (b *BranchUnit) Blez(pc uint32, rs uint8, offset uint32) bool {
	if int32(b.regFile.Read(rs)) <= 0 {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// Bgtz branches to pc-relative target if rs > 0 (signed).
func (b *BranchUnit) Bgtz(pc uint32, rs uint8, offset uint32) bool {
	if int32(b.regFile.Read(rs)) > 0 {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// Bltz branches to pc-relative target if rs < 0 (signed).
func (b *BranchUnit) Bltz(pc uint32, rs uint8, offset uint32) bool {
	if int32(b.regFile.Read(rs)) < 0 {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// Bgez branches to pc-relative target if rs >= 0 (signed).
func (b *BranchUnit) Bgez(pc uint32, rs uint8, offset uint32) bool {
	if int32(b.regFile.Read(rs)) >= 0 {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// Bc1t branches to pc-relative target if the floating-point
// condition code is set.
func (b *BranchUnit) Bc1t(pc uint32, offset uint32) bool {
	if b.regFile.FCC {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// Bc1f branches to pc-relative target if the floating-point
// condition code is clear.
func (b *BranchUnit) Bc1f(pc uint32, offset uint32) bool {
	if !b.regFile.FCC {
		b.regFile.PC = branchTarget(pc, offset)
		return true
	}
	return false
}

// J performs an unconditional jump to an absolute target formed from
// the instruction's own page and the 26-bit target field.
func (b *BranchUnit) J(pc uint32, target uint32) {
	b.regFile.PC = jumpTarget(pc, target)
}

// Jal performs a jump with link: saves the return address (pc+4) to
// $ra (register 31), then jumps like J.
func (b *BranchUnit) Jal(pc uint32, target uint32) {
	b.regFile.Write(31, pc+4)
	b.regFile.PC = jumpTarget(pc, target)
}

// Jr jumps to the address held in rs. The target must be word
// aligned; a misaligned target raises InvalidBranchTarget.
func (b *BranchUnit) Jr(rs uint8) error {
	target := b.regFile.Read(rs)
	if target%4 != 0 {
		return &Fault{Kind: InvalidBranchTarget, Target: target}
	}
	b.regFile.PC = target
	return nil
}

// Jalr jumps to the address held in rs and saves the return address
// (pc+4) into rd. The target must be word aligned.
func (b *BranchUnit) Jalr(pc uint32, rd, rs uint8) error {
	target := b.regFile.Read(rs)
	if target%4 != 0 {
		return &Fault{Kind: InvalidBranchTarget, Target: target}
	}
	b.regFile.Write(rd, pc+4)
	b.regFile.PC = target
	return nil
}

// jumpTarget combines the top 4 bits of pc+4 with the instruction's
// 26-bit target field (already shifted left by 2 at decode time).
func jumpTarget(pc uint32, target uint32) uint32 {
	return ((pc + 4) & 0xF0000000) | (target & 0x0FFFFFFF)
}
