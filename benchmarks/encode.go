// Package benchmarks cross-checks the functional emulator, the
// in-order pipeline, and the out-of-order driver against a handful of
// hand-assembled MIPS32 programs — the loop-sum, factorial, and
// dot-product scenarios named in the spec's testable-properties
// section. There is no assembler in scope for this project, so
// programs are built directly as instruction words with the small
// encoder below.
package benchmarks

// encodeR assembles an R-type word: opcode 0, rs/rt/rd/shamt/funct.
func encodeR(rs, rt, rd, shamt, funct uint32) uint32 {
	return (rs&0x1F)<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 | (shamt&0x1F)<<6 | (funct & 0x3F)
}

// encodeI assembles an I-type word: opcode, rs, rt, 16-bit immediate.
func encodeI(opcode, rs, rt, imm uint32) uint32 {
	return (opcode&0x3F)<<26 | (rs&0x1F)<<21 | (rt&0x1F)<<16 | (imm & 0xFFFF)
}

// encodeJ assembles a J-type word: opcode, 26-bit target (already
// shifted right by 2, i.e. in instruction-word units).
func encodeJ(opcode, target uint32) uint32 {
	return (opcode&0x3F)<<26 | (target & 0x03FFFFFF)
}

// Register mnemonics used by the hand-assembled programs below,
// matching the standard MIPS32 calling-convention names.
const (
	zero = 0
	v0   = 2
	a0   = 4
	t0   = 8
	t1   = 9
	t2   = 10
	t3   = 11
	t4   = 12
	s0   = 16
)

func addiu(rt, rs, imm uint32) uint32 { return encodeI(0x09, rs, rt, imm) }
func addi(rt, rs, imm uint32) uint32  { return encodeI(0x08, rs, rt, imm) }
func add(rd, rs, rt uint32) uint32    { return encodeR(rs, rt, rd, 0, 0x20) }
func sub(rd, rs, rt uint32) uint32    { return encodeR(rs, rt, rd, 0, 0x22) }
func mult(rs, rt uint32) uint32       { return encodeR(rs, rt, 0, 0, 0x18) }
func mflo(rd uint32) uint32           { return encodeR(0, 0, rd, 0, 0x12) }
func mfhi(rd uint32) uint32           { return encodeR(0, 0, rd, 0, 0x10) }
func sw(rt, rs, imm uint32) uint32    { return encodeI(0x2B, rs, rt, imm) }
func lw(rt, rs, imm uint32) uint32    { return encodeI(0x23, rs, rt, imm) }
func beq(rs, rt, imm uint32) uint32   { return encodeI(0x04, rs, rt, imm) }
func bne(rs, rt, imm uint32) uint32   { return encodeI(0x05, rs, rt, imm) }
func slt(rd, rs, rt uint32) uint32    { return encodeR(rs, rt, rd, 0, 0x2A) }
func syscall() uint32                 { return encodeR(0, 0, 0, 0, 0x0C) }

// exitSequence emits "addiu $v0, $0, 10; syscall", the fixed
// environment-call sequence (§4.2) that cleanly terminates a program.
func exitSequence() []uint32 {
	return []uint32{addiu(v0, zero, 10), syscall()}
}
