// Package emu provides functional MIPS32 emulation.
package emu

// ALU implements MIPS32 integer arithmetic, logic, shift, and
// multiply/divide operations against a register file. Unlike the
// condition-flag ALUs of other architectures, MIPS32 has no status
// register: signed add/sub/addi report overflow by raising a fault
// directly rather than setting a flag, and every other operation
// always succeeds.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Add performs signed addition: rd = rs + rt, trapping on signed
// overflow.
func (a *ALU) Add(rd, rs, rt uint8) error {
	op1 := int32(a.regFile.Read(rs))
	op2 := int32(a.regFile.Read(rt))
	result := op1 + op2
	if addOverflows(op1, op2, result) {
		return &Fault{Kind: ArithmeticOverflow}
	}
	a.regFile.Write(rd, uint32(result))
	return nil
}

// Addu performs unsigned addition: rd = rs + rt. Overflow silently
// wraps, matching the hardware's modulo-2^32 semantics.
func (a *ALU) Addu(rd, rs, rt uint8) {
	a.regFile.Write(rd, a.regFile.Read(rs)+a.regFile.Read(rt))
}

// Addi performs signed addition with a sign-extended immediate,
// trapping on signed overflow.
func (a *ALU) Addi(rd, rs uint8, imm uint32) error {
	op1 := int32(a.regFile.Read(rs))
	op2 := int32(imm)
	result := op1 + op2
	if addOverflows(op1, op2, result) {
		return &Fault{Kind: ArithmeticOverflow}
	}
	a.regFile.Write(rd, uint32(result))
	return nil
}

// Addiu performs unsigned addition with a sign-extended immediate.
// Despite the name, the immediate is sign-extended before the add;
// only the absence of an overflow trap distinguishes it from Addi.
func (a *ALU) Addiu(rd, rs uint8, imm uint32) {
	a.regFile.Write(rd, a.regFile.Read(rs)+imm)
}

// Sub performs signed subtraction: rd = rs - rt, trapping on signed
// overflow.
func (a *ALU) Sub(rd, rs, rt uint8) error {
	op1 := int32(a.regFile.Read(rs))
	op2 := int32(a.regFile.Read(rt))
	result := op1 - op2
	if subOverflows(op1, op2, result) {
		return &Fault{Kind: ArithmeticOverflow}
	}
	a.regFile.Write(rd, uint32(result))
	return nil
}

// Subu performs unsigned subtraction: rd = rs - rt.
func (a *ALU) Subu(rd, rs, rt uint8) {
	a.regFile.Write(rd, a.regFile.Read(rs)-a.regFile.Read(rt))
}

// And performs bitwise AND: rd = rs & rt.
func (a *ALU) And(rd, rs, rt uint8) {
	a.regFile.Write(rd, a.regFile.Read(rs)&a.regFile.Read(rt))
}

// Andi performs bitwise AND with a zero-extended immediate.
func (a *ALU) Andi(rd, rs uint8, imm uint32) {
	a.regFile.Write(rd, a.regFile.Read(rs)&imm)
}

// Or performs bitwise OR: rd = rs | rt.
func (a *ALU) Or(rd, rs, rt uint8) {
	a.regFile.Write(rd, a.regFile.Read(rs)|a.regFile.Read(rt))
}

// Ori performs bitwise OR with a zero-extended immediate.
func (a *ALU) Ori(rd, rs uint8, imm uint32) {
	a.regFile.Write(rd, a.regFile.Read(rs)|imm)
}

// Xor performs bitwise XOR: rd = rs ^ rt.
func (a *ALU) Xor(rd, rs, rt uint8) {
	a.regFile.Write(rd, a.regFile.Read(rs)^a.regFile.Read(rt))
}

// Xori performs bitwise XOR with a zero-extended immediate.
func (a *ALU) Xori(rd, rs uint8, imm uint32) {
	a.regFile.Write(rd, a.regFile.Read(rs)^imm)
}

// Nor performs bitwise NOR: rd = ^(rs | rt).
func (a *ALU) Nor(rd, rs, rt uint8) {
	a.regFile.Write(rd, ^(a.regFile.Read(rs) | a.regFile.Read(rt)))
}

// Slt sets rd to 1 if rs < rt as signed integers, else 0.
func (a *ALU) Slt(rd, rs, rt uint8) {
	if int32(a.regFile.Read(rs)) < int32(a.regFile.Read(rt)) {
		a.regFile.Write(rd, 1)
	} else {
		a.regFile.Write(rd, 0)
	}
}

// Sltu sets rd to 1 if rs < rt as unsigned integers, else 0.
func (a *ALU) Sltu(rd, rs, rt uint8) {
	if a.regFile.Read(rs) < a.regFile.Read(rt) {
		a.regFile.Write(rd, 1)
	} else {
		a.regFile.Write(rd, 0)
	}
}

// Slti sets rd to 1 if rs < the sign-extended immediate as signed
// integers, else 0.
func (a *ALU) Slti(rd, rs uint8, imm uint32) {
	if int32(a.regFile.Read(rs)) < int32(imm) {
		a.regFile.Write(rd, 1)
	} else {
		a.regFile.Write(rd, 0)
	}
}

// Sltiu sets rd to 1 if rs < the sign-extended immediate compared as
// unsigned integers, else 0.
func (a *ALU) Sltiu(rd, rs uint8, imm uint32) {
	if a.regFile.Read(rs) < imm {
		a.regFile.Write(rd, 1)
	} else {
		a.regFile.Write(rd, 0)
	}
}

// Lui loads a 16-bit immediate into the upper half of rd, zeroing the
// lower half.
func (a *ALU) Lui(rd uint8, imm uint32) {
	a.regFile.Write(rd, imm<<16)
}

// Sll performs a logical left shift by a fixed shift amount.
func (a *ALU) Sll(rd, rt, shamt uint8) {
	a.regFile.Write(rd, a.regFile.Read(rt)<<(shamt&0x1F))
}

// Srl performs a logical right shift by a fixed shift amount.
func (a *ALU) Srl(rd, rt, shamt uint8) {
	a.regFile.Write(rd, a.regFile.Read(rt)>>(shamt&0x1F))
}

// Sra performs an arithmetic (sign-extending) right shift by a fixed
// shift amount.
func (a *ALU) Sra(rd, rt, shamt uint8) {
	a.regFile.Write(rd, uint32(int32(a.regFile.Read(rt))>>(shamt&0x1F)))
}

// Sllv performs a logical left shift by the low 5 bits of rs.
func (a *ALU) Sllv(rd, rt, rs uint8) {
	a.regFile.Write(rd, a.regFile.Read(rt)<<(a.regFile.Read(rs)&0x1F))
}

// Srlv performs a logical right shift by the low 5 bits of rs.
func (a *ALU) Srlv(rd, rt, rs uint8) {
	a.regFile.Write(rd, a.regFile.Read(rt)>>(a.regFile.Read(rs)&0x1F))
}

// Srav performs an arithmetic right shift by the low 5 bits of rs.
func (a *ALU) Srav(rd, rt, rs uint8) {
	a.regFile.Write(rd, uint32(int32(a.regFile.Read(rt))>>(a.regFile.Read(rs)&0x1F)))
}

// Mult computes the signed 64-bit product of rs and rt into HI/LO.
func (a *ALU) Mult(rs, rt uint8) {
	product := int64(int32(a.regFile.Read(rs))) * int64(int32(a.regFile.Read(rt)))
	a.regFile.HI = uint32(product >> 32)
	a.regFile.LO = uint32(product)
}

// Multu computes the unsigned 64-bit product of rs and rt into HI/LO.
func (a *ALU) Multu(rs, rt uint8) {
	product := uint64(a.regFile.Read(rs)) * uint64(a.regFile.Read(rt))
	a.regFile.HI = uint32(product >> 32)
	a.regFile.LO = uint32(product)
}

// Div computes the signed quotient and remainder of rs / rt, placing
// the quotient in LO and the remainder in HI. A zero divisor raises a
// DivisionByZero fault.
func (a *ALU) Div(rs, rt uint8) error {
	divisor := int32(a.regFile.Read(rt))
	if divisor == 0 {
		return &Fault{Kind: DivisionByZero}
	}
	dividend := int32(a.regFile.Read(rs))
	a.regFile.LO = uint32(dividend / divisor)
	a.regFile.HI = uint32(dividend % divisor)
	return nil
}

// Divu computes the unsigned quotient and remainder of rs / rt,
// placing the quotient in LO and the remainder in HI. A zero divisor
// raises a DivisionByZero fault.
func (a *ALU) Divu(rs, rt uint8) error {
	divisor := a.regFile.Read(rt)
	if divisor == 0 {
		return &Fault{Kind: DivisionByZero}
	}
	dividend := a.regFile.Read(rs)
	a.regFile.LO = dividend / divisor
	a.regFile.HI = dividend % divisor
	return nil
}

// Mfhi copies HI into rd.
func (a *ALU) Mfhi(rd uint8) {
	a.regFile.Write(rd, a.regFile.HI)
}

// Mflo copies LO into rd.
func (a *ALU) Mflo(rd uint8) {
	a.regFile.Write(rd, a.regFile.LO)
}

// Mthi copies rs into HI.
func (a *ALU) Mthi(rs uint8) {
	a.regFile.HI = a.regFile.Read(rs)
}

// Mtlo copies rs into LO.
func (a *ALU) Mtlo(rs uint8) {
	a.regFile.LO = a.regFile.Read(rs)
}

func addOverflows(op1, op2, result int32) bool {
	return (op1 >= 0 && op2 >= 0 && result < 0) || (op1 < 0 && op2 < 0 && result >= 0)
}

func subOverflows(op1, op2, result int32) bool {
	return (op1 >= 0 && op2 < 0 && result < 0) || (op1 < 0 && op2 >= 0 && result >= 0)
}
