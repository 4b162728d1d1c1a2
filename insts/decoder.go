package insts

// Decoder decodes MIPS32 machine code into Instruction records. It is
// a stateless pure function: Decode never consults or mutates any
// state beyond the word it is given.
type Decoder struct{}

// NewDecoder creates a new MIPS32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeError reports that a 32-bit word did not match any supported
// encoding.
type DecodeError struct {
	Word uint32
}

func (e *DecodeError) Error() string {
	return "invalid instruction word"
}

// Decode decodes a 32-bit MIPS32 instruction word. An unrecognized
// encoding returns a non-nil error carrying the raw word; the spec
// requires this to surface as an InvalidInstruction fault further up
// the call stack, not as a panic.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	if word == 0 {
		return &Instruction{Op: OpNop, Family: FamilyNop, Word: word}, nil
	}

	opcode := (word >> 26) & 0x3F
	rs := uint8((word >> 21) & 0x1F)
	rt := uint8((word >> 16) & 0x1F)
	rd := uint8((word >> 11) & 0x1F)
	shamt := uint8((word >> 6) & 0x1F)
	funct := uint8(word & 0x3F)
	imm16 := uint32(word & 0xFFFF)

	switch opcode {
	case 0x00:
		return d.decodeR(word, rs, rt, rd, shamt, funct)
	case 0x01:
		return d.decodeRegimm(word, rs, rt, imm16)
	case 0x02, 0x03:
		return d.decodeJ(word, opcode)
	case 0x11:
		return d.decodeCop1(word, rs, rt, rd, funct)
	default:
		return d.decodeI(word, opcode, rs, rt, imm16)
	}
}

func (d *Decoder) decodeR(word uint32, rs, rt, rd, shamt, funct uint8) (*Instruction, error) {
	inst := &Instruction{Family: FamilyR, Word: word, Rs: rs, Rt: rt, Rd: rd, Shamt: shamt, Funct: funct}

	switch funct {
	case 0x00:
		if rd == 0 && rt == 0 && rs == 0 && shamt == 0 {
			inst.Op, inst.Family = OpNop, FamilyNop
			return inst, nil
		}
		inst.Op = OpSll
	case 0x02:
		inst.Op = OpSrl
	case 0x03:
		inst.Op = OpSra
	case 0x04:
		inst.Op = OpSllv
	case 0x06:
		inst.Op = OpSrlv
	case 0x07:
		inst.Op = OpSrav
	case 0x08:
		inst.Op = OpJr
	case 0x09:
		inst.Op = OpJalr
	case 0x0C:
		inst.Op, inst.Family = OpSyscall, FamilySyscall
	case 0x0D:
		inst.Op, inst.Family = OpBreak, FamilySyscall
	case 0x10:
		inst.Op = OpMfhi
	case 0x11:
		inst.Op = OpMthi
	case 0x12:
		inst.Op = OpMflo
	case 0x13:
		inst.Op = OpMtlo
	case 0x18:
		inst.Op = OpMult
	case 0x19:
		inst.Op = OpMultu
	case 0x1A:
		inst.Op = OpDiv
	case 0x1B:
		inst.Op = OpDivu
	case 0x20:
		inst.Op = OpAdd
	case 0x21:
		inst.Op = OpAddu
	case 0x22:
		inst.Op = OpSub
	case 0x23:
		inst.Op = OpSubu
	case 0x24:
		inst.Op = OpAnd
	case 0x25:
		inst.Op = OpOr
	case 0x26:
		inst.Op = OpXor
	case 0x27:
		inst.Op = OpNor
	case 0x2A:
		inst.Op = OpSlt
	case 0x2B:
		inst.Op = OpSltu
	default:
		return nil, &DecodeError{Word: word}
	}
	return inst, nil
}

func (d *Decoder) decodeRegimm(word uint32, rs, rt uint8, imm16 uint32) (*Instruction, error) {
	inst := &Instruction{Family: FamilyI, Word: word, Rs: rs, Imm: signExtend16(imm16)}
	switch rt {
	case 0x00:
		inst.Op = OpBltz
	case 0x01:
		inst.Op = OpBgez
	default:
		return nil, &DecodeError{Word: word}
	}
	return inst, nil
}

func (d *Decoder) decodeJ(word uint32, opcode uint32) (*Instruction, error) {
	inst := &Instruction{Family: FamilyJ, Word: word, Target: (word & 0x03FFFFFF) << 2}
	if opcode == 0x02 {
		inst.Op = OpJ
	} else {
		inst.Op = OpJal
	}
	return inst, nil
}

func (d *Decoder) decodeI(word uint32, opcode uint32, rs, rt uint8, imm16 uint32) (*Instruction, error) {
	inst := &Instruction{Family: FamilyI, Word: word, Rs: rs, Rt: rt}

	switch opcode {
	case 0x08:
		inst.Op, inst.Imm = OpAddi, signExtend16(imm16)
	case 0x09:
		inst.Op, inst.Imm = OpAddiu, signExtend16(imm16)
	case 0x0A:
		inst.Op, inst.Imm = OpSlti, signExtend16(imm16)
	case 0x0B:
		inst.Op, inst.Imm = OpSltiu, signExtend16(imm16)
	case 0x0C:
		inst.Op, inst.Imm = OpAndi, imm16
	case 0x0D:
		inst.Op, inst.Imm = OpOri, imm16
	case 0x0E:
		inst.Op, inst.Imm = OpXori, imm16
	case 0x0F:
		inst.Op, inst.Imm = OpLui, imm16
	case 0x04:
		inst.Op, inst.Imm = OpBeq, signExtend16(imm16)
	case 0x05:
		inst.Op, inst.Imm = OpBne, signExtend16(imm16)
	case 0x06:
		inst.Op, inst.Imm = OpBlez, signExtend16(imm16)
	case 0x07:
		inst.Op, inst.Imm = OpBgtz, signExtend16(imm16)
	case 0x20:
		inst.Op, inst.Imm = OpLb, signExtend16(imm16)
	case 0x21:
		inst.Op, inst.Imm = OpLh, signExtend16(imm16)
	case 0x23:
		inst.Op, inst.Imm = OpLw, signExtend16(imm16)
	case 0x24:
		inst.Op, inst.Imm = OpLbu, signExtend16(imm16)
	case 0x25:
		inst.Op, inst.Imm = OpLhu, signExtend16(imm16)
	case 0x28:
		inst.Op, inst.Imm = OpSb, signExtend16(imm16)
	case 0x29:
		inst.Op, inst.Imm = OpSh, signExtend16(imm16)
	case 0x2B:
		inst.Op, inst.Imm = OpSw, signExtend16(imm16)
	case 0x31:
		inst.Op, inst.Family, inst.Imm = OpLwc1, FamilyFPMem, signExtend16(imm16)
	case 0x39:
		inst.Op, inst.Family, inst.Imm = OpSwc1, FamilyFPMem, signExtend16(imm16)
	default:
		return nil, &DecodeError{Word: word}
	}
	return inst, nil
}

// cop1 fmt/rs-field values relevant to the supported subset.
const (
	cop1FmtSingle = 0x10
	cop1FmtWord   = 0x14
	cop1BC        = 0x08
)

func (d *Decoder) decodeCop1(word uint32, rs, rt, rd, funct uint8) (*Instruction, error) {
	if rs == cop1BC {
		// bc1t/bc1f: rt bit 0 selects true/false; offset is the low 16 bits.
		inst := &Instruction{Family: FamilyFPBranch, Word: word, Imm: signExtend16(word & 0xFFFF)}
		if rt&1 != 0 {
			inst.Op = OpBc1t
		} else {
			inst.Op = OpBc1f
		}
		return inst, nil
	}

	if rs != cop1FmtSingle && rs != cop1FmtWord {
		return nil, &DecodeError{Word: word}
	}

	inst := &Instruction{Family: FamilyFPR, Word: word, Funct: funct}
	switch funct {
	case 0x00:
		inst.Op = OpAddS
	case 0x01:
		inst.Op = OpSubS
	case 0x02:
		inst.Op = OpMulS
	case 0x03:
		inst.Op = OpDivS
	case 0x05:
		inst.Op = OpAbsS
	case 0x06:
		inst.Op = OpMovS
	case 0x07:
		inst.Op = OpNegS
	case 0x21:
		inst.Op = OpCvtSW
	case 0x24:
		inst.Op = OpCvtWS
	case 0x32:
		inst.Op = OpCeqS
	case 0x3C:
		inst.Op = OpCltS
	case 0x3E:
		inst.Op = OpCleS
	default:
		return nil, &DecodeError{Word: word}
	}
	// FP-R layout is fmt|ft|fs|fd|funct.
	inst.Rs = uint8((word >> 16) & 0x1F) // ft
	inst.Rt = uint8((word >> 11) & 0x1F) // fs
	inst.Rd = uint8((word >> 6) & 0x1F)  // fd
	return inst, nil
}

func signExtend16(v uint32) uint32 {
	return uint32(int32(int16(uint16(v))))
}
