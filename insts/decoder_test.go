package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/insts"
)

// encodeR packs an R-type word: opcode=0, rs, rt, rd, shamt, funct.
func encodeR(rs, rt, rd, shamt, funct uint32) uint32 {
	return (rs&0x1F)<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 | (shamt&0x1F)<<6 | (funct & 0x3F)
}

// encodeI packs an I-type word: opcode, rs, rt, imm16.
func encodeI(opcode, rs, rt, imm uint32) uint32 {
	return (opcode&0x3F)<<26 | (rs&0x1F)<<21 | (rt&0x1F)<<16 | (imm & 0xFFFF)
}

// encodeJ packs a J-type word: opcode, 26-bit target (already >>2).
func encodeJ(opcode, target uint32) uint32 {
	return (opcode&0x3F)<<26 | (target & 0x03FFFFFF)
}

var _ = Describe("Decoder", func() {
	var dec *insts.Decoder

	BeforeEach(func() {
		dec = insts.NewDecoder()
	})

	DescribeTable("R-type ALU ops",
		func(funct uint32, op insts.Op) {
			inst, err := dec.Decode(encodeR(8, 9, 10, 0, funct))
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(op))
			Expect(inst.Rs).To(Equal(uint8(8)))
			Expect(inst.Rt).To(Equal(uint8(9)))
			Expect(inst.Rd).To(Equal(uint8(10)))
		},
		Entry("add", uint32(0x20), insts.OpAdd),
		Entry("addu", uint32(0x21), insts.OpAddu),
		Entry("sub", uint32(0x22), insts.OpSub),
		Entry("subu", uint32(0x23), insts.OpSubu),
		Entry("and", uint32(0x24), insts.OpAnd),
		Entry("or", uint32(0x25), insts.OpOr),
		Entry("xor", uint32(0x26), insts.OpXor),
		Entry("nor", uint32(0x27), insts.OpNor),
		Entry("slt", uint32(0x2A), insts.OpSlt),
		Entry("sltu", uint32(0x2B), insts.OpSltu),
		Entry("mult", uint32(0x18), insts.OpMult),
		Entry("multu", uint32(0x19), insts.OpMultu),
		Entry("div", uint32(0x1A), insts.OpDiv),
		Entry("divu", uint32(0x1B), insts.OpDivu),
		Entry("jr", uint32(0x08), insts.OpJr),
		Entry("jalr", uint32(0x09), insts.OpJalr),
	)

	It("decodes sll with a shift amount", func() {
		inst, err := dec.Decode(encodeR(0, 9, 10, 4, 0x00))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpSll))
		Expect(inst.Shamt).To(Equal(uint8(4)))
	})

	It("maps the all-zero shift-by-zero encoding to nop", func() {
		inst, err := dec.Decode(encodeR(0, 0, 0, 0, 0x00))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpNop))
	})

	It("decodes syscall and break", func() {
		inst, err := dec.Decode(encodeR(0, 0, 0, 0, 0x0C))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpSyscall))

		inst, err = dec.Decode(encodeR(0, 0, 0, 0, 0x0D))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpBreak))
	})

	It("sign-extends addi's immediate", func() {
		inst, err := dec.Decode(encodeI(0x08, 8, 9, 0xFFFF))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpAddi))
		Expect(int32(inst.Imm)).To(Equal(int32(-1)))
	})

	It("zero-extends andi's immediate", func() {
		inst, err := dec.Decode(encodeI(0x0C, 8, 9, 0xFFFF))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpAndi))
		Expect(inst.Imm).To(Equal(uint32(0xFFFF)))
	})

	It("decodes lui", func() {
		inst, err := dec.Decode(encodeI(0x0F, 0, 9, 0x1234))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpLui))
		Expect(inst.Imm).To(Equal(uint32(0x1234)))
	})

	DescribeTable("memory ops",
		func(opcode uint32, op insts.Op) {
			inst, err := dec.Decode(encodeI(opcode, 8, 9, 4))
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(op))
		},
		Entry("lw", uint32(0x23), insts.OpLw),
		Entry("lh", uint32(0x21), insts.OpLh),
		Entry("lhu", uint32(0x25), insts.OpLhu),
		Entry("lb", uint32(0x20), insts.OpLb),
		Entry("lbu", uint32(0x24), insts.OpLbu),
		Entry("sw", uint32(0x2B), insts.OpSw),
		Entry("sh", uint32(0x29), insts.OpSh),
		Entry("sb", uint32(0x28), insts.OpSb),
		Entry("lwc1", uint32(0x31), insts.OpLwc1),
		Entry("swc1", uint32(0x39), insts.OpSwc1),
	)

	DescribeTable("branches",
		func(opcode uint32, op insts.Op) {
			inst, err := dec.Decode(encodeI(opcode, 8, 9, 0x0010))
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(op))
		},
		Entry("beq", uint32(0x04), insts.OpBeq),
		Entry("bne", uint32(0x05), insts.OpBne),
		Entry("blez", uint32(0x06), insts.OpBlez),
		Entry("bgtz", uint32(0x07), insts.OpBgtz),
	)

	It("decodes bltz/bgez via the regimm rt field", func() {
		inst, err := dec.Decode(encodeI(0x01, 8, 0x00, 4))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpBltz))

		inst, err = dec.Decode(encodeI(0x01, 8, 0x01, 4))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpBgez))
	})

	It("decodes j and jal with a shifted 26-bit target", func() {
		inst, err := dec.Decode(encodeJ(0x02, 0x100))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpJ))
		Expect(inst.Target).To(Equal(uint32(0x400)))

		inst, err = dec.Decode(encodeJ(0x03, 0x100))
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpJal))
	})

	It("decodes single-precision FP arithmetic", func() {
		word := (uint32(0x11) << 26) | (0x10 << 21) | (5 << 16) | (6 << 11) | (7 << 6) | 0x00
		inst, err := dec.Decode(word)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpAddS))
		Expect(inst.Rs).To(Equal(uint8(5)))
		Expect(inst.Rt).To(Equal(uint8(6)))
		Expect(inst.Rd).To(Equal(uint8(7)))
	})

	It("decodes c.eq.s and bc1t/bc1f", func() {
		word := (uint32(0x11) << 26) | (0x10 << 21) | (5 << 16) | (6 << 11) | 0x32
		inst, err := dec.Decode(word)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpCeqS))

		bcWord := (uint32(0x11) << 26) | (0x08 << 21) | (1 << 16) | 8
		inst, err = dec.Decode(bcWord)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpBc1t))

		bcWord = (uint32(0x11) << 26) | (0x08 << 21) | (0 << 16) | 8
		inst, err = dec.Decode(bcWord)
		Expect(err).ToNot(HaveOccurred())
		Expect(inst.Op).To(Equal(insts.OpBc1f))
	})

	It("rejects an unrecognized encoding", func() {
		_, err := dec.Decode(0xFC000000)
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unrecognized R-type funct", func() {
		_, err := dec.Decode(encodeR(0, 0, 0, 0, 0x3F))
		Expect(err).To(HaveOccurred())
	})
})
