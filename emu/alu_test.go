package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/emu"
)

var _ = Describe("ALU", func() {
	var (
		regFile *emu.RegFile
		alu     *emu.ALU
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		alu = emu.NewALU(regFile)
	})

	Describe("Add/Addu", func() {
		It("adds two registers", func() {
			regFile.Write(8, 2)
			regFile.Write(9, 3)

			Expect(alu.Add(10, 8, 9)).ToNot(HaveOccurred())
			Expect(regFile.Read(10)).To(Equal(uint32(5)))
		})

		It("traps on signed overflow", func() {
			regFile.Write(8, 0x7FFFFFFF)
			regFile.Write(9, 1)

			Expect(alu.Add(10, 8, 9)).To(HaveOccurred())
		})

		It("addu wraps silently on overflow", func() {
			regFile.Write(8, 0xFFFFFFFF)
			regFile.Write(9, 1)

			alu.Addu(10, 8, 9)

			Expect(regFile.Read(10)).To(Equal(uint32(0)))
		})
	})

	Describe("Sub/Subu", func() {
		It("traps on signed overflow", func() {
			var minInt32 int32 = -2147483648
			regFile.Write(8, uint32(minInt32))
			regFile.Write(9, 1)

			Expect(alu.Sub(10, 8, 9)).To(HaveOccurred())
		})

		It("subu wraps silently", func() {
			regFile.Write(8, 0)
			regFile.Write(9, 1)

			alu.Subu(10, 8, 9)

			Expect(regFile.Read(10)).To(Equal(uint32(0xFFFFFFFF)))
		})
	})

	Describe("logical ops", func() {
		It("computes and/or/xor/nor", func() {
			regFile.Write(8, 0b1100)
			regFile.Write(9, 0b1010)

			alu.And(10, 8, 9)
			Expect(regFile.Read(10)).To(Equal(uint32(0b1000)))

			alu.Or(11, 8, 9)
			Expect(regFile.Read(11)).To(Equal(uint32(0b1110)))

			alu.Xor(12, 8, 9)
			Expect(regFile.Read(12)).To(Equal(uint32(0b0110)))

			alu.Nor(13, 8, 9)
			Expect(regFile.Read(13)).To(Equal(^uint32(0b1110)))
		})
	})

	Describe("comparisons", func() {
		It("slt compares signed values", func() {
			regFile.Write(8, uint32(int32(-1)))
			regFile.Write(9, 1)

			alu.Slt(10, 8, 9)

			Expect(regFile.Read(10)).To(Equal(uint32(1)))
		})

		It("sltu compares unsigned values", func() {
			regFile.Write(8, uint32(int32(-1))) // huge unsigned
			regFile.Write(9, 1)

			alu.Sltu(10, 8, 9)

			Expect(regFile.Read(10)).To(Equal(uint32(0)))
		})
	})

	Describe("shifts", func() {
		It("sll shifts left by a fixed amount", func() {
			regFile.Write(9, 1)

			alu.Sll(10, 9, 4)

			Expect(regFile.Read(10)).To(Equal(uint32(16)))
		})

		It("sra preserves sign", func() {
			regFile.Write(9, uint32(int32(-16)))

			alu.Sra(10, 9, 2)

			Expect(int32(regFile.Read(10))).To(Equal(int32(-4)))
		})

		It("srlv shifts by the low 5 bits of rs", func() {
			regFile.Write(8, 2)
			regFile.Write(9, 0xFF)

			alu.Srlv(10, 9, 8)

			Expect(regFile.Read(10)).To(Equal(uint32(0x3F)))
		})
	})

	Describe("multiply/divide", func() {
		It("mult sets HI/LO to the signed 64-bit product", func() {
			regFile.Write(8, uint32(int32(-3)))
			regFile.Write(9, 4)

			alu.Mult(8, 9)
			alu.Mflo(10)
			alu.Mfhi(11)

			Expect(int32(regFile.Read(10))).To(Equal(int32(-12)))
			Expect(regFile.Read(11)).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("div sets LO to the quotient and HI to the remainder", func() {
			regFile.Write(8, 7)
			regFile.Write(9, 2)

			Expect(alu.Div(8, 9)).ToNot(HaveOccurred())
			Expect(regFile.LO).To(Equal(uint32(3)))
			Expect(regFile.HI).To(Equal(uint32(1)))
		})

		It("div by zero raises a fault", func() {
			regFile.Write(8, 7)
			regFile.Write(9, 0)

			Expect(alu.Div(8, 9)).To(HaveOccurred())
		})
	})

	Describe("immediates", func() {
		It("addi sign-extends and traps on overflow", func() {
			regFile.Write(8, 1)

			Expect(alu.Addi(9, 8, uint32(int32(-2)))).ToNot(HaveOccurred())
			Expect(int32(regFile.Read(9))).To(Equal(int32(-1)))
		})

		It("lui loads the upper half and zeros the lower half", func() {
			alu.Lui(8, 0x1234)

			Expect(regFile.Read(8)).To(Equal(uint32(0x12340000)))
		})
	})
})
