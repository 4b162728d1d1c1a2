package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/emu"
)

var _ = Describe("LoadStoreUnit", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		lsu     *emu.LoadStoreUnit
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		lsu = emu.NewLoadStoreUnit(regFile, memory)
	})

	It("round-trips a word through sw/lw", func() {
		regFile.Write(8, 0x100)
		regFile.Write(9, 0xDEADBEEF)

		Expect(lsu.Sw(9, 8, 0)).ToNot(HaveOccurred())
		Expect(lsu.Lw(10, 8, 0)).ToNot(HaveOccurred())

		Expect(regFile.Read(10)).To(Equal(uint32(0xDEADBEEF)))
	})

	It("sign-extends a halfword load", func() {
		regFile.Write(8, 0x100)
		regFile.Write(9, 0xFFFF)

		Expect(lsu.Sh(9, 8, 0)).ToNot(HaveOccurred())
		Expect(lsu.Lh(10, 8, 0)).ToNot(HaveOccurred())

		Expect(int32(regFile.Read(10))).To(Equal(int32(-1)))
	})

	It("zero-extends a halfword unsigned load", func() {
		regFile.Write(8, 0x100)
		regFile.Write(9, 0xFFFF)

		Expect(lsu.Sh(9, 8, 0)).ToNot(HaveOccurred())
		Expect(lsu.Lhu(10, 8, 0)).ToNot(HaveOccurred())

		Expect(regFile.Read(10)).To(Equal(uint32(0xFFFF)))
	})

	It("sign-extends a byte load", func() {
		regFile.Write(8, 0x100)
		regFile.Write(9, 0xFF)

		Expect(lsu.Sb(9, 8, 0)).ToNot(HaveOccurred())
		Expect(lsu.Lb(10, 8, 0)).ToNot(HaveOccurred())

		Expect(int32(regFile.Read(10))).To(Equal(int32(-1)))
	})

	It("applies the offset to the base register", func() {
		regFile.Write(8, 0x100)
		regFile.Write(9, 7)

		Expect(lsu.Sw(9, 8, 8)).ToNot(HaveOccurred())

		value, err := memory.Read32(0x108)
		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal(uint32(7)))
	})

	It("raises a fault on a misaligned word access", func() {
		regFile.Write(8, 0x101)

		Expect(lsu.Lw(9, 8, 0)).To(HaveOccurred())
	})

	It("raises a fault on an out-of-bounds access", func() {
		regFile.Write(8, memory.Size())

		Expect(lsu.Lb(9, 8, 0)).To(HaveOccurred())
	})

	It("round-trips a floating-point register through lwc1/swc1", func() {
		regFile.Write(8, 0x200)
		regFile.WriteF(1, 0x3F800000) // 1.0f

		Expect(lsu.Swc1(1, 8, 0)).ToNot(HaveOccurred())
		Expect(lsu.Lwc1(2, 8, 0)).ToNot(HaveOccurred())

		Expect(regFile.ReadF(2)).To(Equal(uint32(0x3F800000)))
	})
})
