package core_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/timing/core"
	"github.com/archsim/mips32/timing/ooo"
)

var _ = Describe("OOOCore", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		oc      *core.OOOCore
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		oc = core.NewOOOCore(regFile, memory, ooo.DefaultConfig())
	})

	It("should create a core with a driver", func() {
		Expect(oc).NotTo(BeNil())
		Expect(oc.Driver).NotTo(BeNil())
	})

	It("should not be halted initially", func() {
		Expect(oc.Halted()).To(BeFalse())
	})

	It("should run a straight-line program to completion", func() {
		memory.Write32(0x0, 0x2404000A) // addiu $a0, $zero, 10
		memory.Write32(0x4, 0x2402000A) // addiu $v0, $zero, 10
		memory.Write32(0x8, 0x0000000C) // syscall

		oc.SetPC(0)
		exitCode := oc.Run(context.Background())

		Expect(oc.Halted()).To(BeTrue())
		Expect(exitCode).To(Equal(int32(10)))
		Expect(oc.Fault()).To(BeNil())
	})

	It("should report accumulated cycle and instruction counts", func() {
		memory.Write32(0x0, 0x2404000A)
		memory.Write32(0x4, 0x2402000A)
		memory.Write32(0x8, 0x0000000C)

		oc.SetPC(0)
		oc.Run(context.Background())

		stats := oc.Stats()
		Expect(stats.Instructions).To(Equal(uint64(3)))
		Expect(stats.Cycles).To(BeNumerically(">", 0))
	})

	It("should run for a bounded number of cycles and report still running", func() {
		memory.Write32(0x0, 0x21290001) // addi $t1, $t1, 1
		memory.Write32(0x4, 0)
		memory.Write32(0x8, 0)

		oc.SetPC(0)
		running := oc.RunCycles(context.Background(), 2)

		Expect(running).To(BeTrue())
		Expect(oc.Halted()).To(BeFalse())
	})

	It("should reset engine state while keeping the loaded program", func() {
		memory.Write32(0x0, 0x2404000A)
		memory.Write32(0x4, 0x2402000A)
		memory.Write32(0x8, 0x0000000C)

		oc.SetPC(0)
		oc.Run(context.Background())

		Expect(oc.Halted()).To(BeTrue())

		oc.Reset()

		Expect(oc.Halted()).To(BeFalse())
		Expect(oc.Stats().Cycles).To(Equal(uint64(0)))
	})
})
