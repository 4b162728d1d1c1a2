package core_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/timing/core"
)

var _ = Describe("Core", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		c       *core.Core
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		c = core.NewCore(regFile, memory)
	})

	It("should create a core with a pipeline", func() {
		Expect(c).NotTo(BeNil())
		Expect(c.Pipeline).NotTo(BeNil())
	})

	It("should set and get PC", func() {
		c.SetPC(0x1000)
		Expect(c.Pipeline.PC()).To(Equal(uint32(0x1000)))
	})

	It("should not be halted initially", func() {
		Expect(c.Halted()).To(BeFalse())
	})

	It("should execute instructions through tick", func() {
		memory.Write32(0x1000, 0x21280005) // addi $t0, $t1, 5
		regFile.Write(9, 100)               // $t1 = 100
		memory.Write32(0x1004, 0)           // nop
		memory.Write32(0x1008, 0)           // nop
		memory.Write32(0x100C, 0)           // nop
		memory.Write32(0x1010, 0)           // nop

		c.SetPC(0x1000)

		for i := 0; i < 6; i++ {
			c.Tick()
		}

		Expect(regFile.Read(8)).To(Equal(uint32(105)))
	})

	It("should return stats", func() {
		memory.Write32(0x1000, 0x21280005) // addi $t0, $t1, 5
		memory.Write32(0x1004, 0)          // nop

		c.SetPC(0x1000)
		c.Tick()
		c.Tick()

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(2)))
	})

	It("should run until halt and return exit code", func() {
		// addiu $a0, $zero, 10  -- exit code
		// addiu $v0, $zero, 10  -- SyscallExit
		// syscall
		memory.Write32(0x1000, 0x2404000A)
		memory.Write32(0x1004, 0x2402000A)
		memory.Write32(0x1008, 0x0000000C)

		c.SetPC(0x1000)
		exitCode := c.Run(context.Background())

		Expect(c.Halted()).To(BeTrue())
		Expect(exitCode).To(Equal(int32(10)))
		Expect(c.Fault()).To(BeNil())
	})

	It("should return exit code correctly for a zero exit status", func() {
		memory.Write32(0x1000, 0x24040000) // addiu $a0, $zero, 0
		memory.Write32(0x1004, 0x2402000A) // addiu $v0, $zero, 10
		memory.Write32(0x1008, 0x0000000C) // syscall

		c.SetPC(0x1000)
		c.Run(context.Background())

		Expect(c.ExitCode()).To(Equal(int32(0)))
	})

	It("should run for the specified number of cycles and report still running", func() {
		memory.Write32(0x1000, 0x21290001) // addi $t1, $t1, 1
		memory.Write32(0x1004, 0)
		memory.Write32(0x1008, 0)
		memory.Write32(0x100C, 0)
		memory.Write32(0x1010, 0)
		memory.Write32(0x1014, 0)
		memory.Write32(0x1018, 0)
		memory.Write32(0x101C, 0)
		memory.Write32(0x1020, 0)
		memory.Write32(0x1024, 0)

		c.SetPC(0x1000)
		running := c.RunCycles(context.Background(), 5)

		Expect(running).To(BeTrue())
		Expect(c.Halted()).To(BeFalse())

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(5)))
	})

	It("should stop running cycles when halted", func() {
		memory.Write32(0x1000, 0x24020000) // addiu $v0, $zero, 0 -- not an exit
		memory.Write32(0x1004, 0x2402000A) // addiu $v0, $zero, 10
		memory.Write32(0x1008, 0x0000000C) // syscall

		c.SetPC(0x1000)
		running := c.RunCycles(context.Background(), 100)

		Expect(running).To(BeFalse())
		Expect(c.Halted()).To(BeTrue())
	})

	It("should reset pipeline state while keeping the loaded program", func() {
		memory.Write32(0x1000, 0x21290001) // addi $t1, $t1, 1
		memory.Write32(0x1004, 0)
		memory.Write32(0x1008, 0)
		memory.Write32(0x100C, 0)
		memory.Write32(0x1010, 0)

		c.SetPC(0x1000)
		for i := 0; i < 10; i++ {
			c.Tick()
		}

		stats := c.Stats()
		Expect(stats.Cycles).To(BeNumerically(">", 0))

		c.Reset()

		statsAfterReset := c.Stats()
		Expect(statsAfterReset.Cycles).To(Equal(uint64(0)))
		Expect(statsAfterReset.Instructions).To(Equal(uint64(0)))
		Expect(c.Halted()).To(BeFalse())
	})
})
