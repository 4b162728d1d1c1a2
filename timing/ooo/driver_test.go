package ooo_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/timing/ooo"
)

// encR builds an R-type word: op rd, rs, rt (funct-selected ALU op).
func encR(funct, rs, rt, rd, shamt uint32) uint32 {
	return (rs&0x1F)<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 | (shamt&0x1F)<<6 | funct&0x3F
}

// encI builds an I-type word: opcode rt, rs, imm16.
func encI(opcode, rs, rt, imm uint32) uint32 {
	return opcode<<26 | (rs&0x1F)<<21 | (rt&0x1F)<<16 | imm&0xFFFF
}

// encFP builds a cop1 FP-R word: fmt|ft|fs|fd|funct.
func encFP(funct, fmt, ft, fs, fd uint32) uint32 {
	return (uint32(0x11) << 26) | (fmt&0x1F)<<21 | (ft&0x1F)<<16 | (fs&0x1F)<<11 | (fd&0x1F)<<6 | funct&0x3F
}

const (
	fAdd  = 0x20
	fAddu = 0x21
	fAnd  = 0x24
	fSlt  = 0x2A
	fJr   = 0x08
	fMult = 0x18
	fMflo = 0x12
	fMfhi = 0x10
	fMthi = 0x11
	fMtlo = 0x13

	opAddiu = 0x09
	opBeq   = 0x04
	opBne   = 0x05
	opLw    = 0x23
	opSw    = 0x2B

	fmtSingle = 0x10
	fAddS     = 0x00
	fCeqS     = 0x32
)

func loadProgram(mem *emu.Memory, base uint32, words []uint32) {
	for i, w := range words {
		Expect(mem.Write32(base+uint32(4*i), w)).To(Succeed())
	}
}

var _ = Describe("Driver", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		driver  *ooo.Driver
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		driver = ooo.NewDriver(regFile, memory, ooo.DefaultConfig())
	})

	Describe("a straight-line arithmetic sequence", func() {
		It("commits results in program order through the ROB", func() {
			// addiu $t0, $zero, 5
			// addiu $t1, $zero, 7
			// add   $t2, $t0, $t1
			// addu  $a0, $t2, $zero   -- move the sum into $a0
			// addiu $v0, $zero, 10
			// syscall (exit with $a0 = $t2)
			loadProgram(memory, 0, []uint32{
				encI(opAddiu, 0, 8, 5),
				encI(opAddiu, 0, 9, 7),
				encR(fAdd, 8, 9, 10, 0),
				encR(fAddu, 10, 0, 4, 0),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(driver.ExitCode()).To(Equal(int32(12)))
		})
	})

	Describe("a load-use dependency resolved off the CDB", func() {
		It("forwards the loaded value to a dependent add without stalling on the pipeline", func() {
			// sw   $t0, 0($zero)   -- seed memory via a prior store
			// lw   $t1, 0($zero)
			// add  $t2, $t1, $t1
			// addu $a0, $t2, $zero
			// syscall exit
			regFile.Write(8, 21)
			loadProgram(memory, 0, []uint32{
				encI(opSw, 0, 8, 0),
				encI(opLw, 0, 9, 0),
				encR(fAdd, 9, 9, 10, 0),
				encR(fAddu, 10, 0, 4, 0),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(driver.ExitCode()).To(Equal(int32(42)))
		})
	})

	Describe("a mispredicted branch", func() {
		It("squashes the wrong-path instruction and resumes on the correct path", func() {
			// addiu $t0, $zero, 0
			// beq   $zero, $zero, +1   -- always taken, predictor may guess not-taken
			// addiu $a0, $zero, 999    -- wrong path, must be squashed
			// addiu $a0, $zero, 1      -- correct path target
			// addiu $v0, $zero, 10
			// syscall
			loadProgram(memory, 0, []uint32{
				encI(opAddiu, 0, 8, 0),
				encI(opBeq, 0, 0, 1),
				encI(opAddiu, 0, 4, 999),
				encI(opAddiu, 0, 4, 1),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(driver.ExitCode()).To(Equal(int32(1)))
		})
	})

	Describe("floating-point arithmetic through a reservation station", func() {
		It("commits add.s's result to the destination F register", func() {
			// add.s f10, f8, f9   -- f10 = f8 + f9
			// addiu $v0, $zero, 10
			// syscall
			regFile.F[8] = math.Float32bits(2)
			regFile.F[9] = math.Float32bits(3)
			loadProgram(memory, 0, []uint32{
				encFP(fAddS, fmtSingle, 9, 8, 10),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(regFile.F[10]).To(Equal(math.Float32bits(5)))
		})
	})

	Describe("a mispredicted branch skipping a floating-point op", func() {
		It("never lets the squashed add.s reach the F register file", func() {
			// addiu $t0, $zero, 0
			// beq   $zero, $zero, +1   -- always taken, predictor may guess not-taken
			// add.s f0, f0, f0         -- wrong path: would double F0, must never commit
			// addiu $a0, $zero, 1      -- correct path target
			// addiu $v0, $zero, 10
			// syscall
			regFile.F[0] = math.Float32bits(42)
			loadProgram(memory, 0, []uint32{
				encI(opAddiu, 0, 8, 0),
				encI(opBeq, 0, 0, 1),
				encFP(fAddS, fmtSingle, 0, 0, 0),
				encI(opAddiu, 0, 4, 1),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(driver.ExitCode()).To(Equal(int32(1)))
			Expect(regFile.F[0]).To(Equal(math.Float32bits(42)))
		})
	})

	Describe("c.eq.s", func() {
		It("sets FCC only once the compare commits", func() {
			// c.eq.s f8, f9   -- FCC = (f8 == f9)
			// addiu $v0, $zero, 10
			// syscall
			regFile.F[8] = math.Float32bits(7)
			regFile.F[9] = math.Float32bits(7)
			loadProgram(memory, 0, []uint32{
				encFP(fCeqS, fmtSingle, 9, 8, 0),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(regFile.FCC).To(BeTrue())
		})
	})

	Describe("mult immediately followed by mflo", func() {
		It("forwards the product off the EX/MEM boundary instead of reading a stale LO", func() {
			// addiu $t0, $zero, 6
			// addiu $t1, $zero, 7
			// mult  $t0, $t1      -- LO = 42
			// mflo  $a0           -- must see 42, not 0
			// addiu $v0, $zero, 10
			// syscall
			loadProgram(memory, 0, []uint32{
				encI(opAddiu, 0, 8, 6),
				encI(opAddiu, 0, 9, 7),
				encR(fMult, 8, 9, 0, 0),
				encR(fMflo, 0, 0, 4, 0),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(driver.ExitCode()).To(Equal(int32(42)))
		})
	})

	Describe("mthi/mtlo round-tripped through mfhi/mflo", func() {
		It("writes only the named half while leaving the other half intact", func() {
			// addiu $t0, $zero, 11
			// addiu $t1, $zero, 22
			// mthi  $t0            -- HI = 11
			// mtlo  $t1            -- LO = 22, HI must remain 11
			// mfhi  $a0            -- $a0 = 11
			// addiu $v0, $zero, 10
			// syscall
			loadProgram(memory, 0, []uint32{
				encI(opAddiu, 0, 8, 11),
				encI(opAddiu, 0, 9, 22),
				encR(fMthi, 8, 0, 0, 0),
				encR(fMtlo, 9, 0, 0, 0),
				encR(fMfhi, 0, 0, 4, 0),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(driver.ExitCode()).To(Equal(int32(11)))
		})
	})

	Describe("a syscall exit", func() {
		It("halts the engine with the exit code carried in $a0", func() {
			loadProgram(memory, 0, []uint32{
				encI(opAddiu, 0, 4, 77),
				encI(opAddiu, 0, 2, 10),
				0x0000000C,
			})

			driver.SetPC(0)
			driver.Run(context.Background())

			Expect(driver.Halted()).To(BeTrue())
			Expect(driver.ExitCode()).To(Equal(int32(77)))
			Expect(driver.Fault()).To(BeNil())
		})
	})
})
