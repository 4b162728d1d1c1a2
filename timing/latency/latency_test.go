package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/insts"
	"github.com/archsim/mips32/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	decode := func(word uint32) *insts.Instruction {
		inst, err := decoder.Decode(word)
		Expect(err).ToNot(HaveOccurred())
		return inst
	}

	Describe("Default timing values", func() {
		It("has the baseline latencies", func() {
			config := table.Config()
			Expect(config.ALULatency).To(Equal(uint64(1)))
			Expect(config.BranchLatency).To(Equal(uint64(1)))
			Expect(config.LoadLatency).To(Equal(uint64(1)))
			Expect(config.StoreLatency).To(Equal(uint64(1)))
			Expect(config.MultiplyLatency).To(Equal(uint64(3)))
			Expect(config.DivideLatency).To(Equal(uint64(10)))
		})
	})

	Describe("ALU instruction latencies", func() {
		It("returns 1 cycle for addu", func() {
			inst := decode(0x01098021) // addu $s0, $t0, $t1
			Expect(table.GetLatency(inst)).To(Equal(uint64(1)))
		})

		It("returns 1 cycle for addiu", func() {
			inst := decode(0x21280001) // addiu $t0, $t1, 1
			Expect(table.GetLatency(inst)).To(Equal(uint64(1)))
		})
	})

	Describe("Multiply/divide latencies", func() {
		It("returns MultiplyLatency for mult", func() {
			inst := decode(0x01090018) // mult $t0, $t1
			Expect(inst.Op).To(Equal(insts.OpMult))
			Expect(table.GetLatency(inst)).To(Equal(uint64(3)))
		})

		It("returns DivideLatency for div", func() {
			inst := decode(0x0109001A) // div $t0, $t1
			Expect(inst.Op).To(Equal(insts.OpDiv))
			Expect(table.GetLatency(inst)).To(Equal(uint64(10)))
		})

		It("marks mult/div as multi-cycle", func() {
			Expect(table.IsMultiCycle(decode(0x01090018))).To(BeTrue())
			Expect(table.IsMultiCycle(decode(0x01098021))).To(BeFalse())
		})
	})

	Describe("Memory instruction latencies and detection", func() {
		It("classifies lw/sw", func() {
			lw := decode(0x8D280000) // lw $t0, 0($t1)
			sw := decode(0xAD280000) // sw $t0, 0($t1)

			Expect(table.IsMemoryOp(lw)).To(BeTrue())
			Expect(table.IsLoadOp(lw)).To(BeTrue())
			Expect(table.IsStoreOp(lw)).To(BeFalse())

			Expect(table.IsMemoryOp(sw)).To(BeTrue())
			Expect(table.IsStoreOp(sw)).To(BeTrue())
			Expect(table.IsLoadOp(sw)).To(BeFalse())
		})
	})

	Describe("Branch instruction detection", func() {
		It("classifies beq/j/jr", func() {
			beq := decode(0x11090000) // beq $t0, $t1, 0
			j := decode(0x08000000)   // j 0
			jr := decode(0x01000008)  // jr $t0

			Expect(table.IsBranchOp(beq)).To(BeTrue())
			Expect(table.IsBranchOp(j)).To(BeTrue())
			Expect(table.IsBranchOp(jr)).To(BeTrue())
		})
	})

	Describe("Nil instruction handling", func() {
		It("defaults to 1 cycle and false classifications", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
			Expect(table.IsLoadOp(nil)).To(BeFalse())
			Expect(table.IsStoreOp(nil)).To(BeFalse())
			Expect(table.IsBranchOp(nil)).To(BeFalse())
		})
	})

	Describe("Custom configuration", func() {
		It("uses custom config values", func() {
			config := &latency.TimingConfig{
				ALULatency:              2,
				BranchLatency:           3,
				BranchMispredictPenalty: 20,
				LoadLatency:             8,
				StoreLatency:            2,
				MultiplyLatency:         4,
				DivideLatency:           12,
				SyscallLatency:          1,
			}
			customTable := latency.NewTableWithConfig(config)

			Expect(customTable.GetLatency(decode(0x01098021))).To(Equal(uint64(2)))
			Expect(customTable.GetLatency(decode(0x8D280000))).To(Equal(uint64(8)))
			Expect(customTable.GetLatency(decode(0x11090000))).To(Equal(uint64(3)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default config", func() {
		It("is valid", func() {
			Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("rejects zero ALU latency", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("rejects zero branch latency", func() {
			config := latency.DefaultTimingConfig()
			config.BranchLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("rejects zero load latency", func() {
			config := latency.DefaultTimingConfig()
			config.LoadLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("rejects zero multiply latency", func() {
			config := latency.DefaultTimingConfig()
			config.MultiplyLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("creates an independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()
			clone.ALULatency = 100

			Expect(original.ALULatency).To(Equal(uint64(1)))
			Expect(clone.ALULatency).To(Equal(uint64(100)))
		})
	})

	Describe("File operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("saves and loads a config", func() {
			original := latency.DefaultTimingConfig()
			original.ALULatency = 5
			original.LoadLatency = 4

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.ALULatency).To(Equal(uint64(5)))
			Expect(loaded.LoadLatency).To(Equal(uint64(4)))
		})

		It("returns an error for a non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})
	})
})
