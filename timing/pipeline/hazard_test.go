package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var hazardUnit *pipeline.HazardUnit

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit()
	})

	Describe("DetectForwarding", func() {
		var idex, exmem, memwb *pipeline.StageLatch

		BeforeEach(func() {
			idex = &pipeline.StageLatch{Valid: true, Rs: 1, Rt: 2}
			exmem = &pipeline.StageLatch{}
			memwb = &pipeline.StageLatch{}
		})

		It("forwards nothing when no producer matches", func() {
			result := hazardUnit.DetectForwarding(idex, exmem, memwb)
			Expect(result.ForwardRs).To(Equal(pipeline.ForwardNone))
			Expect(result.ForwardRt).To(Equal(pipeline.ForwardNone))
		})

		It("forwards Rs from EX/MEM", func() {
			exmem.Valid, exmem.RegWrite, exmem.ProducerTag = true, true, 1
			result := hazardUnit.DetectForwarding(idex, exmem, memwb)
			Expect(result.ForwardRs).To(Equal(pipeline.ForwardFromEXMEM))
			Expect(result.ForwardRt).To(Equal(pipeline.ForwardNone))
		})

		It("forwards Rt from MEM/WB when EX/MEM doesn't match", func() {
			memwb.Valid, memwb.RegWrite, memwb.ProducerTag = true, true, 2
			result := hazardUnit.DetectForwarding(idex, exmem, memwb)
			Expect(result.ForwardRt).To(Equal(pipeline.ForwardFromMEMWB))
		})

		It("prefers EX/MEM over MEM/WB when both match", func() {
			exmem.Valid, exmem.RegWrite, exmem.ProducerTag = true, true, 1
			memwb.Valid, memwb.RegWrite, memwb.ProducerTag = true, true, 1
			result := hazardUnit.DetectForwarding(idex, exmem, memwb)
			Expect(result.ForwardRs).To(Equal(pipeline.ForwardFromEXMEM))
		})

		It("never forwards register 0", func() {
			idex.Rs, idex.Rt = 0, 0
			exmem.Valid, exmem.RegWrite, exmem.ProducerTag = true, true, 0
			result := hazardUnit.DetectForwarding(idex, exmem, memwb)
			Expect(result.ForwardRs).To(Equal(pipeline.ForwardNone))
			Expect(result.ForwardRt).To(Equal(pipeline.ForwardNone))
		})

		It("returns no forwarding for an invalid consumer", func() {
			idex.Valid = false
			result := hazardUnit.DetectForwarding(idex, exmem, memwb)
			Expect(result.ForwardRs).To(Equal(pipeline.ForwardNone))
		})
	})

	Describe("GetForwardedValue", func() {
		var exmem, memwb *pipeline.StageLatch

		BeforeEach(func() {
			exmem = &pipeline.StageLatch{ALUResult: 100}
			memwb = &pipeline.StageLatch{ALUResult: 200, MemData: 300}
		})

		It("returns the original value when not forwarding", func() {
			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardNone, 7, exmem, memwb)).To(Equal(uint32(7)))
		})

		It("returns EX/MEM's ALU result", func() {
			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardFromEXMEM, 7, exmem, memwb)).To(Equal(uint32(100)))
		})

		It("returns MEM/WB's ALU result for a non-load producer", func() {
			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardFromMEMWB, 7, exmem, memwb)).To(Equal(uint32(200)))
		})

		It("returns MEM/WB's loaded data when the producer was a load", func() {
			memwb.MemToReg = true
			Expect(hazardUnit.GetForwardedValue(pipeline.ForwardFromMEMWB, 7, exmem, memwb)).To(Equal(uint32(300)))
		})
	})

	Describe("DetectLoadUseHazard", func() {
		It("reports a hazard when the dependent instruction needs the load's destination", func() {
			loadLatch := &pipeline.StageLatch{Valid: true, RegWrite: true, MemRead: true, ProducerTag: 8}
			Expect(hazardUnit.DetectLoadUseHazard(loadLatch, 8, 9)).To(BeTrue())
			Expect(hazardUnit.DetectLoadUseHazard(loadLatch, 9, 8)).To(BeTrue())
		})

		It("reports no hazard for a non-load producer", func() {
			aluLatch := &pipeline.StageLatch{Valid: true, RegWrite: true, ProducerTag: 8}
			Expect(hazardUnit.DetectLoadUseHazard(aluLatch, 8, 9)).To(BeFalse())
		})

		It("reports no hazard when the producer targets register 0", func() {
			loadLatch := &pipeline.StageLatch{Valid: true, RegWrite: true, MemRead: true, ProducerTag: 0}
			Expect(hazardUnit.DetectLoadUseHazard(loadLatch, 0, 0)).To(BeFalse())
		})

		It("reports no hazard when neither operand matches", func() {
			loadLatch := &pipeline.StageLatch{Valid: true, RegWrite: true, MemRead: true, ProducerTag: 8}
			Expect(hazardUnit.DetectLoadUseHazard(loadLatch, 3, 4)).To(BeFalse())
		})
	})

	Describe("RAWHazard", func() {
		It("always reports a hazard on a load-use dependency", func() {
			Expect(hazardUnit.RAWHazard(true, true, pipeline.ForwardingResult{})).To(BeTrue())
		})

		It("reports no hazard when forwarding is enabled and there's no load-use case", func() {
			fwd := pipeline.ForwardingResult{ForwardRs: pipeline.ForwardFromEXMEM}
			Expect(hazardUnit.RAWHazard(true, false, fwd)).To(BeFalse())
		})

		It("reports a hazard when forwarding is disabled and a producer would otherwise supply the value", func() {
			fwd := pipeline.ForwardingResult{ForwardRt: pipeline.ForwardFromMEMWB}
			Expect(hazardUnit.RAWHazard(false, false, fwd)).To(BeTrue())
		})
	})

	Describe("ComputeStalls", func() {
		It("stalls Fetch and Decode and bubbles Execute on a data hazard", func() {
			result := hazardUnit.ComputeStalls(true, false)
			Expect(result.StallIF).To(BeTrue())
			Expect(result.StallID).To(BeTrue())
			Expect(result.InsertBubbleEX).To(BeTrue())
			Expect(result.FlushIF).To(BeFalse())
		})

		It("flushes Fetch and Decode on a branch misprediction", func() {
			result := hazardUnit.ComputeStalls(false, true)
			Expect(result.FlushIF).To(BeTrue())
			Expect(result.FlushID).To(BeTrue())
			Expect(result.StallIF).To(BeFalse())
		})

		It("does nothing when neither condition holds", func() {
			Expect(hazardUnit.ComputeStalls(false, false)).To(Equal(pipeline.StallResult{}))
		})
	})
})
