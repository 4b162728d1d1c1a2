package viz_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/mips32/viz"
)

var _ = Describe("TextWriter", func() {
	It("renders one line per cycle with flags", func() {
		var buf bytes.Buffer
		w := viz.NewTextWriter(&buf)

		Expect(w.WriteCycle(viz.CycleRecord{Cycle: 1, PC: 0x1000, Instruction: "addiu $a0, $zero, 10", Retired: true})).To(Succeed())
		Expect(w.WriteCycle(viz.CycleRecord{Cycle: 2, PC: 0x1004, Stalled: true})).To(Succeed())
		Expect(w.Close()).To(Succeed())

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(ContainSubstring("0x00001000"))
		Expect(lines[0]).To(ContainSubstring("[retired]"))
		Expect(lines[1]).To(ContainSubstring("[stall]"))
	})
})

var _ = Describe("CSVWriter", func() {
	It("writes a header row followed by one row per cycle when there are no stage entries", func() {
		var buf bytes.Buffer
		w := viz.NewCSVWriter(&buf)

		Expect(w.WriteCycle(viz.CycleRecord{Cycle: 0, PC: 0x400000, Instruction: "nop"})).To(Succeed())
		Expect(w.WriteCycle(viz.CycleRecord{Cycle: 1, PC: 0x400004, Instruction: "addu $t0, $t1, $t2", Retired: true})).To(Succeed())
		Expect(w.Close()).To(Succeed())

		r := csv.NewReader(strings.NewReader(buf.String()))
		rows, err := r.ReadAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0]).To(Equal([]string{
			"cycle", "stage", "pc", "instruction", "status",
			"retired", "stalled", "flushed", "hazards",
			"predictor_accuracy", "icache_hit_rate", "dcache_hit_rate",
		}))
		Expect(rows[2][5]).To(Equal("true"))
	})

	It("writes one row per stage entry", func() {
		var buf bytes.Buffer
		w := viz.NewCSVWriter(&buf)

		Expect(w.WriteCycle(viz.CycleRecord{
			Cycle: 3,
			Stages: []viz.StageEntry{
				{Name: "IF", PC: 0x1010, Instruction: "addiu $t0, $zero, 5", Status: viz.StageBusy},
				{Name: "ID", Status: viz.StageStalled},
				{Name: "EX", Status: viz.StageEmpty},
			},
		})).To(Succeed())
		Expect(w.Close()).To(Succeed())

		r := csv.NewReader(strings.NewReader(buf.String()))
		rows, err := r.ReadAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(HaveLen(4)) // header + 3 stages
		Expect(rows[1][1]).To(Equal("IF"))
		Expect(rows[1][4]).To(Equal("busy"))
		Expect(rows[2][1]).To(Equal("ID"))
		Expect(rows[2][4]).To(Equal("stalled"))
		Expect(rows[3][4]).To(Equal("empty"))
	})
})

var _ = Describe("JSONWriter", func() {
	It("streams one JSON object per line", func() {
		var buf bytes.Buffer
		w := viz.NewJSONWriter(&buf)

		Expect(w.WriteCycle(viz.CycleRecord{Cycle: 5, PC: 0x2000, Instruction: "sw $t0, 0($sp)"})).To(Succeed())
		Expect(w.WriteCycle(viz.CycleRecord{Cycle: 6, PC: 0x2004, Flushed: true})).To(Succeed())
		Expect(w.Close()).To(Succeed())

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(2))

		var first viz.CycleRecord
		Expect(json.Unmarshal([]byte(lines[0]), &first)).To(Succeed())
		Expect(first.Cycle).To(Equal(uint64(5)))
		Expect(first.Instruction).To(Equal("sw $t0, 0($sp)"))

		var second viz.CycleRecord
		Expect(json.Unmarshal([]byte(lines[1]), &second)).To(Succeed())
		Expect(second.Flushed).To(BeTrue())
	})
})

var _ = Describe("NewWriter", func() {
	It("selects TextWriter for an empty or text format", func() {
		w, err := viz.NewWriter("", &bytes.Buffer{})
		Expect(err).ToNot(HaveOccurred())
		Expect(w).To(BeAssignableToTypeOf(&viz.TextWriter{}))
	})

	It("selects CSVWriter and JSONWriter by name", func() {
		csvW, err := viz.NewWriter(viz.FormatCSV, &bytes.Buffer{})
		Expect(err).ToNot(HaveOccurred())
		Expect(csvW).To(BeAssignableToTypeOf(&viz.CSVWriter{}))

		jsonW, err := viz.NewWriter(viz.FormatJSON, &bytes.Buffer{})
		Expect(err).ToNot(HaveOccurred())
		Expect(jsonW).To(BeAssignableToTypeOf(&viz.JSONWriter{}))
	})

	It("rejects an unknown format", func() {
		_, err := viz.NewWriter("xml", &bytes.Buffer{})
		Expect(err).To(HaveOccurred())
	})
})
