package viz

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVWriter renders CycleRecords as CSV rows, one row per cycle per
// stage, with a header row written before the first record. A
// CycleRecord with no per-stage entries (the out-of-order engine, the
// functional emulator) still writes exactly one row, carrying the
// record's own instruction/PC in place of a stage entry.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter creates a CSVWriter writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

var csvHeader = []string{
	"cycle", "stage", "pc", "instruction", "status",
	"retired", "stalled", "flushed", "hazards",
	"predictor_accuracy", "icache_hit_rate", "dcache_hit_rate",
}

// WriteCycle writes one CSV row per stage in rec (or one row for the
// record as a whole if it carries no stage entries), writing the
// header row first if this is the first call.
func (c *CSVWriter) WriteCycle(rec CycleRecord) error {
	if !c.wroteHeader {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}

	stages := rec.Stages
	if len(stages) == 0 {
		status := StageEmpty
		if rec.Instruction != "" {
			status = StageBusy
		}
		if rec.Flushed {
			status = StageFlushed
		} else if rec.Stalled {
			status = StageStalled
		}
		stages = []StageEntry{{PC: rec.PC, Instruction: rec.Instruction, Status: status}}
	}

	for _, s := range stages {
		row := []string{
			strconv.FormatUint(rec.Cycle, 10),
			s.Name,
			"0x" + strconv.FormatUint(uint64(s.PC), 16),
			s.Instruction,
			s.Status.String(),
			strconv.FormatBool(rec.Retired),
			strconv.FormatBool(rec.Stalled),
			strconv.FormatBool(rec.Flushed),
			strings.Join(rec.Hazards, ";"),
			fmt.Sprintf("%.2f", rec.Predictor.Accuracy()),
			fmt.Sprintf("%.2f", rec.ICache.HitRate()),
			fmt.Sprintf("%.2f", rec.DCache.HitRate()),
		}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes any buffered output.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
