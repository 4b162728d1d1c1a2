package viz

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TextWriter renders CycleRecords as a human-readable fixed-width
// table, one line per cycle, suitable for a terminal or a log file.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a TextWriter writing to w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// WriteCycle writes one formatted line describing rec. When rec
// carries per-stage entries, each stage renders as NAME[mnemonic] (or
// NAME[stall]/NAME[flush] for a bubble); otherwise the line falls
// back to the single committed/fetched instruction.
func (t *TextWriter) WriteCycle(rec CycleRecord) error {
	var stages strings.Builder
	for _, s := range rec.Stages {
		content := s.Instruction
		switch s.Status {
		case StageStalled:
			content = "stall"
		case StageFlushed:
			content = "flush"
		case StageEmpty:
			content = ""
		}
		fmt.Fprintf(&stages, "  %s[%s]", s.Name, content)
	}

	flags := ""
	if rec.Stalled {
		flags += " [stall]"
	}
	if rec.Flushed {
		flags += " [flush]"
	}
	if rec.Retired {
		flags += " [retired]"
	}
	if len(rec.Hazards) > 0 {
		flags += " [hazard:" + strings.Join(rec.Hazards, ",") + "]"
	}

	_, err := fmt.Fprintf(t.w, "cycle %6d  pc=0x%08x  %-28s%s%s\n",
		rec.Cycle, rec.PC, rec.Instruction, stages.String(), flags)
	return err
}

// Close flushes any buffered output.
func (t *TextWriter) Close() error {
	return t.w.Flush()
}
