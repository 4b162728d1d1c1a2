package benchmarks

import "fmt"

// Report summarizes one program's run under one execution model, in
// the spirit of the reference emulator's calibration harness, scaled
// down to the counters this project's core.Stats/core.OOOStats
// actually expose.
type Report struct {
	Name         string
	Cycles       uint64
	Instructions uint64
	CPI          float64
	ExitCode     int32
	Fault        error
}

// String renders a one-line human-readable summary, e.g. for a CLI
// "--bench" mode or ad hoc debugging.
func (r Report) String() string {
	if r.Fault != nil {
		return fmt.Sprintf("%-24s FAULT: %v", r.Name, r.Fault)
	}
	return fmt.Sprintf("%-24s cycles=%-8d insns=%-6d cpi=%.3f exit=%d",
		r.Name, r.Cycles, r.Instructions, r.CPI, r.ExitCode)
}
