package pipeline

import "fmt"

// StallProfile returns a formatted summary of where Tick spent cycles,
// for quick inspection without reaching into the raw Statistics
// fields.
func (p *Pipeline) StallProfile() string {
	s := p.stats
	return fmt.Sprintf(
		"Stall Profile:\n"+
			"  Cycles:                %d\n"+
			"  Instructions:          %d\n"+
			"  CPI:                   %.3f\n"+
			"  Data Hazards:          %d\n"+
			"  Exec Stalls:           %d\n"+
			"  Mem Stalls:            %d\n"+
			"  Fetch/Other Stalls:    %d\n"+
			"  Pipeline Flushes:      %d\n"+
			"  Branch Predictions:    %d\n"+
			"  Branch Correct:        %d\n"+
			"  Branch Mispredictions: %d\n",
		s.Cycles,
		s.Instructions,
		s.CPI(),
		s.DataHazards,
		s.ExecStalls,
		s.MemStalls,
		s.Stalls,
		s.Flushes,
		s.BranchPredictions,
		s.BranchCorrect,
		s.BranchMispredictions,
	)
}
