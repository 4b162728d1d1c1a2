package pipeline

// ForwardSource indicates where a forwarded operand value should come
// from.
type ForwardSource int

const (
	// ForwardNone means no forwarding is needed; use the value already
	// latched at Decode (or, equivalently, the register file).
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from the EX/MEM latch.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from the MEM/WB latch.
	ForwardFromMEMWB
)

// ForwardingResult carries the forwarding decision for both source
// operands of the instruction currently in Decode.
type ForwardingResult struct {
	ForwardRs ForwardSource
	ForwardRt ForwardSource
}

// StallResult carries the stall/flush control signals a single Tick
// derives from hazard detection.
type StallResult struct {
	// StallIF/StallID hold Fetch/Decode in place, re-presenting the
	// same instruction next cycle.
	StallIF bool
	StallID bool
	// InsertBubbleEX marks the latch entering Execute as a stall
	// bubble instead of letting the stalled instruction proceed.
	InsertBubbleEX bool
	// FlushIF/FlushID squash the instructions currently in Fetch and
	// Decode, for a resolved branch misprediction.
	FlushIF bool
	FlushID bool
}

// HazardUnit detects RAW and load-use data hazards and derives the
// forwarding and stall signals a single-issue in-order pipeline needs
// to stay architecturally correct without flushing on every dependency.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding checks the source registers of the instruction
// about to leave Decode against the destination registers of the
// instructions currently occupying EX/MEM and MEM/WB — the two
// producer positions a single-issue 5-stage pipeline can still supply
// a value from without stalling.
func (h *HazardUnit) DetectForwarding(idex *StageLatch, exmem, memwb *StageLatch) ForwardingResult {
	if !idex.Valid {
		return ForwardingResult{}
	}
	return ForwardingResult{
		ForwardRs: h.detectForwardForReg(idex.Rs, exmem, memwb),
		ForwardRt: h.detectForwardForReg(idex.Rt, exmem, memwb),
	}
}

// detectForwardForReg picks the nearer of the two candidate producers.
// EX/MEM is one cycle newer than MEM/WB and takes precedence.
func (h *HazardUnit) detectForwardForReg(reg uint8, exmem, memwb *StageLatch) ForwardSource {
	if reg == 0 {
		return ForwardNone
	}
	if exmem.Valid && exmem.RegWrite && exmem.ProducerTag == reg {
		return ForwardFromEXMEM
	}
	if memwb.Valid && memwb.RegWrite && memwb.ProducerTag == reg {
		return ForwardFromMEMWB
	}
	return ForwardNone
}

// GetForwardedValue resolves a forwarding decision into the actual
// value to substitute for a stale register read.
func (h *HazardUnit) GetForwardedValue(forward ForwardSource, original uint32, exmem, memwb *StageLatch) uint32 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		if memwb.MemToReg {
			return memwb.MemData
		}
		return memwb.ALUResult
	default:
		return original
	}
}

// DetectLoadUseHazard reports whether the instruction currently in
// EX/MEM is a load whose result the instruction now in Decode needs —
// the one case forwarding cannot resolve, since the loaded value isn't
// available until that load's own Memory stage completes next cycle.
func (h *HazardUnit) DetectLoadUseHazard(exmem *StageLatch, rs, rt uint8) bool {
	if !exmem.Valid || !exmem.RegWrite || !exmem.MemRead || exmem.ProducerTag == 0 {
		return false
	}
	return exmem.ProducerTag == rs || exmem.ProducerTag == rt
}

// RAWHazard reports whether the instruction in Decode needs a value
// still in flight in EX/MEM or MEM/WB that forwarding cannot supply
// (forwarding disabled, or the producer is the load-use case above).
func (h *HazardUnit) RAWHazard(forwarding bool, loadUse bool, fwd ForwardingResult) bool {
	if loadUse {
		return true
	}
	if forwarding {
		return false
	}
	return fwd.ForwardRs != ForwardNone || fwd.ForwardRt != ForwardNone
}

// ComputeStalls derives the stage-level stall/flush signals for one
// Tick from the hazard conditions resolved this cycle.
func (h *HazardUnit) ComputeStalls(dataHazard bool, branchMisprediction bool) StallResult {
	result := StallResult{}
	if dataHazard {
		result.StallIF = true
		result.StallID = true
		result.InsertBubbleEX = true
	}
	if branchMisprediction {
		result.FlushIF = true
		result.FlushID = true
	}
	return result
}
