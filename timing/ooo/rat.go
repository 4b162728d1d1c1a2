package ooo

// RATEntry is one architectural register's alias: either the value
// lives in the register file (Committed) or a not-yet-retired ROB
// entry will produce it.
type RATEntry struct {
	Committed bool
	ROBID     int
}

// RAT is the register alias table: `[32]RATEntry` mapping an
// architectural register index to either a pending producer's ROB id
// or "committed" (value lives in the architectural register file). HI
// and LO are not GPR-numbered, so they get their own pair of entries
// tracked alongside the GPR array.
type RAT struct {
	entries [32]RATEntry
	hi, lo  RATEntry
}

// RATSnapshot is the full alias-table state captured at a branch's
// dispatch, restored wholesale if that branch mispredicts.
type RATSnapshot struct {
	entries [32]RATEntry
	hi, lo  RATEntry
}

// NewRAT creates a RAT with every register, plus HI and LO, initially
// committed.
func NewRAT() *RAT {
	r := &RAT{}
	r.Reset()
	return r
}

// Reset marks every register and HI/LO committed, discarding all
// aliases.
func (r *RAT) Reset() {
	for i := range r.entries {
		r.entries[i] = RATEntry{Committed: true}
	}
	r.hi = RATEntry{Committed: true}
	r.lo = RATEntry{Committed: true}
}

// Lookup returns the alias for reg. Register 0 is always reported
// committed: RegFile silently discards writes to it, so it can never
// have a pending producer.
func (r *RAT) Lookup(reg uint8) RATEntry {
	if reg == 0 {
		return RATEntry{Committed: true}
	}
	return r.entries[reg]
}

// SetProducer records that robID will produce reg's next value.
func (r *RAT) SetProducer(reg uint8, robID int) {
	if reg == 0 {
		return
	}
	r.entries[reg] = RATEntry{Committed: false, ROBID: robID}
}

// ClearIfProducer marks reg committed, but only if it still points at
// robID — a later dispatch may have already overwritten the alias
// with a younger producer, in which case this commit must not clobber
// it (invariant: at most one RAT entry points to a given ROB id).
func (r *RAT) ClearIfProducer(reg uint8, robID int) {
	if reg == 0 {
		return
	}
	if e := r.entries[reg]; !e.Committed && e.ROBID == robID {
		r.entries[reg] = RATEntry{Committed: true}
	}
}

// LookupHI and LookupLO mirror Lookup for the two special registers
// mult/div/mthi/mtlo produce into and mfhi/mflo read from.
func (r *RAT) LookupHI() RATEntry { return r.hi }
func (r *RAT) LookupLO() RATEntry { return r.lo }

// SetProducerHI and SetProducerLO mirror SetProducer for HI/LO.
func (r *RAT) SetProducerHI(robID int) { r.hi = RATEntry{Committed: false, ROBID: robID} }
func (r *RAT) SetProducerLO(robID int) { r.lo = RATEntry{Committed: false, ROBID: robID} }

// ClearIfProducerHI and ClearIfProducerLO mirror ClearIfProducer for
// HI/LO.
func (r *RAT) ClearIfProducerHI(robID int) {
	if !r.hi.Committed && r.hi.ROBID == robID {
		r.hi = RATEntry{Committed: true}
	}
}

func (r *RAT) ClearIfProducerLO(robID int) {
	if !r.lo.Committed && r.lo.ROBID == robID {
		r.lo = RATEntry{Committed: true}
	}
}

// Snapshot copies the current alias table, including HI/LO, for
// restoring on a branch misprediction.
func (r *RAT) Snapshot() RATSnapshot {
	return RATSnapshot{entries: r.entries, hi: r.hi, lo: r.lo}
}

// Restore replaces the alias table wholesale, used to roll back to a
// snapshot taken at a branch's dispatch.
func (r *RAT) Restore(snapshot RATSnapshot) {
	r.entries = snapshot.entries
	r.hi = snapshot.hi
	r.lo = snapshot.lo
}
