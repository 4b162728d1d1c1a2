package ooo

import (
	"sort"

	"github.com/archsim/mips32/insts"
)

// stationBank holds the fixed-size reservation-station slice for one
// functional-unit class.
type stationBank struct {
	entries []rsEntry
}

func newStationBank(size int) *stationBank {
	return &stationBank{entries: make([]rsEntry, size)}
}

// allocate claims a free slot and returns its index, or ok=false if
// the bank is full. qjWantsHI/qkWantsHI mark a pending operand as
// waiting on its producer's HI half instead of the general result/LO
// half (see rsEntry.QjWantsHI).
func (b *stationBank) allocate(inst *insts.Instruction, pc uint32, robID int, vj, vk uint32, qj, qk int, qjWantsHI, qkWantsHI bool) (int, bool) {
	for i := range b.entries {
		if !b.entries[i].Busy {
			b.entries[i] = rsEntry{
				Busy: true, Inst: inst, PC: pc, ROBID: robID,
				Vj: vj, Vk: vk, Qj: qj, Qk: qk,
				QjWantsHI: qjWantsHI, QkWantsHI: qkWantsHI,
			}
			return i, true
		}
	}
	return 0, false
}

// full reports whether every slot is occupied.
func (b *stationBank) full() bool {
	for i := range b.entries {
		if !b.entries[i].Busy {
			return false
		}
	}
	return true
}

// captureBroadcast resolves any station waiting on robID's result,
// clearing Qj/Qk and filling Vj/Vk. Mirrors the ROB/RAT capture in
// Driver.writeback but scoped to this bank's stations. A pending
// operand marked QjWantsHI/QkWantsHI takes hiValue instead of value —
// mult/div/mthi/mtlo broadcast both halves, but only mfhi and mtlo's
// passthrough operand ever want the HI half specifically.
func (b *stationBank) captureBroadcast(robID int, value, hiValue uint32) {
	for i := range b.entries {
		e := &b.entries[i]
		if !e.Busy {
			continue
		}
		if e.Qj == robID {
			if e.QjWantsHI {
				e.Vj = hiValue
			} else {
				e.Vj = value
			}
			e.Qj = noProducer
		}
		if e.Qk == robID {
			if e.QkWantsHI {
				e.Vk = hiValue
			} else {
				e.Vk = value
			}
			e.Qk = noProducer
		}
	}
}

// ready reports whether the station at idx has both operands
// resolved and has not already been issued.
func (b *stationBank) ready(idx int) bool {
	e := &b.entries[idx]
	return e.Busy && !e.Issued && e.Qj == noProducer && e.Qk == noProducer
}

// selectIssue returns up to width busy, ready, unissued station
// indices, oldest-first by ROB order.
func (b *stationBank) selectIssue(rob *ROB, width int) []int {
	var candidates []int
	for i := range b.entries {
		if b.ready(i) {
			candidates = append(candidates, i)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return rob.InFlightBefore(b.entries[candidates[i]].ROBID, b.entries[candidates[j]].ROBID)
	})
	if len(candidates) > width {
		candidates = candidates[:width]
	}
	return candidates
}

// free releases the slot, to be called once the functional unit has
// broadcast its result.
func (b *stationBank) free(idx int) {
	b.entries[idx] = rsEntry{}
}

// squashNewerThan releases every busy station younger than keepID,
// used on a branch misprediction.
func (b *stationBank) squashNewerThan(rob *ROB, keepID int) {
	for i := range b.entries {
		if b.entries[i].Busy && rob.InFlightBefore(keepID, b.entries[i].ROBID) {
			b.entries[i] = rsEntry{}
		}
	}
}
