package ooo

// ROB is the reorder buffer: a circular FIFO of ROBEntry with head
// (oldest, next to commit) and tail (next dispatch slot), fixed
// capacity set at construction.
type ROB struct {
	entries  []ROBEntry
	head     int
	tail     int
	count    int
	capacity int
}

// NewROB creates an empty reorder buffer of the given capacity.
func NewROB(capacity int) *ROB {
	return &ROB{entries: make([]ROBEntry, capacity), capacity: capacity}
}

// Full reports whether the ROB has no free slot for dispatch.
func (r *ROB) Full() bool { return r.count == r.capacity }

// Empty reports whether the ROB has no in-flight instruction.
func (r *ROB) Empty() bool { return r.count == 0 }

// Len returns the number of in-flight entries.
func (r *ROB) Len() int { return r.count }

// Allocate reserves the tail slot for a newly dispatched instruction
// and returns its ROB id (the slot index, stable until that entry is
// freed). Callers must check Full() first.
func (r *ROB) Allocate(entry ROBEntry) int {
	id := r.tail
	entry.Busy = true
	entry.ROBID = id
	r.entries[id] = entry
	r.tail = (r.tail + 1) % r.capacity
	r.count++
	return id
}

// Entry returns a pointer to the entry with the given ROB id, for the
// CDB broadcast and commit phases to mutate in place.
func (r *ROB) Entry(robID int) *ROBEntry {
	return &r.entries[robID]
}

// Head returns a pointer to the oldest in-flight entry, or nil if the
// ROB is empty.
func (r *ROB) Head() *ROBEntry {
	if r.Empty() {
		return nil
	}
	return &r.entries[r.head]
}

// CommitHead frees the head slot, advancing head by one. Callers must
// have already applied the entry's architectural effect.
func (r *ROB) CommitHead() {
	r.entries[r.head] = ROBEntry{}
	r.head = (r.head + 1) % r.capacity
	r.count--
}

// SquashNewerThan discards every in-flight entry younger than keepID
// (exclusive), restoring tail and count. keepID's own entry is kept.
// Used after a branch misprediction to roll the ROB back to the
// mispredicted branch.
func (r *ROB) SquashNewerThan(keepID int) {
	newTail := (keepID + 1) % r.capacity
	newCount := r.distance(r.head, newTail)

	idx := newTail
	for i := 0; i < r.count-newCount; i++ {
		r.entries[idx] = ROBEntry{}
		idx = (idx + 1) % r.capacity
	}

	r.tail = newTail
	r.count = newCount
}

func (r *ROB) distance(from, to int) int {
	if to >= from {
		return to - from
	}
	return r.capacity - from + to
}

// InFlightBefore reports whether robID is strictly older than other
// (i.e. would commit first), using the ROB's head-relative ordering
// rather than raw slot-index comparison (which wraps).
func (r *ROB) InFlightBefore(robID, other int) bool {
	return r.distance(r.head, robID) < r.distance(r.head, other)
}
