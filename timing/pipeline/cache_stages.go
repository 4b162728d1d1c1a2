package pipeline

import (
	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/timing/cache"
)

// CachedFetchStage fetches instructions through an L1 instruction
// cache, exposing cache-miss latency as a multi-cycle stall rather
// than resolving it within a single Tick.
type CachedFetchStage struct {
	cache   *cache.Cache
	memory  *emu.Memory
	pending bool
	pendingPC uint32
	latency   uint64
	result    *fetchResult
}

type fetchResult struct {
	word uint32
	ok   bool
}

// NewCachedFetchStage creates a new cached fetch stage.
func NewCachedFetchStage(icache *cache.Cache, memory *emu.Memory) *CachedFetchStage {
	return &CachedFetchStage{cache: icache, memory: memory}
}

// Fetch fetches the instruction word at pc through the I-cache,
// returning whether the fetch completed this cycle and whether Fetch
// must stall (cache miss still in flight).
func (s *CachedFetchStage) Fetch(pc uint32) (word uint32, ok bool, stall bool) {
	if s.pending && s.pendingPC != pc {
		s.pending = false
		s.latency = 0
		s.result = nil
	}

	if s.pending {
		s.latency--
		if s.latency > 0 {
			return 0, false, true
		}
		s.pending = false
		if s.result != nil {
			return s.result.word, s.result.ok, false
		}
		return 0, false, false
	}

	result := s.cache.Read(pc, 4)
	if result.Hit {
		return uint32(result.Data), true, false
	}

	s.pending = true
	s.pendingPC = pc
	s.latency = result.Latency - 1
	s.result = &fetchResult{word: uint32(result.Data), ok: true}

	if s.latency > 0 {
		return 0, false, true
	}
	s.pending = false
	return uint32(result.Data), true, false
}

// Reset clears pending miss state.
func (s *CachedFetchStage) Reset() {
	s.pending = false
	s.latency = 0
	s.result = nil
}

// CacheStats returns the underlying I-cache statistics.
func (s *CachedFetchStage) CacheStats() cache.Statistics {
	return s.cache.Stats()
}

// CachedMemoryStage performs loads and stores through an L1 data
// cache, turning both hit and miss latency into pipeline stall cycles.
type CachedMemoryStage struct {
	cache *cache.Cache

	pending     bool
	pendingAddr uint32
	pendingPC   uint32
	latency     uint64
	result      *memResult

	// completed holds a finished access while the pipeline is stalled
	// by something else, so a replayed Tick doesn't re-trigger
	// cache.Read and inflate statistics.
	completed       bool
	completedPC     uint32
	completedAddr   uint32
	completedResult *memResult

	storeIssued     bool
	storeIssuedPC   uint32
	storeIssuedAddr uint32
}

type memResult struct {
	data uint32
}

// NewCachedMemoryStage creates a new cached memory stage.
func NewCachedMemoryStage(dcache *cache.Cache) *CachedMemoryStage {
	return &CachedMemoryStage{cache: dcache}
}

// Access performs the memory stage's load or store for latch through
// the D-cache. It returns the read data (if any) and whether Memory
// must stall this cycle.
func (s *CachedMemoryStage) Access(latch *StageLatch) (data uint32, stall bool) {
	if !latch.Valid || (!latch.MemRead && !latch.MemWrite) {
		s.pending = false
		s.completed = false
		return 0, false
	}

	addr := latch.ALUResult
	pc := latch.PC

	if s.pending && (s.pendingPC != pc || s.pendingAddr != addr) {
		s.pending = false
		s.latency = 0
		s.result = nil
	}
	if s.completed && (s.completedPC != pc || s.completedAddr != addr) {
		s.completed = false
		s.completedResult = nil
	}

	if s.completed {
		if s.completedResult != nil && latch.MemRead {
			return s.completedResult.data, false
		}
		return 0, false
	}

	if s.pending {
		s.latency--
		if s.latency > 0 {
			return 0, true
		}
		s.pending = false
		s.completed = true
		s.completedPC, s.completedAddr = pc, addr
		s.completedResult = s.result
		if s.result != nil && latch.MemRead {
			return s.result.data, false
		}
		return 0, false
	}

	size := accessSize(latch.Inst)

	if latch.MemRead {
		result := s.cache.Read(addr, size)
		s.pending = true
		s.pendingPC, s.pendingAddr = pc, addr
		s.latency = result.Latency - 1
		s.result = &memResult{data: uint32(result.Data)}

		if s.latency > 0 {
			return 0, true
		}
		s.pending = false
		s.completed = true
		s.completedPC, s.completedAddr = pc, addr
		s.completedResult = &memResult{data: uint32(result.Data)}
		return uint32(result.Data), false
	}

	if latch.MemWrite {
		if !s.storeIssued || s.storeIssuedPC != pc || s.storeIssuedAddr != addr {
			s.cache.Write(addr, size, uint64(latch.StoreValue))
			s.storeIssued = true
			s.storeIssuedPC, s.storeIssuedAddr = pc, addr
		}
		s.pending = false
		return 0, false
	}

	return 0, false
}

// Reset clears pending and completed state.
func (s *CachedMemoryStage) Reset() {
	s.pending = false
	s.latency = 0
	s.result = nil
	s.completed = false
	s.completedResult = nil
	s.storeIssued = false
}

// CacheStats returns the underlying D-cache statistics.
func (s *CachedMemoryStage) CacheStats() cache.Statistics {
	return s.cache.Stats()
}
