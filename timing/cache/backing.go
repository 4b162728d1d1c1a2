package cache

import (
	"github.com/archsim/mips32/emu"
)

// MemoryBacking adapts emu.Memory to BackingStore, letting the
// lowest-level cache in a hierarchy sit directly in front of
// architectural memory.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking wraps memory as a BackingStore.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// ReadBlock fetches size bytes from memory starting at addr.
func (m *MemoryBacking) ReadBlock(addr uint32, size int) []byte {
	return m.memory.ReadBlock(addr, size)
}

// WriteBlock writes data back into memory starting at addr.
func (m *MemoryBacking) WriteBlock(addr uint32, data []byte) {
	m.memory.WriteBlock(addr, data)
}

// CacheBacking adapts a Cache to BackingStore, letting one cache sit
// in front of another in a multi-level hierarchy (e.g. L1D in front
// of a shared L2).
type CacheBacking struct {
	cache *Cache
}

// NewCacheBacking wraps cache as a BackingStore for the next level up.
func NewCacheBacking(cache *Cache) *CacheBacking {
	return &CacheBacking{cache: cache}
}

// ReadBlock reads size bytes starting at addr through the wrapped
// cache, byte by byte via its word-oriented Read so the access is
// charged against its statistics like any other miss-path fetch.
func (b *CacheBacking) ReadBlock(addr uint32, size int) []byte {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = byte(b.cache.Read(addr+uint32(i), 1).Data)
	}
	return out
}

// WriteBlock writes data back into the wrapped cache one byte at a
// time.
func (b *CacheBacking) WriteBlock(addr uint32, data []byte) {
	for i, v := range data {
		b.cache.Write(addr+uint32(i), 1, uint64(v))
	}
}
