// Package emu provides functional MIPS32 emulation.
package emu

// LoadStoreUnit implements MIPS32 load and store operations. Every
// method computes a base-plus-offset effective address and delegates
// the access to Memory, which is the sole source of bounds and
// alignment faults.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{regFile: regFile, memory: memory}
}

func (lsu *LoadStoreUnit) effectiveAddress(rs uint8, offset uint32) uint32 {
	return lsu.regFile.Read(rs) + offset
}

// Lw loads a word: rt = sign_extend(mem32[rs+offset]) -- the load is
// already 32 bits wide so no extension is visible, but the faulting
// PC belongs to the caller.
func (lsu *LoadStoreUnit) Lw(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	value, err := lsu.memory.Read32(addr)
	if err != nil {
		return err
	}
	lsu.regFile.Write(rt, value)
	return nil
}

// Lh loads a halfword with sign extension: rt = sign_extend(mem16[rs+offset]).
func (lsu *LoadStoreUnit) Lh(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	value, err := lsu.memory.Read16(addr)
	if err != nil {
		return err
	}
	lsu.regFile.Write(rt, uint32(int32(int16(value))))
	return nil
}

// Lhu loads a halfword with zero extension: rt = zero_extend(mem16[rs+offset]).
func (lsu *LoadStoreUnit) Lhu(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	value, err := lsu.memory.Read16(addr)
	if err != nil {
		return err
	}
	lsu.regFile.Write(rt, uint32(value))
	return nil
}

// Lb loads a byte with sign extension: rt = sign_extend(mem8[rs+offset]).
func (lsu *LoadStoreUnit) Lb(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	value, err := lsu.memory.Read8(addr)
	if err != nil {
		return err
	}
	lsu.regFile.Write(rt, uint32(int32(int8(value))))
	return nil
}

// Lbu loads a byte with zero extension: rt = zero_extend(mem8[rs+offset]).
func (lsu *LoadStoreUnit) Lbu(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	value, err := lsu.memory.Read8(addr)
	if err != nil {
		return err
	}
	lsu.regFile.Write(rt, uint32(value))
	return nil
}

// Sw stores a word: mem32[rs+offset] = rt.
func (lsu *LoadStoreUnit) Sw(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	return lsu.memory.Write32(addr, lsu.regFile.Read(rt))
}

// Sh stores a halfword: mem16[rs+offset] = rt[15:0].
func (lsu *LoadStoreUnit) Sh(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	return lsu.memory.Write16(addr, uint16(lsu.regFile.Read(rt)))
}

// Sb stores a byte: mem8[rs+offset] = rt[7:0].
func (lsu *LoadStoreUnit) Sb(rt, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	return lsu.memory.Write8(addr, uint8(lsu.regFile.Read(rt)))
}

// Lwc1 loads a word into a floating-point register: ft = mem32[rs+offset].
func (lsu *LoadStoreUnit) Lwc1(ft, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	value, err := lsu.memory.Read32(addr)
	if err != nil {
		return err
	}
	lsu.regFile.WriteF(ft, value)
	return nil
}

// Swc1 stores a floating-point register's bit pattern: mem32[rs+offset] = ft.
func (lsu *LoadStoreUnit) Swc1(ft, rs uint8, offset uint32) error {
	addr := lsu.effectiveAddress(rs, offset)
	return lsu.memory.Write32(addr, lsu.regFile.ReadF(ft))
}
