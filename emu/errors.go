// Package emu provides functional MIPS32 emulation.
package emu

import "fmt"

// FaultKind identifies the taxonomy of faults the functional and timing
// cores can raise. Every execute-path error in this module is one of
// these kinds; there is no other error taxonomy in the simulator.
type FaultKind int

// Fault kinds, shared by the functional engine, the in-order pipeline,
// and the out-of-order engine.
const (
	// MemoryOutOfBounds is raised when an access falls outside the
	// configured memory range.
	MemoryOutOfBounds FaultKind = iota
	// MemoryMisaligned is raised when a half/word access is not
	// naturally aligned.
	MemoryMisaligned
	// AddressOverflow is raised when an effective-address computation
	// wraps past the 32-bit address space.
	AddressOverflow
	// InvalidInstruction is raised when the decoder cannot classify a
	// 32-bit instruction word.
	InvalidInstruction
	// InvalidBranchTarget is raised when a branch/jump target is
	// unaligned or outside memory.
	InvalidBranchTarget
	// DivisionByZero is raised by div/divu with a zero divisor.
	DivisionByZero
	// ArithmeticOverflow is raised by signed add/sub/addi overflow.
	ArithmeticOverflow
	// InvalidSyscall is raised for an unrecognized $v0 syscall number.
	InvalidSyscall
	// Breakpoint is raised by a `break` instruction or a configured
	// breakpoint address.
	Breakpoint
)

func (k FaultKind) String() string {
	switch k {
	case MemoryOutOfBounds:
		return "MemoryOutOfBounds"
	case MemoryMisaligned:
		return "MemoryMisaligned"
	case AddressOverflow:
		return "AddressOverflow"
	case InvalidInstruction:
		return "InvalidInstruction"
	case InvalidBranchTarget:
		return "InvalidBranchTarget"
	case DivisionByZero:
		return "DivisionByZero"
	case ArithmeticOverflow:
		return "ArithmeticOverflow"
	case InvalidSyscall:
		return "InvalidSyscall"
	case Breakpoint:
		return "Breakpoint"
	default:
		return "UnknownFault"
	}
}

// Fault is the single error type returned by decode, execute, and
// memory operations throughout the simulator. The surrounding driver
// (functional engine, in-order pipeline, or OoO commit stage)
// classifies it as recoverable or fatal via Kind.Fatal.
type Fault struct {
	Kind    FaultKind
	PC      uint32
	Address uint32
	Width   int
	Word    uint32
	Target  uint32
	Code    uint32
}

func (f *Fault) Error() string {
	switch f.Kind {
	case MemoryOutOfBounds:
		return fmt.Sprintf("memory out of bounds: address=0x%08x", f.Address)
	case MemoryMisaligned:
		return fmt.Sprintf("misaligned access: address=0x%08x width=%d", f.Address, f.Width)
	case AddressOverflow:
		return "effective address computation overflowed"
	case InvalidInstruction:
		return fmt.Sprintf("invalid instruction word 0x%08x at pc=0x%08x", f.Word, f.PC)
	case InvalidBranchTarget:
		return fmt.Sprintf("invalid branch target 0x%08x", f.Target)
	case DivisionByZero:
		return "division by zero"
	case ArithmeticOverflow:
		return "signed arithmetic overflow"
	case InvalidSyscall:
		return fmt.Sprintf("invalid syscall code %d", f.Code)
	case Breakpoint:
		return fmt.Sprintf("breakpoint at pc=0x%08x", f.PC)
	default:
		return "unknown fault"
	}
}

// Fatal reports whether this fault kind should terminate the
// simulation. Breakpoint pauses for inspection rather than terminating
// with a failure status; every other kind is fatal.
func (k FaultKind) Fatal() bool {
	return k != Breakpoint
}

// NewFault builds a Fault of the given kind with no extra fields set.
func NewFault(kind FaultKind, pc uint32) *Fault {
	return &Fault{Kind: kind, PC: pc}
}
