// Package emu provides functional MIPS32 emulation.
package emu

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/archsim/mips32/insts"
)

// StepResult reports the outcome of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated, either via the exit
	// syscall or a fatal fault.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int32

	// Err is set if a fault occurred during this step. A fault whose
	// Kind.Fatal() is false (only Breakpoint today) leaves Exited
	// false so the caller can resume after inspecting state.
	Err error
}

// Emulator executes MIPS32 instructions functionally: fetch, decode,
// execute, advance PC, repeat. It has no notion of cycles, stages, or
// timing; Step always completes an instruction in one call.
type Emulator struct {
	regFile        *RegFile
	memory         *Memory
	decoder        *insts.Decoder
	syscallHandler SyscallHandler

	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	fpUnit     *FPUnit

	stdin  io.Reader
	stdout io.Writer

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the
// Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) { e.stdout = w }
}

// WithStdin sets a custom stdin reader, used by the read-int/
// read-string/read-char syscalls.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) { e.stdin = r }
}

// WithSyscallHandler overrides the default console syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) { e.syscallHandler = handler }
}

// WithMaxInstructions sets the maximum number of instructions to
// execute. A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) { e.maxInstructions = max }
}

// WithMemory replaces the default-sized memory with an
// already-populated one, typically produced by the loader.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) { e.memory = m }
}

// WithStackPointer sets the initial stack pointer ($sp, register 29).
func WithStackPointer(sp uint32) EmulatorOption {
	return func(e *Emulator) { e.regFile.Write(29, sp) }
}

// WithEntryPoint sets the initial program counter.
func WithEntryPoint(pc uint32) EmulatorOption {
	return func(e *Emulator) { e.regFile.PC = pc }
}

// NewEmulator creates a new MIPS32 functional emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
	e.regFile.Write(29, StackTop)

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.memory)
	e.branchUnit = NewBranchUnit(e.regFile)
	e.fpUnit = NewFPUnit(e.regFile)

	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(e.regFile, e.memory, e.stdin, e.stdout)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed so
// far.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step fetches, decodes, and executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Exited: true, Err: fmt.Errorf("max instructions reached")}
	}

	pc := e.regFile.PC
	word, err := e.memory.Read32(pc)
	if err != nil {
		return e.fault(err)
	}

	inst, err := e.decoder.Decode(word)
	if err != nil {
		return e.fault(&Fault{Kind: InvalidInstruction, PC: pc, Word: word})
	}

	e.instructionCount++

	redirected, result := e.execute(pc, inst)
	if result.Err != nil || result.Exited {
		return result
	}
	if !redirected {
		e.regFile.PC = pc + 4
	}
	return StepResult{}
}

// Run executes instructions until the program exits, a fatal fault
// occurs, or ctx is cancelled, returning the exit code (-1 on a fatal,
// non-exit fault or on cancellation). ctx.Err() is checked once per
// instruction.
func (e *Emulator) Run(ctx context.Context) int32 {
	for {
		if ctx.Err() != nil {
			return -1
		}
		result := e.Step()
		if result.Err != nil {
			if f, ok := result.Err.(*Fault); ok && !f.Kind.Fatal() {
				continue
			}
			return -1
		}
		if result.Exited {
			return result.ExitCode
		}
	}
}

func (e *Emulator) fault(err error) StepResult {
	if f, ok := err.(*Fault); ok {
		return StepResult{Exited: f.Kind.Fatal(), Err: f}
	}
	return StepResult{Exited: true, Err: err}
}

// execute dispatches a decoded instruction. redirected reports
// whether the instruction already set PC itself (branch/jump), so
// Step should not also add 4.
func (e *Emulator) execute(pc uint32, inst *insts.Instruction) (redirected bool, result StepResult) {
	switch inst.Family {
	case insts.FamilyNop:
		return false, StepResult{}

	case insts.FamilySyscall:
		return e.executeSyscall(pc, inst)

	case insts.FamilyR:
		return e.executeR(inst)

	case insts.FamilyI:
		return e.executeI(pc, inst)

	case insts.FamilyJ:
		return e.executeJ(pc, inst)

	case insts.FamilyFPR:
		return false, e.wrap(e.executeFPR(inst))

	case insts.FamilyFPBranch:
		taken := e.executeFPBranch(pc, inst)
		return taken, StepResult{}

	case insts.FamilyFPMem:
		return false, e.wrap(e.executeFPMem(inst))

	default:
		return false, e.fault(&Fault{Kind: InvalidInstruction, PC: pc, Word: inst.Word})
	}
}

func (e *Emulator) wrap(err error) StepResult {
	if err == nil {
		return StepResult{}
	}
	return e.fault(err)
}

func (e *Emulator) executeSyscall(pc uint32, inst *insts.Instruction) (bool, StepResult) {
	switch inst.Op {
	case insts.OpBreak:
		return false, e.fault(&Fault{Kind: Breakpoint, PC: pc})
	default: // OpSyscall
		result, err := e.syscallHandler.Handle()
		if err != nil {
			return false, e.fault(err)
		}
		if result.Exited {
			return false, StepResult{Exited: true, ExitCode: result.ExitCode}
		}
		return false, StepResult{}
	}
}

func (e *Emulator) executeR(inst *insts.Instruction) (bool, StepResult) {
	switch inst.Op {
	case insts.OpAdd:
		return false, e.wrap(e.alu.Add(inst.Rd, inst.Rs, inst.Rt))
	case insts.OpAddu:
		e.alu.Addu(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpSub:
		return false, e.wrap(e.alu.Sub(inst.Rd, inst.Rs, inst.Rt))
	case insts.OpSubu:
		e.alu.Subu(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpAnd:
		e.alu.And(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpOr:
		e.alu.Or(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpXor:
		e.alu.Xor(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpNor:
		e.alu.Nor(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpSlt:
		e.alu.Slt(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpSltu:
		e.alu.Sltu(inst.Rd, inst.Rs, inst.Rt)
	case insts.OpSll:
		e.alu.Sll(inst.Rd, inst.Rt, inst.Shamt)
	case insts.OpSrl:
		e.alu.Srl(inst.Rd, inst.Rt, inst.Shamt)
	case insts.OpSra:
		e.alu.Sra(inst.Rd, inst.Rt, inst.Shamt)
	case insts.OpSllv:
		e.alu.Sllv(inst.Rd, inst.Rt, inst.Rs)
	case insts.OpSrlv:
		e.alu.Srlv(inst.Rd, inst.Rt, inst.Rs)
	case insts.OpSrav:
		e.alu.Srav(inst.Rd, inst.Rt, inst.Rs)
	case insts.OpMult:
		e.alu.Mult(inst.Rs, inst.Rt)
	case insts.OpMultu:
		e.alu.Multu(inst.Rs, inst.Rt)
	case insts.OpDiv:
		return false, e.wrap(e.alu.Div(inst.Rs, inst.Rt))
	case insts.OpDivu:
		return false, e.wrap(e.alu.Divu(inst.Rs, inst.Rt))
	case insts.OpMfhi:
		e.alu.Mfhi(inst.Rd)
	case insts.OpMflo:
		e.alu.Mflo(inst.Rd)
	case insts.OpMthi:
		e.alu.Mthi(inst.Rs)
	case insts.OpMtlo:
		e.alu.Mtlo(inst.Rs)
	case insts.OpJr:
		if err := e.branchUnit.Jr(inst.Rs); err != nil {
			return false, e.fault(err)
		}
		return true, StepResult{}
	case insts.OpJalr:
		pc := e.regFile.PC
		if err := e.branchUnit.Jalr(pc, inst.Rd, inst.Rs); err != nil {
			return false, e.fault(err)
		}
		return true, StepResult{}
	default:
		return false, e.fault(&Fault{Kind: InvalidInstruction, Word: inst.Word})
	}
	return false, StepResult{}
}

func (e *Emulator) executeI(pc uint32, inst *insts.Instruction) (bool, StepResult) {
	switch inst.Op {
	case insts.OpAddi:
		return false, e.wrap(e.alu.Addi(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpAddiu:
		e.alu.Addiu(inst.Rt, inst.Rs, inst.Imm)
	case insts.OpSlti:
		e.alu.Slti(inst.Rt, inst.Rs, inst.Imm)
	case insts.OpSltiu:
		e.alu.Sltiu(inst.Rt, inst.Rs, inst.Imm)
	case insts.OpAndi:
		e.alu.Andi(inst.Rt, inst.Rs, inst.Imm)
	case insts.OpOri:
		e.alu.Ori(inst.Rt, inst.Rs, inst.Imm)
	case insts.OpXori:
		e.alu.Xori(inst.Rt, inst.Rs, inst.Imm)
	case insts.OpLui:
		e.alu.Lui(inst.Rt, inst.Imm)
	case insts.OpBeq:
		return e.branchUnit.Beq(pc, inst.Rs, inst.Rt, inst.Imm), StepResult{}
	case insts.OpBne:
		return e.branchUnit.Bne(pc, inst.Rs, inst.Rt, inst.Imm), StepResult{}
	case insts.OpBlez:
		return e.branchUnit.Blez(pc, inst.Rs, inst.Imm), StepResult{}
	case insts.OpBgtz:
		return e.branchUnit.Bgtz(pc, inst.Rs, inst.Imm), StepResult{}
	case insts.OpBltz:
		return e.branchUnit.Bltz(pc, inst.Rs, inst.Imm), StepResult{}
	case insts.OpBgez:
		return e.branchUnit.Bgez(pc, inst.Rs, inst.Imm), StepResult{}
	case insts.OpLw:
		return false, e.wrap(e.lsu.Lw(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpLh:
		return false, e.wrap(e.lsu.Lh(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpLhu:
		return false, e.wrap(e.lsu.Lhu(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpLb:
		return false, e.wrap(e.lsu.Lb(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpLbu:
		return false, e.wrap(e.lsu.Lbu(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpSw:
		return false, e.wrap(e.lsu.Sw(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpSh:
		return false, e.wrap(e.lsu.Sh(inst.Rt, inst.Rs, inst.Imm))
	case insts.OpSb:
		return false, e.wrap(e.lsu.Sb(inst.Rt, inst.Rs, inst.Imm))
	default:
		return false, e.fault(&Fault{Kind: InvalidInstruction, PC: pc, Word: inst.Word})
	}
	return false, StepResult{}
}

func (e *Emulator) executeJ(pc uint32, inst *insts.Instruction) (bool, StepResult) {
	switch inst.Op {
	case insts.OpJ:
		e.branchUnit.J(pc, inst.Target)
	case insts.OpJal:
		e.branchUnit.Jal(pc, inst.Target)
	default:
		return false, e.fault(&Fault{Kind: InvalidInstruction, PC: pc, Word: inst.Word})
	}
	return true, StepResult{}
}

func (e *Emulator) executeFPR(inst *insts.Instruction) error {
	fd, fs, ft := inst.Rd, inst.Rt, inst.Rs
	switch inst.Op {
	case insts.OpAddS:
		e.fpUnit.AddS(fd, fs, ft)
	case insts.OpSubS:
		e.fpUnit.SubS(fd, fs, ft)
	case insts.OpMulS:
		e.fpUnit.MulS(fd, fs, ft)
	case insts.OpDivS:
		e.fpUnit.DivS(fd, fs, ft)
	case insts.OpAbsS:
		e.fpUnit.AbsS(fd, fs)
	case insts.OpNegS:
		e.fpUnit.NegS(fd, fs)
	case insts.OpMovS:
		e.fpUnit.MovS(fd, fs)
	case insts.OpCvtSW:
		e.fpUnit.CvtSW(fd, fs)
	case insts.OpCvtWS:
		e.fpUnit.CvtWS(fd, fs)
	case insts.OpCeqS:
		e.fpUnit.CeqS(fs, ft)
	case insts.OpCltS:
		e.fpUnit.CltS(fs, ft)
	case insts.OpCleS:
		e.fpUnit.CleS(fs, ft)
	default:
		return &Fault{Kind: InvalidInstruction, Word: inst.Word}
	}
	return nil
}

func (e *Emulator) executeFPBranch(pc uint32, inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpBc1t:
		return e.branchUnit.Bc1t(pc, inst.Imm)
	case insts.OpBc1f:
		return e.branchUnit.Bc1f(pc, inst.Imm)
	}
	return false
}

func (e *Emulator) executeFPMem(inst *insts.Instruction) error {
	switch inst.Op {
	case insts.OpLwc1:
		return e.lsu.Lwc1(inst.Rt, inst.Rs, inst.Imm)
	case insts.OpSwc1:
		return e.lsu.Swc1(inst.Rt, inst.Rs, inst.Imm)
	default:
		return &Fault{Kind: InvalidInstruction, Word: inst.Word}
	}
}
