package benchmarks

// Program is a hand-assembled MIPS32 text segment plus the address
// where a scenario's result can be checked once the program halts.
type Program struct {
	// Name identifies the program for test descriptions and reports.
	Name string

	// Words is the instruction stream, placed at emu.TextBase.
	Words []uint32

	// ResultAddr is the data-segment address the program stores its
	// final answer at, 0 if the scenario only checks registers.
	ResultAddr uint32
}

// SimpleAddStore is the first §8 scenario: addi $t0,$0,15 ; addi
// $t1,$0,25 ; add $t2,$t0,$t1 ; sw $t2,0x100($0). After commit $t2=40
// and memory[0x100..0x104] holds 40 little-endian.
func SimpleAddStore() Program {
	return Program{
		Name: "simple-add-store",
		Words: append([]uint32{
			addi(t0, zero, 15),
			addi(t1, zero, 25),
			add(t2, t0, t1),
			sw(t2, zero, 0x100),
		}, exitSequence()...),
		ResultAddr: 0x100,
	}
}

// LoopSum sums 1..10 via addi/bne, matching the §8 loop scenario.
// Final accumulator ($t1) is 55; the loop body executes 10 times.
//
//	addiu $t0, $0, 0      ; i = 0
//	addiu $t1, $0, 0      ; sum = 0
//	addiu $t2, $0, 11     ; limit
//	addiu $t0, $t0, 1     ; i++            <- loop:
//	add   $t1, $t1, $t0   ; sum += i
//	bne   $t0, $t2, loop  ; branch back while i != limit - 1... (see body)
func LoopSum() Program {
	// loop: addiu $t0,$t0,1 ; add $t1,$t1,$t0 ; bne $t0,$t2,loop
	loop := []uint32{
		addiu(t0, t0, 1),
		add(t1, t1, t0),
		0, // placeholder for bne, target filled below
	}
	// bne target = address of loop[0]; PC_of_branch+4+(offset<<2) must
	// land there, so offset = -3 for this 3-instruction loop body.
	loop[2] = bne(t0, t2, uint32(int32(-3)&0xFFFF))

	words := []uint32{
		addiu(t0, zero, 0),
		addiu(t1, zero, 0),
		addiu(t2, zero, 10),
	}
	words = append(words, loop...)
	words = append(words, sw(t1, zero, 0x100))
	words = append(words, exitSequence()...)

	return Program{Name: "loop-sum-1-to-10", Words: words, ResultAddr: 0x100}
}

// Factorial6 computes 6! via six multiplies and mflo, matching the
// §8 scenario. Final LO holds 720; HI holds 0; the result is also
// stored at ResultAddr.
func Factorial6() Program {
	words := []uint32{
		addiu(t0, zero, 1), // acc = 1
		addiu(t1, zero, 1), // i = 1
		addiu(t2, zero, 7), // limit = 7 (stop when i == 7)
	}
	loop := []uint32{
		mult(t0, t1),
		mflo(t0),
		addiu(t1, t1, 1),
		0, // bne placeholder
	}
	// bne target = address of loop[0] (mult); this loop body is 4
	// instructions long, so offset = -4 relative to PC_of_branch+4.
	loop[3] = bne(t1, t2, uint32(int32(-4)&0xFFFF))
	words = append(words, loop...)
	words = append(words, sw(t0, zero, 0x100))
	words = append(words, exitSequence()...)

	return Program{Name: "factorial-6", Words: words, ResultAddr: 0x100}
}

// DotProduct computes [1,2,3]·[4,5,6] via three mult/mflo/add
// triples in program order, matching the §8 scenario. Result is 32,
// left in $t4 and stored at ResultAddr.
func DotProduct() Program {
	words := []uint32{
		addiu(t0, zero, 1), // a0
		addiu(t1, zero, 4), // b0
		addiu(t2, zero, 2), // a1
		addiu(t3, zero, 5), // b1
		addiu(t4, zero, 0), // accumulator

		mult(t0, t1), mflo(t0), add(t4, t4, t0), // acc += 1*4

		mult(t2, t3), mflo(t2), add(t4, t4, t2), // acc += 2*5

		addiu(t0, zero, 3), // a2
		addiu(t1, zero, 6), // b2
		mult(t0, t1), mflo(t0), add(t4, t4, t0), // acc += 3*6

		sw(t4, zero, 0x100),
	}
	words = append(words, exitSequence()...)
	return Program{Name: "dot-product-3", Words: words, ResultAddr: 0x100}
}

// LoadUseSequence is the forwarding scenario from §8: lw $t0,0($s0);
// add $t1,$t0,$t0, preceded by a store that seeds the loaded value.
// Correctness must match whether or not forwarding is enabled; only
// the cycle count differs.
func LoadUseSequence() Program {
	words := []uint32{
		addiu(s0, zero, 0x100),
		addiu(t2, zero, 21),
		sw(t2, zero, 0x100),
		lw(t0, s0, 0),
		add(t1, t0, t0),
		sw(t1, zero, 0x104),
	}
	words = append(words, exitSequence()...)
	return Program{Name: "load-use-forwarding", Words: words, ResultAddr: 0x104}
}

// MisalignedStore is the boundary scenario from §8: sw $t0, 1($0)
// from a zero register state. It must fault with MemoryMisaligned
// and never become visible at address 0 or 1.
func MisalignedStore() Program {
	return Program{
		Name:  "misaligned-store",
		Words: []uint32{sw(t0, zero, 1)},
	}
}
