// Command mipsdump decodes every word of a binary image's text segment
// and dumps the resulting instructions without executing anything,
// for checking decode coverage against a new binary.
//
// Usage:
//
//	mipsdump path/to/image.bin
//	mipsdump -flat path/to/image.bin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/k0kubun/pp/v3"

	"github.com/archsim/mips32/emu"
	"github.com/archsim/mips32/insts"
	"github.com/archsim/mips32/loader"
)

func main() {
	flat := flag.Bool("flat", false, "treat the input as a headerless flat .text image")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mipsdump [-flat] path/to/image.bin")
		os.Exit(1)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	mem := emu.NewMemory()
	var image loader.Image
	if *flat {
		image, err = loader.LoadFlat(mem, raw)
	} else {
		image, err = loader.LoadImage(mem, raw)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dec := insts.NewDecoder()
	instrs := make([]insts.Instruction, 0, image.TextSize/4)
	for addr := image.TextBase; addr < image.TextBase+image.TextSize; addr += 4 {
		word, err := mem.Read32(addr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		inst, err := dec.Decode(word)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mipsdump: %s at 0x%08x\n", err, addr)
			os.Exit(2)
		}
		instrs = append(instrs, *inst)
	}

	pp.Println(instrs)
}
