// Command mips32sim runs a MIPS32 binary image either functionally
// (fetch/decode/execute with no notion of cycles) or cycle-accurately
// against the in-order pipeline or the out-of-order engine.
//
// Usage:
//
//	mips32sim functional --bin path/to/image.bin
//	mips32sim timing --bin path/to/image.bin --ooo
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mips32sim",
	Short: "mips32sim runs MIPS32 binary images functionally or cycle-accurately.",
}

func init() {
	rootCmd.AddCommand(functionalCmd)
	rootCmd.AddCommand(timingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitUsageError)
	}
}

// Exit codes, per the project's command-line contract: 0 is a normal
// completion (an exit syscall, or a breakpoint reached), 1 is a usage
// error (bad flags or an unreadable binary), 2 is a simulation fault.
const (
	exitNormal      = 0
	exitUsageError  = 1
	exitSimFault    = 2
)
