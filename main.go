// Package main provides a pointer to the real entry point.
//
// For the full CLI, use: go run ./cmd/mips32sim
package main

import "fmt"

func main() {
	fmt.Println("mips32 - MIPS32 functional and timing simulator")
	fmt.Println()
	fmt.Println("Run 'go run ./cmd/mips32sim' for the full CLI, or")
	fmt.Println("'go run ./cmd/mipsdump' to disassemble a binary image.")
}
