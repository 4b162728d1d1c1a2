package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for different MIPS32 instruction
// classes. Values are configurable in-order-pipeline execute-stage
// latencies, not memory timing — cache/memory latency is modeled
// separately by the timing/cache package.
type TimingConfig struct {
	// ALULatency is the execution latency for basic ALU operations
	// (add, sub, and, or, xor, shifts, slt). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the base execution latency for branch/jump
	// instructions, not counting any misprediction penalty. Default:
	// 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// BranchMispredictPenalty is the additional cycles lost flushing
	// and redirecting Fetch on a misprediction. Default: 2 cycles (the
	// Fetch+Decode instructions squashed by a 5-stage pipeline's
	// Execute-stage branch resolution).
	BranchMispredictPenalty uint64 `json:"branch_mispredict_penalty"`

	// LoadLatency is the Execute-stage latency for load address
	// computation; actual data-return latency is charged by the D-cache
	// in the Memory stage. Default: 1 cycle.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the Execute-stage latency for store address
	// computation. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyLatency is the latency of mult/multu. Default: 3 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatency is the latency of div/divu. Default: 10 cycles.
	DivideLatency uint64 `json:"divide_latency"`

	// SyscallLatency is the latency charged to syscall/break before
	// the handler runs. Default: 1 cycle.
	SyscallLatency uint64 `json:"syscall_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the simulator's
// baseline in-order pipeline values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:              1,
		BranchLatency:           1,
		BranchMispredictPenalty: 2,
		LoadLatency:             1,
		StoreLatency:            1,
		MultiplyLatency:         3,
		DivideLatency:           10,
		SyscallLatency:          1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file, starting from
// DefaultTimingConfig so an omitted field keeps its default value.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}
	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}
	return nil
}

// Validate checks that every latency value is usable.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.DivideLatency == 0 {
		return fmt.Errorf("divide_latency must be > 0")
	}
	if c.SyscallLatency == 0 {
		return fmt.Errorf("syscall_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
