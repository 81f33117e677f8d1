package benchmark_test

// Grid sizes used across benchmarks.
const (
	gridSmall  = 16  // Fast CI benchmarks
	gridMedium = 64  // Default
	gridLarge  = 128 // Many exchange records per round
)

// Seed for deterministic benchmarks.
const benchSeed = 42
