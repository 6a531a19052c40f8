package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic sample synthesis
type RNGPort interface {
	// Stream creates a deterministic RNG for a named sample
	Stream(name string, seed int64) *rand.Rand
}
