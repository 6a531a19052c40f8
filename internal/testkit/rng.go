package testkit

import (
	"hash/fnv"
	"math/rand"
)

// SeededRNG implements ports.RNGPort. Each named stream is derived from the
// base seed and the stream name, so streams are independent but reproducible.
type SeededRNG struct{}

// Stream creates a deterministic RNG for a named sample
func (SeededRNG) Stream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}
