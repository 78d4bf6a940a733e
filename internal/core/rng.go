package core

import "math/rand"

// RNG is the random source injected into the field and reaction models.
// *rand.Rand satisfies it; tests substitute fixed sequences to make every
// probabilistic draw reproducible.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// NewRNG returns a seeded source. Sessions never share sources.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
