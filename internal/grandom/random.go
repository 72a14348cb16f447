// Package grandom provides the injectable random source the graph engine
// uses to tie-break between candidate leaders/followers (spec §4.6, §9).
// Tests seed a deterministic Source instead of depending on a specific
// pick; production uses System, backed by math/rand/v2.
package grandom

import "math/rand/v2"

// Source picks a uniformly random index in [0, n).
type Source interface {
	// IntN returns a pseudo-random number in [0, n). Panics if n <= 0,
	// same as math/rand/v2.IntN.
	IntN(n int) int
}

// System is the production Source.
type System struct{}

// IntN returns a uniformly random int in [0, n).
func (System) IntN(n int) int { return rand.IntN(n) }

// New returns a Source seeded deterministically, for tests that want
// reproducible (but still "random-looking") picks across a run without
// hard-coding a single choice.
func New(seed1, seed2 uint64) Source {
	return &seeded{r: rand.New(rand.NewPCG(seed1, seed2))}
}

type seeded struct {
	r *rand.Rand
}

func (s *seeded) IntN(n int) int { return s.r.IntN(n) }

// Fixed always returns the same index, useful when a test wants to pin
// exactly which candidate gets picked.
type Fixed int

// IntN ignores n and ignores range checking beyond a basic guard,
// returning the fixed index modulo n so it never panics on a smaller
// candidate set than the test author expected.
func (f Fixed) IntN(n int) int {
	if n <= 0 {
		panic("grandom: IntN called with n <= 0")
	}
	return int(f) % n
}
