// Purpose: Owns rng.go, the engine's source of randomness. Every pipeline
// that needs jitter, timing variance, or probability rolls goes through this
// seam so tests can inject a deterministic sequence instead of real entropy.
package engine

import (
	"math/rand"
	"time"
)

// rng is a minimal wrapper around *rand.Rand so call sites don't depend on
// the math/rand package directly.
type rng struct {
	r *rand.Rand
}

func newRNG() *rng {
	return &rng{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// newSeededRNG builds a deterministic generator, used by tests.
func newSeededRNG(seed int64) *rng {
	return &rng{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a pseudo-random number in [0, 1).
func (g *rng) Float64() float64 { return g.r.Float64() }

// IntRange returns a pseudo-random integer in [min, max].
func (g *rng) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.r.Intn(max-min+1)
}

// Bool returns true with probability p.
func (g *rng) Bool(p float64) bool {
	return g.r.Float64() < p
}
