// Package entropy provides the pseudo-random source injected into every
// component with stochastic fallback behavior. Seeding it makes fallback
// policies reproducible in tests.
package entropy

import (
	"math/rand"
	"sync"
	"time"
)

// Source is a concurrency-safe seedable random source.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a source from the given seed. A zero seed uses the clock.
func New(seed int64) *Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform value in [0, 1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// IntN returns a uniform value in [0, n).
func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Weight returns a uniform value in [0.1, 1.0] rounded to one decimal,
// the scale used for traits, powers and initial relationship weights.
func (s *Source) Weight() float64 {
	v := 0.1 + s.Float64()*0.9
	return float64(int(v*10+0.5)) / 10
}
