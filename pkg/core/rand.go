package core

import (
	"math/rand/v2"
	"sync"
	"time"
)

// lockedSource serializes access to a PCG source so the *rand.Rand built on
// top of it can be shared by rule-set workers.
type lockedSource struct {
	mu  sync.Mutex
	src *rand.PCG
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// NewRand returns a random source safe for concurrent use. A zero seed seeds
// from the wall clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(&lockedSource{src: rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)})
}
