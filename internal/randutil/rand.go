package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
	"sync"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. The returned
// generator is safe for concurrent use; the hand engine shares one across rooms.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(&lockedSource{src: rand.NewPCG(mix(u), mix(u+goldenRatio64))})
}

// Seed returns seed when non-nil, otherwise a fresh value from crypto/rand.
// The caller logs the chosen seed so a session can be replayed.
func Seed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return int64(rand.Uint64())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// splitmix64 finaliser; spreads nearby seeds across the PCG state space.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
