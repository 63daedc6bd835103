// Package randutil derives reproducible random streams from a single seed.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a PCG-backed *rand.Rand seeded deterministically from seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Stream returns the n-th independent stream under seed, so game n of an
// evaluation replays identically no matter how many games ran before it.
func Stream(seed int64, n uint64) *rand.Rand {
	u := mix(uint64(seed) ^ mix(n+1))
	return rand.New(rand.NewPCG(u, mix(u+goldenRatio64)))
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
