package optimize

import "math/rand"

// rngFor derives an independent generator from (seed, iteration). Every
// candidate's random draws come from its own generator, never from a process
// default or a shared source, so reproducibility survives concurrent
// dispatch and any completion order.
func rngFor(seed int64, iteration int) *rand.Rand {
	x := uint64(seed)*0x9E3779B97F4A7C15 + uint64(iteration) + 1
	return rand.New(rand.NewSource(int64(splitmix64(x))))
}

// splitmix64 scrambles the combined seed so nearby iterations do not share
// low-bit structure.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
