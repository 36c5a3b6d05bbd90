package expr_test

import "math/rand"

// testRand returns a deterministically seeded source so random
// tensors are reproducible across runs.
func testRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}
