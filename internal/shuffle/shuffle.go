// Package shuffle provides a uniform in-place permutation primitive shared by
// question selection and per-question answer randomization.
package shuffle

import "math/rand"

// Slice applies a Fisher–Yates shuffle to s using r. Every permutation is
// equally likely, which keeps selection fair and lets seeded tests assert on
// the distribution.
func Slice[T any](r *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Pick shuffles a copy of s and returns its first n elements. When n exceeds
// len(s) the whole shuffled copy is returned.
func Pick[T any](r *rand.Rand, s []T, n int) []T {
	out := make([]T, len(s))
	copy(out, s)
	Slice(r, out)
	if n < len(out) {
		out = out[:n]
	}
	return out
}
