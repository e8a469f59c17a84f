// Package rng provides the randomness used to pick winners.
package rng

import (
	"errors"
	"math"
)

// Source produces uniformly distributed 64-bit words. *CSPRNG and the
// math/rand/v2 generators satisfy it.
type Source interface {
	Uint64() uint64
}

var ErrSampleTooLarge = errors.New("rng: sample size exceeds population")

// Sampler draws unbiased samples without replacement.
type Sampler struct {
	src Source
}

// NewSampler wraps src. A nil src gets a fresh CSPRNG.
func NewSampler(src Source) (*Sampler, error) {
	if src == nil {
		c, err := NewCSPRNG()
		if err != nil {
			return nil, err
		}
		src = c
	}
	return &Sampler{src: src}, nil
}

// Intn returns a uniform integer in [0, n). n must be > 0.
//
// Values from the top of the 64-bit range that would bias the modulo are
// rejected and redrawn.
func (s *Sampler) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	bound := uint64(n)
	limit := math.MaxUint64 - math.MaxUint64%bound
	for {
		v := s.src.Uint64()
		if v < limit {
			return int(v % bound)
		}
	}
}

// Shuffle permutes n elements in place with Fisher-Yates.
func (s *Sampler) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		swap(i, j)
	}
}

// Sample returns k distinct elements of names chosen uniformly at random.
// names is not modified.
func (s *Sampler) Sample(names []string, k int) ([]string, error) {
	if k < 0 || k > len(names) {
		return nil, ErrSampleTooLarge
	}
	tmp := make([]string, len(names))
	copy(tmp, names)

	// Partial Fisher-Yates: only the first k positions need to be settled.
	for i := 0; i < k; i++ {
		j := i + s.Intn(len(tmp)-i)
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp[:k], nil
}
