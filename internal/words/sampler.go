// internal/words/sampler.go
//
// Word bank sampling for spawn events.
// Each spawn either offers the target word (with probability p) or a distractor
// drawn uniformly from the pool, excluding case-insensitive matches of the target.
// An empty pool, after exclusion, degrades to always returning the target.
//
// The sampler also owns the random source used for spawn placement so that a
// single seed makes a whole session reproducible.

package words

import (
	"math/rand"
	"strings"
)

// DefaultTargetProbability is the chance that a spawn offers the target word.
const DefaultTargetProbability = 0.35

// Sampler chooses spawn words. It is not safe for concurrent use; the
// simulation loop serializes access.
type Sampler struct {
	rng *rand.Rand
	p   float64
}

// NewSampler returns a sampler seeded with seed. p outside (0,1] falls back to
// DefaultTargetProbability.
func NewSampler(seed int64, p float64) *Sampler {
	if p <= 0 || p > 1 {
		p = DefaultTargetProbability
	}
	return &Sampler{rng: rand.New(rand.NewSource(seed)), p: p}
}

// Reseed resets the random source so subsequent draws repeat deterministically.
func (s *Sampler) Reseed(seed int64) {
	s.rng.Seed(seed)
}

// TargetProbability returns p.
func (s *Sampler) TargetProbability() float64 { return s.p }

// Sample returns the word for one spawn event.
func (s *Sampler) Sample(target string, pool []string) string {
	if target != "" && s.rng.Float64() < s.p {
		return target
	}
	candidates := distractors(target, pool)
	if len(candidates) == 0 {
		return target
	}
	return candidates[s.rng.Intn(len(candidates))]
}

// Float64 returns a uniform draw in [0,1) from the sampler's source.
func (s *Sampler) Float64() float64 { return s.rng.Float64() }

// distractors filters pool down to entries that differ from target (case-insensitive)
// and are not blank.
func distractors(target string, pool []string) []string {
	out := make([]string, 0, len(pool))
	for _, w := range pool {
		if strings.TrimSpace(w) == "" || strings.EqualFold(strings.TrimSpace(w), strings.TrimSpace(target)) {
			continue
		}
		out = append(out, w)
	}
	return out
}
