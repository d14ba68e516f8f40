package submit

import (
	"math"
	"math/rand/v2"
	"sync"
)

// DefaultSuccessProbability is the share of simulated submissions that succeed.
const DefaultSuccessProbability = 0.9

// OutcomeSource decides whether a simulated create-deal call succeeds.
type OutcomeSource interface {
	Succeed() bool
}

// RandomOutcome draws success with a fixed probability. the probability can be changed
// at runtime, e.g. on config reload.
type RandomOutcome struct {
	mu   sync.Mutex
	p    float64
	rand *rand.Rand
}

// NewRandomOutcome makes a source succeeding with probability p, clamped to [0,1].
// a nil rng uses a randomly seeded generator.
func NewRandomOutcome(p float64, rng *rand.Rand) *RandomOutcome {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // demo outcome, not security sensitive
	}
	return &RandomOutcome{p: clampProbability(p), rand: rng}
}

// Succeed draws one outcome.
func (r *RandomOutcome) Succeed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64() < r.p
}

// SetProbability changes the success probability, clamped to [0,1].
func (r *RandomOutcome) SetProbability(p float64) {
	r.mu.Lock()
	r.p = clampProbability(p)
	r.mu.Unlock()
}

// Probability returns the current success probability.
func (r *RandomOutcome) Probability() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return DefaultSuccessProbability
	}
	return min(max(p, 0), 1)
}

// FixedOutcome always returns the same result.
type FixedOutcome bool

// Succeed returns the fixed result.
func (f FixedOutcome) Succeed() bool { return bool(f) }

// SequenceOutcome returns the given results in order, then repeats the last one.
type SequenceOutcome struct {
	mu      sync.Mutex
	results []bool
}

// NewSequenceOutcome makes a source replaying results.
func NewSequenceOutcome(results ...bool) *SequenceOutcome {
	return &SequenceOutcome{results: results}
}

// Succeed returns the next result.
func (s *SequenceOutcome) Succeed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return true
	}
	res := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return res
}
