package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler provides configurable sampling for ops events.
// High-volume actions can be sampled down to reduce storage and processing costs.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[string]float64
}

// NewSampler creates a sampler with the given default rate.
// Rate should be between 0.0 (keep nothing) and 1.0 (keep everything).
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[string]float64),
	}
}

// ShouldSample returns true if the event should be kept.
func (s *Sampler) ShouldSample(action string) bool {
	return rand.Float64() < s.rateFor(action)
}

// SetRate sets the sample rate for a specific action.
// Use this to override the default for high-volume actions.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

// SetDefaultRate changes the default sample rate.
func (s *Sampler) SetDefaultRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultRate = clampRate(rate)
}

func (s *Sampler) rateFor(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
