package agents

import (
	"math"

	"github.com/talgya/dtosim/internal/entropy"
)

// RecordAcquisition updates a trafficker's expertise after a purchase attempt.
// Success raises expertise exponentially toward 1, failure lowers it toward 0;
// the floor on success is 0.2 and the ceiling on failure is 0.8.
func (a *Agent) RecordAcquisition(success bool) {
	if success {
		a.Acquisitions++
		if a.Expertise < 0.2 {
			a.Expertise = 0.2
			return
		}
		a.Expertise = math.Min(1, a.Expertise+math.Pow(0.0001, a.Expertise))
		return
	}
	if a.Expertise > 0.8 {
		a.Expertise = 0.8
		return
	}
	a.Expertise = math.Max(0, a.Expertise-math.Pow(0.0001, 1-a.Expertise))
}

// Drift perturbs expertise by up to ±10% of its value.
func (a *Agent) Drift(src *entropy.Source) {
	span := a.Expertise * 0.1
	a.Expertise = clamp(a.Expertise+src.Uniform(-span, span), ExpertiseMin, ExpertiseMax)
}

// UpdateAvailability marks the agent unavailable once its stock reaches capacity.
func (a *Agent) UpdateAvailability(capacity float64) {
	a.Available = a.Drug < capacity
}

// Capacity is the room left below the given stock ceiling.
func (a *Agent) Capacity(ceiling float64) float64 {
	return math.Max(0, ceiling-a.Drug)
}

// Seize zeroes the agent's stock and returns the confiscated amount.
func (a *Agent) Seize() float64 {
	seized := a.Drug
	a.Drug = 0
	a.Available = false
	return seized
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
