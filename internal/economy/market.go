package economy

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// conditionPeriod is the drift wavelength in ticks.
const conditionPeriod = 180.0

// Conditions is the slow-moving component of the market-condition index.
// It is a pure function of seed and tick, so it carries no state across
// snapshots.
type Conditions struct {
	noise     opensimplex.Noise
	amplitude float64
}

// NewConditions creates the drift signal for a run.
func NewConditions(seed uint64, amplitude float64) *Conditions {
	return &Conditions{
		noise:     opensimplex.NewNormalized(int64(seed)),
		amplitude: amplitude,
	}
}

// Drift returns the signed drift at tick, within ±amplitude.
func (c *Conditions) Drift(tick uint64) float64 {
	t := float64(tick) / conditionPeriod
	v := octaveNoise(c.noise, t, 0.5, 3, 1, 0.5)
	return (v*2 - 1) * c.amplitude
}

// Index combines a monthly shock in [0,1] with the drift, weighted toward
// caution by the efficiency-vs-security setting. The result is in [0,1].
func (c *Conditions) Index(tick uint64, shock, evs float64) float64 {
	return clamp(shock+c.Drift(tick), 0, 1) * (1 - evs)
}

// octaveNoise layers frequencies of normalized noise; the result stays in [0,1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return math.Max(0, math.Min(1, total/maxVal))
}
