// Agent spawning: the seed population and recruits.
package agents

import "github.com/talgya/dtosim/internal/entropy"

// Spawner creates agents with drawn criminal expertise. It shares the run's
// random source so spawning stays in the run's deterministic draw order.
type Spawner struct {
	src *entropy.Source
}

// NewSpawner creates a spawner drawing from src.
func NewSpawner(src *entropy.Source) *Spawner {
	return &Spawner{src: src}
}

// Spawn creates one unregistered agent of the given role joining at tick.
func (s *Spawner) Spawn(role Role, tick uint64) *Agent {
	a := New(role, 0, 0)
	a.JoinedTick = tick
	a.Expertise = s.expertise()
	return a
}

// SpawnPopulation creates the seed population in role order: all traffickers,
// then packagers, then retailers.
func (s *Spawner) SpawnPopulation(traffickers, packagers, retailers int) []*Agent {
	out := make([]*Agent, 0, traffickers+packagers+retailers)
	for role, n := range [NumRoles]int{traffickers, packagers, retailers} {
		for i := 0; i < n; i++ {
			out = append(out, s.Spawn(Role(role), 0))
		}
	}
	return out
}

// expertise follows a normal distribution mapped onto [0,1] and clipped to
// [ExpertiseMin, ExpertiseMax].
func (s *Spawner) expertise() float64 {
	return clamp(s.src.UnitNormal(), ExpertiseMin, ExpertiseMax)
}
