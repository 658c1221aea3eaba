// Law enforcement: routine minor arrests and the one-time major disruption.
package engine

import (
	"math"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/config"
)

// minorArrestDay is the day of the month on which a minor arrest may occur.
const minorArrestDay = 15

// detectionRisk weights minor-arrest selection by role: street-level
// retailers are the most exposed.
var detectionRisk = [agents.NumRoles]float64{
	agents.RoleTrafficker: 0.3,
	agents.RolePackager:   0.6,
	agents.RoleRetailer:   1.0,
}

// minorArrest removes at most one member. The monthly probability grows with
// the efficiency-vs-security setting; less expert members are likelier targets.
func (s *Simulation) minorArrest() error {
	p := s.cfg.MinorArrestProbability * (0.5 + s.cfg.EfficiencyVsSecurity)
	p = math.Max(0, math.Min(1, p))
	if s.rng.Float() >= p {
		return nil
	}
	active := s.graph.ActiveAgents()
	weights := make([]float64, len(active))
	for i, a := range active {
		weights[i] = detectionRisk[a.Role] * (1.1 - a.Expertise)
	}
	i := s.rng.Pick(weights)
	if i < 0 {
		return nil
	}
	return s.arrest(active[i], false)
}

// DisruptionCount is the number of members removed by a major disruption of
// pct percent among active members: pct/100 × active, rounded half away
// from zero.
func DisruptionCount(pct, active int) int {
	return int(math.Round(float64(pct) / 100 * float64(active)))
}

// majorDisruption arrests the configured share of active members at once
// and starts the lockdown. A disruption that removes nobody is a no-op.
func (s *Simulation) majorDisruption() error {
	active := s.graph.ActiveAgents()
	n := DisruptionCount(s.cfg.ArrestScenario, len(active))
	if n == 0 {
		return nil
	}

	var targets []*agents.Agent
	switch s.cfg.ScenarioVariant() {
	case config.ScenarioLeadership:
		for _, role := range agents.Roles {
			members := s.graph.ActiveByRole(role)
			for _, i := range s.rng.Sample(len(members), len(members)) {
				targets = append(targets, members[i])
			}
		}
		targets = targets[:n]
	default:
		for _, i := range s.rng.Sample(len(active), n) {
			targets = append(targets, active[i])
		}
	}

	seized := s.org.SeizedDrug
	for _, a := range targets {
		if err := s.arrest(a, true); err != nil {
			return err
		}
	}
	lockdown := s.cfg.LockdownTicks()
	s.org.BeginLockdown(s.tick, lockdown)

	s.emit("disruption", "major disruption removed %d of %d members", n, len(active))
	s.log.Info("major disruption",
		"tick", s.tick,
		"scenario", s.cfg.ScenarioVariant(),
		"arrested", n,
		"before", len(active),
		"seized", s.org.SeizedDrug-seized,
		"lockdown_until", s.tick+lockdown,
	)
	return nil
}

// arrest confiscates an agent's stock and removes it from the network.
func (s *Simulation) arrest(a *agents.Agent, major bool) error {
	s.org.SeizedDrug += a.Seize()
	if err := s.graph.RemoveAgent(a.ID, s.tick); err != nil {
		return err
	}
	if major {
		s.org.Arrests.Major[a.Role]++
		return nil
	}
	s.org.Arrests.Minor[a.Role]++
	s.emit("arrest", "%s arrested", a)
	s.log.Info("minor arrest", "tick", s.tick, "agent", a.String())
	return nil
}
