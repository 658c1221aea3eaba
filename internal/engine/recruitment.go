// Weekly recruitment toward the calibrated membership.
package engine

import (
	"math"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/economy"
	"github.com/talgya/dtosim/internal/network"
)

// recruitTarget is the membership a role grows toward at tick: the initial
// count moving linearly to the calibrated count over the calibration window.
func (s *Simulation) recruitTarget(role agents.Role) int {
	var initial, final int
	switch role {
	case agents.RoleTrafficker:
		initial, final = s.cfg.InitialTraffickers, s.cfg.Calibration.Traffickers
	case agents.RolePackager:
		initial, final = s.cfg.InitialPackagers, s.cfg.Calibration.Packagers
	case agents.RoleRetailer:
		initial, final = s.cfg.InitialRetailers, s.cfg.Calibration.Retailers
	}
	p := economy.Progress(s.tick)
	return int(math.Round(float64(initial) + float64(final-initial)*p))
}

// recruit adds at most one member per role below its target. Each recruit
// is introduced by a sponsor from a role it may link to.
func (s *Simulation) recruit() error {
	counts := s.graph.CountByRole()
	for _, role := range agents.Roles {
		if counts[role] >= s.recruitTarget(role) {
			continue
		}
		a, err := s.graph.Add(s.spawner.Spawn(role, s.tick))
		if err != nil {
			return err
		}
		s.org.Activity.Recruits++

		var sponsors []*agents.Agent
		for _, c := range s.graph.ActiveAgents() {
			if c.ID != a.ID && network.Permitted(role, c.Role, s.graph.DirectRetail()) {
				sponsors = append(sponsors, c)
			}
		}
		if len(sponsors) > 0 {
			sponsor := sponsors[s.rng.IntN(len(sponsors))]
			if err := s.graph.Connect(sponsor.ID, a.ID, 1); err != nil {
				return err
			}
		}
		s.emit("recruit", "%s joined", a)
		s.log.Debug("recruit", "tick", s.tick, "agent", a.String())
	}
	return nil
}
