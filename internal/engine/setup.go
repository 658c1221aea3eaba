package engine

import "github.com/talgya/dtosim/internal/agents"

// setup creates the seed population, the start-up stock and the initial links.
func (s *Simulation) setup() error {
	cfg := s.cfg
	for _, a := range s.spawner.SpawnPopulation(cfg.InitialTraffickers, cfg.InitialPackagers, cfg.InitialRetailers) {
		if _, err := s.graph.Add(a); err != nil {
			return err
		}
	}
	s.updateParams()
	s.wholesaleNow = s.params.WholesalePrice

	// Two months of demand: two days' worth sits with the retailers, the
	// rest with the packagers.
	target := s.params.TargetStock
	packagers := s.graph.ActiveByRole(agents.RolePackager)
	retailers := s.graph.ActiveByRole(agents.RoleRetailer)
	packagerStock := 0.0
	if len(packagers) > 0 {
		packagerStock = target - 2*s.params.UnitDose*cfg.Market.GramPerDose
		for _, p := range packagers {
			p.Drug = packagerStock / float64(len(packagers))
		}
	}
	if len(retailers) > 0 {
		for _, r := range retailers {
			r.Drug = (target - packagerStock) / float64(len(retailers))
		}
	}

	traffickers := s.graph.ActiveByRole(agents.RoleTrafficker)
	if len(traffickers) > 0 {
		for _, p := range packagers {
			t := traffickers[s.rng.IntN(len(traffickers))]
			if err := s.graph.Connect(t.ID, p.ID, 1); err != nil {
				return err
			}
		}
	}
	if len(packagers) > 0 {
		for _, r := range retailers {
			p := packagers[s.rng.IntN(len(packagers))]
			if err := s.graph.Connect(p.ID, r.ID, 1); err != nil {
				return err
			}
		}
	}

	s.org.Recount(s.graph.ActiveAgents())
	s.log.Debug("organization seeded",
		"traffickers", len(traffickers),
		"packagers", len(packagers),
		"retailers", len(retailers),
		"treasury", s.org.Treasury,
		"target_stock", target,
	)
	return nil
}
