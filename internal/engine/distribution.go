// Daily flow of drug down the supply chain.
package engine

import (
	"math"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/network"
	"github.com/talgya/dtosim/internal/organization"
)

// stage is one link of the supply chain.
type stage struct {
	from, to agents.Role
	ceiling  float64 // stock ceiling of a destination
	packet   float64 // deliveries are whole multiples of packet; 0 for bulk
}

// distribute moves drug from traffickers to packagers and from packagers to
// retailers. Each trafficker ships up to the packager package a day; the
// packagers together ship up to the ceiling of daily demand, split evenly
// over those holding stock.
func (s *Simulation) distribute() error {
	m := s.cfg.Market
	s.refresh(agents.RolePackager, m.DrugMaxPackagers)
	s.refresh(agents.RoleRetailer, m.DrugMaxRetailers)

	wholesale := stage{agents.RoleTrafficker, agents.RolePackager, m.DrugMaxPackagers, 0}
	if s.roleStock(agents.RoleTrafficker) <= 0 {
		s.org.Activity.ExhaustTraffickers++
	} else if err := s.ship(wholesale, func(int) float64 { return s.params.PackagerPackage }); err != nil {
		return err
	}

	daily := s.params.UnitDoseMax * m.GramPerDose
	retail := stage{agents.RolePackager, agents.RoleRetailer, m.DrugMaxRetailers, s.params.RetailPackage}
	if s.roleStock(agents.RolePackager) < s.params.RetailPackage {
		s.org.Activity.ExhaustPackagers++
	} else if err := s.ship(retail, func(n int) float64 { return daily / float64(n) }); err != nil {
		return err
	}
	return nil
}

// refresh drifts expertise and recomputes availability for one role.
func (s *Simulation) refresh(role agents.Role, ceiling float64) {
	for _, a := range s.graph.ActiveByRole(role) {
		a.Drift(s.rng)
		a.UpdateAvailability(ceiling)
	}
}

// roleStock sums the drug held by the active members of role right now.
func (s *Simulation) roleStock(role agents.Role) float64 {
	total := 0.0
	for _, a := range s.graph.ActiveByRole(role) {
		total += a.Drug
	}
	return total
}

// ship delivers from every source of the stage holding stock; quota gives
// each source's daily budget from the number of such sources.
func (s *Simulation) ship(st stage, quota func(sources int) float64) error {
	var sources []*agents.Agent
	for _, a := range s.graph.ActiveByRole(st.from) {
		if a.Drug > 0 {
			sources = append(sources, a)
		}
	}
	if len(sources) == 0 {
		return nil
	}
	budget := quota(len(sources))
	for _, src := range sources {
		if err := s.deliver(src, st, math.Min(src.Drug, budget)); err != nil {
			return err
		}
	}
	return nil
}

// deliver splits budget across the source's connected, available
// destinations in proportion to their trust-appeal. A source with no such
// destination first recruits the best-scoring available one into a link.
func (s *Simulation) deliver(src *agents.Agent, st stage, budget float64) error {
	var dests []*agents.Agent
	for _, id := range s.graph.Neighbors(src.ID) {
		a, _ := s.graph.Agent(id)
		if a.Role == st.to && a.Available {
			dests = append(dests, a)
		}
	}
	if len(dests) == 0 {
		best := s.bestCandidate(src, st.to)
		if best == nil {
			return nil
		}
		if err := s.graph.Connect(src.ID, best.ID, 1); err != nil {
			return err
		}
		dests = []*agents.Agent{best}
	}

	scores := make([]float64, len(dests))
	sum := 0.0
	for i, d := range dests {
		scores[i] = s.trustAppeal(src, d)
		sum += scores[i]
	}
	if sum <= 0 {
		return nil
	}

	for i, d := range dests {
		amount := math.Min(budget*scores[i]/sum, d.Capacity(st.ceiling))
		amount = math.Min(amount, src.Drug)
		if st.packet > 0 {
			amount = math.Floor(amount/st.packet) * st.packet
		}
		if amount <= 0 {
			continue
		}
		if err := organization.TransferStock(src, d, amount); err != nil {
			return err
		}
		if err := s.graph.Connect(src.ID, d.ID, 1); err != nil {
			return err
		}
		d.UpdateAvailability(st.ceiling)
	}
	return nil
}

// bestCandidate is the available agent of role with the highest
// trust-appeal toward src that src may link to; ties go to the lowest ID.
func (s *Simulation) bestCandidate(src *agents.Agent, role agents.Role) *agents.Agent {
	var best *agents.Agent
	bestScore := -1.0
	for _, a := range s.graph.ActiveByRole(role) {
		if !a.Available || !network.Permitted(src.Role, a.Role, s.graph.DirectRetail()) {
			continue
		}
		if score := s.trustAppeal(src, a); score > bestScore {
			best, bestScore = a, score
		}
	}
	return best
}

// trustAppeal scores a destination. Trust grows with the link weight and
// visibility with degree; security-minded organizations weigh trust,
// efficiency-minded ones weigh the destination's expertise.
func (s *Simulation) trustAppeal(src, dst *agents.Agent) float64 {
	evs := s.cfg.EfficiencyVsSecurity
	w := s.graph.Weight(src.ID, dst.ID)
	trust := 1 - 1/(1+w)
	visibility := 0.0
	if n := s.graph.ActiveCount(); n > 1 {
		visibility = float64(s.graph.Degree(dst.ID)) / float64(n-1)
	}
	return (1-evs)*(trust+visibility)/2 + evs*(dst.Expertise+visibility)/2
}
