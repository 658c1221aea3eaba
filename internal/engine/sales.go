// Daily retail sales.
package engine

import (
	"github.com/talgya/dtosim/internal/agents"
)

// sell draws the day's demand and serves it one dose at a time from the
// retailer holding the most stock. A retailer stops for the day once its
// take reaches the retailer profit cap. No dose is sold below the minimum
// margin over its wholesale cost.
func (s *Simulation) sell() error {
	m := s.cfg.Market
	retailers := s.graph.ActiveByRole(agents.RoleRetailer)
	for _, r := range retailers {
		r.DailyProfit = 0
	}
	if len(retailers) == 0 {
		return nil
	}

	lo, hi := int(s.params.UnitDoseMin), int(s.params.UnitDoseMax)
	demand := lo
	if hi > lo {
		demand += s.rng.IntN(hi - lo + 1)
	}
	s.day.demanded = demand

	if m.PricePerDose-s.wholesaleNow*m.GramPerDose < m.MinDoseMargin {
		s.log.Debug("sales suspended below margin", "tick", s.tick, "wholesale", s.wholesaleNow)
		return nil
	}

	take := m.PricePerDose * m.RetailersShare
	sold := 0
	for sold < demand {
		best := bestSeller(retailers, m.GramPerDose, m.ProfitOfRetailersMax)
		if best == nil {
			s.org.Activity.ExhaustRetailers++
			break
		}
		best.Drug = max(0, best.Drug-m.GramPerDose)
		best.DailyProfit += take
		best.Cash += take
		sold++
	}

	s.day.sold = sold
	s.org.Activity.DosesSold += sold
	s.org.Finances.RetailerTakings += take * float64(sold)
	return s.org.Credit((m.PricePerDose - take) * float64(sold))
}

// bestSeller is the retailer with the most stock that can still sell a dose
// today. Ties go to the lowest ID.
func bestSeller(retailers []*agents.Agent, dose, profitCap float64) *agents.Agent {
	var best *agents.Agent
	for _, r := range retailers {
		if r.Drug+1e-9 < dose || r.DailyProfit >= profitCap {
			continue
		}
		if best == nil || r.Drug > best.Drug {
			best = r
		}
	}
	return best
}
