// Monthly wholesale acquisition by traffickers.
package engine

import (
	"math"

	"github.com/talgya/dtosim/internal/agents"
)

// priceWindow is the half-width, per gram, of the band the wholesale price
// index is measured against.
const priceWindow = 10.0

// acquire lets each active trafficker attempt a wholesale purchase. The
// attempt succeeds when expertise plus luck beats the acquisition index,
// which rises with stock on hand, market conditions and price.
func (s *Simulation) acquire() error {
	m := s.cfg.Market
	total := 0.0
	for _, role := range agents.Roles {
		total += s.roleStock(role)
	}
	target := s.params.TargetStock

	stockIdx := 0.0
	if target > 0 {
		stockIdx = math.Min(1, total/target)
	}
	marketIdx := s.market.Index(s.tick, s.rng.UnitNormal(), s.cfg.EfficiencyVsSecurity)

	base := s.params.WholesalePrice
	now := base + s.rng.Normal(0, m.WholesaleVolatility)
	now = math.Max(base/2, math.Min(base*1.5, now))
	s.wholesaleNow = now
	s.org.Extremes.ObservePrice(now)

	priceIdx := math.Max(0, math.Min(1, (now-(base-priceWindow))/(2*priceWindow)))
	index := stockIdx * marketIdx * priceIdx
	s.org.Extremes.ObserveIndex(index)

	// Warehouses are full.
	if target > 0 && total >= 2*target {
		return nil
	}

	for _, t := range s.graph.ActiveByRole(agents.RoleTrafficker) {
		luck := s.rng.Float() * s.rng.Float() * s.rng.Float()
		if t.Expertise/100+luck <= index {
			t.RecordAcquisition(false)
			s.org.Activity.FailedAcquisitions++
			continue
		}
		t.RecordAcquisition(true)

		grams := s.params.TraffickerPackage
		cost := now * grams
		if budget := s.org.Treasury * 0.5; cost > budget {
			cost = budget
			grams = budget / now
		}
		if err := s.org.Spend(cost); err != nil {
			return err
		}
		t.Drug += grams
		s.org.Activity.Acquisitions++
	}
	return nil
}
