// Weekly settlement of wages and family support.
package engine

import (
	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/economy"
)

// settleExpenses pays a week of trafficker and packager wages, then the
// support owed to families of arrested members. Payments stop at an empty
// treasury; the shortfall accrues as arrears.
func (s *Simulation) settleExpenses() error {
	traffickers := s.graph.ActiveByRole(agents.RoleTrafficker)
	packagers := s.graph.ActiveByRole(agents.RolePackager)

	if err := s.payWages(traffickers, s.params.TraffickerWage, &s.org.Finances.TraffickerWages); err != nil {
		return err
	}
	if err := s.payWages(packagers, s.params.PackagerWage, &s.org.Finances.PackagerWages); err != nil {
		return err
	}

	support := 0.0
	for _, a := range s.graph.All() {
		if a.Active {
			continue
		}
		if a.Role == agents.RoleRetailer {
			support += s.cfg.Market.ArrestedRetailerSupport
		} else {
			support += s.cfg.Market.ArrestedOtherSupport
		}
	}
	paid, err := s.org.Pay(support)
	if err != nil {
		return err
	}
	s.org.Finances.FamilySupport += paid
	return nil
}

func (s *Simulation) payWages(members []*agents.Agent, daily float64, ledger *float64) error {
	if len(members) == 0 {
		return nil
	}
	paid, err := s.org.Pay(daily * economy.TicksPerWeek * float64(len(members)))
	if err != nil {
		return err
	}
	*ledger += paid
	each := paid / float64(len(members))
	for _, a := range members {
		a.Cash += each
	}
	return nil
}
