package engine

import (
	"fmt"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/series"
	"github.com/talgya/dtosim/internal/stats"
)

// checkViability marks the organization non-viable when a role falls below
// the minimum membership or the treasury stays empty for the insolvency window.
func (s *Simulation) checkViability() {
	counts := s.graph.CountByRole()
	for _, role := range agents.Roles {
		if counts[role] < s.cfg.MinMembersPerRole {
			s.collapse(fmt.Sprintf("too few %ss", role))
			return
		}
	}
	if s.org.ObserveTreasury(s.cfg.InsolvencyWindow) {
		s.collapse("treasury exhausted")
	}
}

func (s *Simulation) collapse(reason string) {
	s.org.MarkNonViable(s.tick, reason)
	s.emit("collapse", "organization collapsed: %s", reason)
	s.log.Info("organization collapsed", "tick", s.tick, "reason", reason)
}

// observe refreshes the network metrics on sampling ticks. An unchanged
// graph reuses the previous computation.
func (s *Simulation) observe() {
	if s.metrics.Valid && s.tick%uint64(s.cfg.StatsEvery) != 0 {
		return
	}
	if !s.metrics.Valid || s.metrics.Version != s.graph.Version() {
		s.metrics.Metrics = stats.Compute(s.graph)
		s.metrics.Version = s.graph.Version()
		s.metrics.Valid = true
	}
	s.metrics.Tick = s.tick
}

func (s *Simulation) record() series.Record {
	counts := s.graph.CountByRole()
	o := s.org
	return series.Record{
		Tick:     s.tick,
		Viable:   o.Viable,
		Lockdown: s.day.lockdown,

		Traffickers: counts[agents.RoleTrafficker],
		Packagers:   counts[agents.RolePackager],
		Retailers:   counts[agents.RoleRetailer],
		Members:     counts[0] + counts[1] + counts[2],

		Treasury:      o.Treasury,
		DailyRevenue:  s.day.revenue,
		DailyExpenses: s.day.expenses,
		Revenues:      o.Finances.Revenues,
		Expenses:      o.Finances.Expenses,
		Profit:        o.Finances.Profit(),
		Arrears:       o.Finances.Arrears,

		WholesalePrice: s.wholesaleNow,
		DosesDemanded:  s.day.demanded,
		DosesSold:      s.day.sold,

		Acquisitions:  o.Activity.Acquisitions,
		Recruits:      o.Activity.Recruits,
		ArrestedMinor: sum(o.Arrests.Minor),
		ArrestedMajor: sum(o.Arrests.Major),

		StockTraffickers: o.Stock[agents.RoleTrafficker],
		StockPackagers:   o.Stock[agents.RolePackager],
		StockRetailers:   o.Stock[agents.RoleRetailer],
		SeizedDrug:       o.SeizedDrug,

		ExhaustTraffickers: o.Activity.ExhaustTraffickers,
		ExhaustPackagers:   o.Activity.ExhaustPackagers,
		ExhaustRetailers:   o.Activity.ExhaustRetailers,

		StatsTick: s.metrics.Tick,
		Network:   s.metrics.Metrics,
	}
}

func sum(xs [agents.NumRoles]int) int {
	return xs[0] + xs[1] + xs[2]
}
