// Package economy provides the calibrated market: prices, demand bands,
// package sizes and the wage rules of the organization.
package economy

import (
	"math"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/config"
)

// Cadence, in ticks.
const (
	TicksPerWeek  = 7
	TicksPerMonth = 30
	TicksPerYear  = config.TicksPerYear

	// CalibrationTicks is the span over which banded values move from their
	// start to their end value.
	CalibrationTicks = 2 * TicksPerYear
)

// Params is the market state recomputed once a month.
type Params struct {
	UnitDose    float64 `json:"unit_dose"` // expected daily demand, doses
	UnitDoseMin float64 `json:"unit_dose_min"`
	UnitDoseMax float64 `json:"unit_dose_max"`
	CostPerDay  float64 `json:"cost_per_day"`

	WholesalePrice float64 `json:"wholesale_price"` // per gram
	RetailPrice    float64 `json:"retail_price"`    // per gram

	// Package sizes in grams.
	TraffickerPackage float64 `json:"trafficker_package"` // monthly purchase per trafficker
	PackagerPackage   float64 `json:"packager_package"`   // daily shipment of one trafficker to packagers
	RetailPackage     float64 `json:"retail_package"`     // one retail packet

	// Daily wages paid from the treasury.
	TraffickerWage float64 `json:"trafficker_wage"`
	PackagerWage   float64 `json:"packager_wage"`

	TargetStock float64 `json:"target_stock"` // grams the organization aims to hold
}

// Progress is the fraction of the calibration window elapsed at tick, in [0,1].
func Progress(tick uint64) float64 {
	return math.Min(1, float64(tick)/CalibrationTicks)
}

// Interpolate returns the band value at the given progress.
func Interpolate(b config.Band, progress float64) float64 {
	return b.Start + (b.End-b.Start)*progress
}

// YearPrice returns the yearly price in force at tick. Prices step on the
// first tick after each year boundary and the last entry holds thereafter.
func YearPrice(prices []float64, tick uint64) float64 {
	if len(prices) == 0 {
		return 0
	}
	year := 0
	if tick > 0 {
		year = int((tick - 1) / TicksPerYear)
	}
	return prices[min(year, len(prices)-1)]
}

// Compute derives the monthly parameters from the market calibration, the
// efficiency-vs-security setting and the active counts per role.
func Compute(m config.Market, evs float64, tick uint64, counts [agents.NumRoles]int) Params {
	progress := Progress(tick)
	p := Params{
		UnitDose:       math.Floor(Interpolate(m.UnitDose, progress)),
		UnitDoseMin:    math.Floor(Interpolate(m.UnitDoseMin, progress)),
		UnitDoseMax:    math.Floor(Interpolate(m.UnitDoseMax, progress)),
		CostPerDay:     math.Floor(Interpolate(m.CostPerDay, progress)),
		WholesalePrice: YearPrice(m.Wholesale, tick),
		RetailPrice:    YearPrice(m.Retail, tick),
		RetailPackage:  m.DosesPerRetailPackage * m.GramPerDose,
	}

	nt := float64(max(1, counts[agents.RoleTrafficker]))
	np := float64(max(1, counts[agents.RolePackager]))

	daily := p.DailyDoses(evs) * m.GramPerDose
	p.TraffickerPackage = daily / nt * TicksPerMonth
	p.PackagerPackage = daily / np

	band := WageBand(m.ProfitRanges, evs)
	margin := p.CostPerDay
	if p.RetailPrice > 0 {
		margin -= p.CostPerDay * p.WholesalePrice / p.RetailPrice
	}
	p.TraffickerWage = clamp(margin*m.TraffickersShare/nt, band.TraffickersMin, band.TraffickersMax)
	p.PackagerWage = clamp(margin*(1-m.TraffickersShare)/np, band.PackagersMin, band.PackagersMax)

	p.TargetStock = p.UnitDose * m.GramPerDose * float64(m.StartUpMonths) * TicksPerMonth
	return p
}

// DailyDoses is the planned daily volume: the dose floor raised toward the
// ceiling by a third of the efficiency-vs-security setting.
func (p Params) DailyDoses(evs float64) float64 {
	return p.UnitDoseMin + (p.UnitDoseMax-p.UnitDoseMin)*evs/3
}

// WageBand returns the profit range at level evs, interpolating linearly
// between tabulated levels. Ranges must be sorted by level.
func WageBand(ranges []config.ProfitRange, evs float64) config.ProfitRange {
	if len(ranges) == 0 {
		return config.ProfitRange{Level: evs}
	}
	if evs <= ranges[0].Level {
		return ranges[0]
	}
	for i := 1; i < len(ranges); i++ {
		hi := ranges[i]
		if evs > hi.Level {
			continue
		}
		lo := ranges[i-1]
		f := (evs - lo.Level) / (hi.Level - lo.Level)
		return config.ProfitRange{
			Level:          evs,
			TraffickersMin: lerp(lo.TraffickersMin, hi.TraffickersMin, f),
			TraffickersMax: lerp(lo.TraffickersMax, hi.TraffickersMax, f),
			PackagersMin:   lerp(lo.PackagersMin, hi.PackagersMin, f),
			PackagersMax:   lerp(lo.PackagersMax, hi.PackagersMax, f),
		}
	}
	return ranges[len(ranges)-1]
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
