package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/config"
)

func TestYearPrice(t *testing.T) {
	prices := []float64{1, 2, 3}
	assert.Equal(t, 1.0, YearPrice(prices, 0))
	assert.Equal(t, 1.0, YearPrice(prices, 365))
	assert.Equal(t, 2.0, YearPrice(prices, 366))
	assert.Equal(t, 2.0, YearPrice(prices, 730))
	assert.Equal(t, 3.0, YearPrice(prices, 731))
	assert.Equal(t, 3.0, YearPrice(prices, 5000), "last price persists")
	assert.Zero(t, YearPrice(nil, 10))
}

func TestInterpolate(t *testing.T) {
	b := config.Band{Start: 100, End: 300}
	assert.Equal(t, 100.0, Interpolate(b, Progress(0)))
	assert.Equal(t, 200.0, Interpolate(b, Progress(365)))
	assert.Equal(t, 300.0, Interpolate(b, Progress(730)))
	assert.Equal(t, 300.0, Interpolate(b, Progress(2000)))
}

func TestWageBand(t *testing.T) {
	ranges := config.DefaultMarket().ProfitRanges

	exact := WageBand(ranges, 0.5)
	assert.Equal(t, 475.0, exact.TraffickersMin)
	assert.Equal(t, 283.0, exact.PackagersMax)

	mid := WageBand(ranges, 0.1)
	assert.InDelta(t, 375.0, mid.TraffickersMin, 1e-9)
	assert.InDelta(t, 187.5, mid.PackagersMin, 1e-9)

	assert.Equal(t, ranges[0], WageBand(ranges, -1))
	assert.Equal(t, ranges[len(ranges)-1], WageBand(ranges, 2))
}

func TestComputeDefaults(t *testing.T) {
	m := config.DefaultMarket()
	p := Compute(m, 0.5, 0, [agents.NumRoles]int{5, 5, 34})

	assert.Equal(t, 580.0, p.UnitDose)
	assert.Equal(t, 40.20, p.WholesalePrice)
	assert.InDelta(t, 5.75, p.RetailPackage, 1e-12)
	assert.InDelta(t, 580*0.25*60, p.TargetStock, 1e-9)

	daily := (530 + (900-530)*0.5/3) * 0.25
	assert.InDelta(t, daily/5*30, p.TraffickerPackage, 1e-9)
	assert.InDelta(t, daily/5, p.PackagerPackage, 1e-9)

	band := WageBand(m.ProfitRanges, 0.5)
	assert.GreaterOrEqual(t, p.TraffickerWage, band.TraffickersMin)
	assert.LessOrEqual(t, p.TraffickerWage, band.TraffickersMax)
	assert.GreaterOrEqual(t, p.PackagerWage, band.PackagersMin)
	assert.LessOrEqual(t, p.PackagerWage, band.PackagersMax)
}

func TestComputeToleratesEmptyRoles(t *testing.T) {
	p := Compute(config.DefaultMarket(), 0.2, 400, [agents.NumRoles]int{})
	assert.Greater(t, p.TraffickerPackage, 0.0)
	assert.Greater(t, p.PackagerPackage, 0.0)
}

func TestConditionsDeterministicAndBounded(t *testing.T) {
	a := NewConditions(11, 0.1)
	b := NewConditions(11, 0.1)
	for tick := uint64(0); tick < 2000; tick += 7 {
		d := a.Drift(tick)
		require.Equal(t, d, b.Drift(tick))
		require.LessOrEqual(t, d, 0.1+1e-12)
		require.GreaterOrEqual(t, d, -0.1-1e-12)

		idx := a.Index(tick, 0.9, 0.5)
		require.GreaterOrEqual(t, idx, 0.0)
		require.LessOrEqual(t, idx, 0.5)
	}
	assert.Zero(t, NewConditions(3, 0).Drift(100))
}
