package engine

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/config"
	"github.com/talgya/dtosim/internal/logging"
)

func TestScenarioNoDisruption(t *testing.T) {
	if testing.Short() {
		t.Skip("full five-year run")
	}
	cfg := config.Default()
	cfg.ArrestScenario = 0
	res, err := newSim(t, cfg, 2008).Run()
	require.NoError(t, err)
	require.Len(t, res.Records, 1825)

	for _, rec := range res.Records {
		require.Zero(t, rec.ArrestedMajor, "tick %d", rec.Tick)
		require.False(t, rec.Lockdown)
	}
	last := res.Records[len(res.Records)-1]
	assert.Equal(t, uint64(1825), last.Tick)
	assert.Equal(t, cfg.InitialMembers()+last.Recruits-last.ArrestedMinor, last.Members)
}

func TestScenarioNinetyPercent(t *testing.T) {
	cfg := config.Default()
	cfg.Years = 2
	cfg.ArrestScenario = 90
	cfg.DisruptionTick = 365
	res, err := newSim(t, cfg, 2010).Run()
	require.NoError(t, err)

	before := res.Records[363] // tick 364
	after := res.Records[364]  // tick 365
	require.Equal(t, uint64(365), after.Tick)
	require.True(t, before.Viable)

	removed := DisruptionCount(90, before.Members)
	assert.Equal(t, before.Members-removed, after.Members)
	assert.InDelta(t, 0.1*float64(before.Members), float64(after.Members), 1)

	for _, rec := range res.Records[365 : 365+60] {
		assert.Equal(t, after.Acquisitions, rec.Acquisitions, "acquired during lockdown at tick %d", rec.Tick)
	}
}

func TestRunProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("property run")
	}
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 8
	properties := gopter.NewProperties(parameters)

	build := func(seed uint64, pct int, evs float64, scenario string) (*Simulation, error) {
		cfg := config.Default()
		cfg.Years = 1
		cfg.ArrestScenario = pct
		cfg.DisruptionTick = 120
		cfg.EfficiencyVsSecurity = evs
		cfg.Scenario = scenario
		cfg.StatsEvery = 5
		sim, err := New(cfg, seed)
		if err != nil {
			return nil, err
		}
		sim.SetLogger(logging.Discard())
		return sim, nil
	}

	scenarios := gen.OneConstOf(config.ScenarioRandom, config.ScenarioLeadership, config.ScenarioProlonged)

	properties.Property("balances and stocks stay non-negative", prop.ForAll(
		func(seed uint64, pct int, evs float64, scenario string) bool {
			sim, err := build(seed, pct, evs, scenario)
			if err != nil {
				return false
			}
			for !sim.Done() {
				rec, err := sim.Step()
				if err != nil {
					return false
				}
				if rec.Treasury < 0 || rec.Stock() < 0 {
					return false
				}
				for _, a := range sim.Graph().All() {
					if a.Drug < 0 || a.Cash < 0 || (!a.Active && a.Drug != 0) {
						return false
					}
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 100),
		gen.Float64Range(0, 1),
		scenarios,
	))

	properties.Property("same seed gives the same series", prop.ForAll(
		func(seed uint64, pct int, evs float64, scenario string) bool {
			a, err := build(seed, pct, evs, scenario)
			if err != nil {
				return false
			}
			b, _ := build(seed, pct, evs, scenario)
			ra, errA := a.Run()
			rb, errB := b.Run()
			return errA == nil && errB == nil && reflect.DeepEqual(ra.Records, rb.Records)
		},
		gen.UInt64(),
		gen.IntRange(0, 100),
		gen.Float64Range(0, 1),
		scenarios,
	))

	properties.Property("disruption removes the rounded share", prop.ForAll(
		func(seed uint64, pct int, scenario string) bool {
			sim, err := build(seed, pct, 0.5, scenario)
			if err != nil {
				return false
			}
			for sim.Tick() < 119 {
				if _, err := sim.Step(); err != nil {
					return false
				}
			}
			before := sim.Graph().ActiveCount()
			viable := sim.Organization().Viable
			rec, err := sim.Step()
			if err != nil {
				return false
			}
			if !viable {
				return rec.Members == before
			}
			return rec.Members == before-DisruptionCount(pct, before)
		},
		gen.UInt64(),
		gen.IntRange(0, 100),
		scenarios,
	))

	properties.TestingRun(t)
}
