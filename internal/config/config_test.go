package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(1825), cfg.TotalTicks())
	assert.Equal(t, 44, cfg.InitialMembers())
	assert.InDelta(t, 620769.23, cfg.Market.StartUpMoney, 0.01)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative traffickers", func(c *Config) { c.InitialTraffickers = -1 }},
		{"arrest scenario above 100", func(c *Config) { c.ArrestScenario = 101 }},
		{"negative arrest scenario", func(c *Config) { c.ArrestScenario = -5 }},
		{"unknown scenario", func(c *Config) { c.Scenario = "scenario4" }},
		{"empty scenario", func(c *Config) { c.Scenario = "" }},
		{"efficiency above 1", func(c *Config) { c.EfficiencyVsSecurity = 1.2 }},
		{"zero years", func(c *Config) { c.Years = 0 }},
		{"zero stats cadence", func(c *Config) { c.StatsEvery = 0 }},
		{"disruption beyond horizon", func(c *Config) { c.ArrestScenario = 50; c.DisruptionTick = 5000 }},
		{"dose bands crossed", func(c *Config) { c.Market.UnitDoseMin.Start = 1000 }},
		{"no wholesale prices", func(c *Config) { c.Market.Wholesale = nil }},
		{"profit range inverted", func(c *Config) { c.Market.ProfitRanges[2].TraffickersMin = 9999 }},
		{"profit range table too short", func(c *Config) { c.Market.ProfitRanges = c.Market.ProfitRanges[:3] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Market.ProfitRanges = append([]ProfitRange(nil), cfg.Market.ProfitRanges...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestScenarioAliases(t *testing.T) {
	cfg := Default()
	for alias, want := range map[string]string{
		"scenario1":  ScenarioRandom,
		"scenario2":  ScenarioLeadership,
		"scenario3":  ScenarioProlonged,
		"leadership": ScenarioLeadership,
	} {
		cfg.Scenario = alias
		assert.Equal(t, want, cfg.ScenarioVariant(), alias)
		require.NoError(t, cfg.Validate(), alias)
	}

	cfg.Scenario = ScenarioProlonged
	assert.Equal(t, uint64(120), cfg.LockdownTicks())
	cfg.Scenario = ScenarioRandom
	assert.Equal(t, uint64(60), cfg.LockdownTicks())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := []byte("years: 2\narrest_scenario: 90\nscenario: scenario2\nmarket:\n  price_per_dose: 40\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Years)
	assert.Equal(t, 90, cfg.ArrestScenario)
	assert.Equal(t, ScenarioLeadership, cfg.ScenarioVariant())
	assert.Equal(t, 40.0, cfg.Market.PricePerDose)
	assert.Equal(t, 0.25, cfg.Market.GramPerDose, "untouched keys keep defaults")
	assert.Equal(t, 34, cfg.InitialRetailers)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
