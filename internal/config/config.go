// Package config provides the configuration bundle for a simulation run.
// Defaults are calibrated on the Operation Beluga investigation (2008–2010).
package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Disruption scenario variants.
const (
	ScenarioRandom     = "random"     // uniform selection, standard lockdown
	ScenarioLeadership = "leadership" // traffickers first, then packagers, then retailers
	ScenarioProlonged  = "prolonged"  // uniform selection, lockdown doubled
)

// scenarioAliases maps the numbered scenario names onto the named variants.
var scenarioAliases = map[string]string{
	"scenario1": ScenarioRandom,
	"scenario2": ScenarioLeadership,
	"scenario3": ScenarioProlonged,
}

// Config is the full set of recognized options for one run.
type Config struct {
	// Horizon
	Years int `json:"years" yaml:"years" validate:"min=1,max=50"`

	// Seed population
	InitialTraffickers int `json:"initial_traffickers" yaml:"initial_traffickers" validate:"min=0,max=1000"`
	InitialPackagers   int `json:"initial_packagers" yaml:"initial_packagers" validate:"min=0,max=1000"`
	InitialRetailers   int `json:"initial_retailers" yaml:"initial_retailers" validate:"min=0,max=5000"`

	// Law enforcement
	ArrestScenario         int     `json:"arrest_scenario" yaml:"arrest_scenario" validate:"min=0,max=100"` // percent removed at the major disruption
	Scenario               string  `json:"scenario" yaml:"scenario" validate:"required"`
	DisruptionTick         int     `json:"disruption_tick" yaml:"disruption_tick" validate:"min=1"`
	LockdownDays           int     `json:"lockdown_days" yaml:"lockdown_days" validate:"min=0"`
	MinorArrestProbability float64 `json:"minor_arrest_probability" yaml:"minor_arrest_probability" validate:"gte=0,lte=1"`

	// Organization behaviour
	EfficiencyVsSecurity float64 `json:"efficiency_vs_security" yaml:"efficiency_vs_security" validate:"gte=0,lte=1"`
	DirectRetail         bool    `json:"direct_retail" yaml:"direct_retail"` // permits trafficker–retailer links
	Recruitment          bool    `json:"recruitment" yaml:"recruitment"`
	MinMembersPerRole    int     `json:"min_members_per_role" yaml:"min_members_per_role" validate:"min=1"`
	InsolvencyWindow     int     `json:"insolvency_window" yaml:"insolvency_window" validate:"min=1"` // ticks with an empty treasury before collapse
	HaltOnCollapse       bool    `json:"halt_on_collapse" yaml:"halt_on_collapse"`

	// Observation
	StatsEvery int `json:"stats_every" yaml:"stats_every" validate:"min=1"`

	Market      Market      `json:"market" yaml:"market"`
	Calibration Calibration `json:"calibration" yaml:"calibration"`
}

// Market holds prices, dose bands and financial constants.
type Market struct {
	GramPerDose           float64 `json:"gram_per_dose" yaml:"gram_per_dose" validate:"gt=0"`
	DosesPerRetailPackage float64 `json:"doses_per_retail_package" yaml:"doses_per_retail_package" validate:"gt=0"`
	PricePerDose          float64 `json:"price_per_dose" yaml:"price_per_dose" validate:"gt=0"`
	MinDoseMargin         float64 `json:"min_dose_margin" yaml:"min_dose_margin" validate:"gte=0"`

	// Yearly prices per gram; the last entry holds for every later year.
	Wholesale           []float64 `json:"wholesale" yaml:"wholesale" validate:"min=1,dive,gt=0"`
	Retail              []float64 `json:"retail" yaml:"retail" validate:"min=1,dive,gt=0"`
	WholesaleVolatility float64   `json:"wholesale_volatility" yaml:"wholesale_volatility" validate:"gte=0"`

	// Amplitude of the slow market-condition drift added to the monthly shock.
	ConditionDrift float64 `json:"condition_drift" yaml:"condition_drift" validate:"gte=0,lte=1"`

	// Bands interpolated over the two calibration years.
	UnitDose    Band `json:"unit_dose" yaml:"unit_dose"`
	UnitDoseMin Band `json:"unit_dose_min" yaml:"unit_dose_min"`
	UnitDoseMax Band `json:"unit_dose_max" yaml:"unit_dose_max"`
	CostPerDay  Band `json:"cost_per_day" yaml:"cost_per_day"`

	StartUpMonths int     `json:"start_up_months" yaml:"start_up_months" validate:"min=1"`
	StartUpMoney  float64 `json:"start_up_money" yaml:"start_up_money" validate:"gte=0"`

	TraffickersShare     float64 `json:"traffickers_share" yaml:"traffickers_share" validate:"gte=0,lte=1"`
	RetailersShare       float64 `json:"retailers_share" yaml:"retailers_share" validate:"gte=0,lt=1"`
	ProfitOfRetailersMax float64 `json:"profit_of_retailers_max" yaml:"profit_of_retailers_max" validate:"gt=0"`

	DrugMaxPackagers float64 `json:"drug_max_packagers" yaml:"drug_max_packagers" validate:"gt=0"`
	DrugMaxRetailers float64 `json:"drug_max_retailers" yaml:"drug_max_retailers" validate:"gt=0"`

	ArrestedRetailerSupport float64 `json:"arrested_retailer_support" yaml:"arrested_retailer_support" validate:"gte=0"` // weekly
	ArrestedOtherSupport    float64 `json:"arrested_other_support" yaml:"arrested_other_support" validate:"gte=0"`       // weekly

	ProfitRanges []ProfitRange `json:"profit_ranges" yaml:"profit_ranges" validate:"min=1,dive"`
}

// Band is a calibrated value that moves linearly from Start to End.
type Band struct {
	Start float64 `json:"start" yaml:"start" validate:"gte=0"`
	End   float64 `json:"end" yaml:"end" validate:"gte=0"`
}

// ProfitRange bounds the daily wages of traffickers and packagers at one
// efficiency-vs-security level.
type ProfitRange struct {
	Level          float64 `json:"level" yaml:"level" validate:"gte=0,lte=1"`
	TraffickersMin float64 `json:"traffickers_min" yaml:"traffickers_min" validate:"gte=0"`
	TraffickersMax float64 `json:"traffickers_max" yaml:"traffickers_max" validate:"gte=0"`
	PackagersMin   float64 `json:"packagers_min" yaml:"packagers_min" validate:"gte=0"`
	PackagersMax   float64 `json:"packagers_max" yaml:"packagers_max" validate:"gte=0"`
}

// Calibration holds the member counts observed at the end of the calibration window.
type Calibration struct {
	Traffickers int `json:"traffickers" yaml:"traffickers" validate:"min=0"`
	Packagers   int `json:"packagers" yaml:"packagers" validate:"min=0"`
	Retailers   int `json:"retailers" yaml:"retailers" validate:"min=0"`
}

// Default returns the calibrated configuration.
func Default() Config {
	return Config{
		Years:                  5,
		InitialTraffickers:     5,
		InitialPackagers:       5,
		InitialRetailers:       34,
		ArrestScenario:         0,
		Scenario:               ScenarioRandom,
		DisruptionTick:         2 * 365,
		LockdownDays:           60,
		MinorArrestProbability: 0.5,
		EfficiencyVsSecurity:   0.5,
		Recruitment:            true,
		MinMembersPerRole:      1,
		InsolvencyWindow:       30,
		StatsEvery:             1,
		Market:                 DefaultMarket(),
		Calibration: Calibration{
			Traffickers: 16,
			Packagers:   13,
			Retailers:   37,
		},
	}
}

// DefaultMarket returns the 2008–2010 market calibration.
func DefaultMarket() Market {
	return Market{
		GramPerDose:           0.25,
		DosesPerRetailPackage: 23,
		PricePerDose:          32,
		Wholesale:             []float64{40.20, 40.68, 43.90},
		Retail:                []float64{70.26, 70.47, 75.36},
		WholesaleVolatility:   8.73 * 0.5,
		ConditionDrift:        0.1,
		UnitDose:              Band{Start: 580, End: 1500},
		UnitDoseMin:           Band{Start: 530, End: 1370},
		UnitDoseMax:           Band{Start: 900, End: 2340},
		CostPerDay:            Band{Start: 10300, End: 26900},
		StartUpMonths:         2,
		// Two months of 2010 running costs, scaled to the 2008 packager count.
		StartUpMoney:            26900 * 5.0 / 13.0 * 2 * 30,
		TraffickersShare:        0.7,
		RetailersShare:          0.18,
		ProfitOfRetailersMax:    500,
		DrugMaxPackagers:        500,
		DrugMaxRetailers:        200,
		ArrestedRetailerSupport: 225,
		ArrestedOtherSupport:    500,
		ProfitRanges: []ProfitRange{
			{Level: 0.0, TraffickersMin: 350, TraffickersMax: 400, PackagersMin: 175, PackagersMax: 200},
			{Level: 0.2, TraffickersMin: 400, TraffickersMax: 466, PackagersMin: 200, PackagersMax: 233},
			{Level: 0.4, TraffickersMin: 450, TraffickersMax: 533, PackagersMin: 225, PackagersMax: 266},
			{Level: 0.5, TraffickersMin: 475, TraffickersMax: 566, PackagersMin: 237, PackagersMax: 283},
			{Level: 0.6, TraffickersMin: 500, TraffickersMax: 600, PackagersMin: 250, PackagersMax: 300},
			{Level: 0.8, TraffickersMin: 200, TraffickersMax: 700, PackagersMin: 50, PackagersMax: 350},
			{Level: 1.0, TraffickersMin: 200, TraffickersMax: 800, PackagersMin: 50, PackagersMax: 400},
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.Market.Wholesale = slices.Clone(c.Market.Wholesale)
	c.Market.Retail = slices.Clone(c.Market.Retail)
	c.Market.ProfitRanges = slices.Clone(c.Market.ProfitRanges)
	return c
}

// TotalTicks is the simulation horizon in ticks.
func (c Config) TotalTicks() uint64 {
	return uint64(c.Years) * TicksPerYear
}

// InitialMembers is the seed population size.
func (c Config) InitialMembers() int {
	return c.InitialTraffickers + c.InitialPackagers + c.InitialRetailers
}

// ScenarioVariant resolves numbered aliases to the named variant. Unknown
// names are returned unchanged and rejected by Validate.
func (c Config) ScenarioVariant() string {
	if v, ok := scenarioAliases[c.Scenario]; ok {
		return v
	}
	return c.Scenario
}

// LockdownTicks is the length of the post-disruption freeze for the configured variant.
func (c Config) LockdownTicks() uint64 {
	if c.ScenarioVariant() == ScenarioProlonged {
		return uint64(2 * c.LockdownDays)
	}
	return uint64(c.LockdownDays)
}

// TicksPerYear is the number of ticks (days) in one simulated year.
const TicksPerYear = 365
