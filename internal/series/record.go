// Package series holds the per-tick observation record of a run and its
// column-oriented view.
package series

import "github.com/talgya/dtosim/internal/stats"

// Record is the observation emitted at the end of one tick. Network metrics
// are refreshed on sampling ticks and carried forward otherwise; StatsTick
// names the tick they were computed on.
type Record struct {
	Tick     uint64 `json:"tick"`
	Viable   bool   `json:"viable"`
	Lockdown bool   `json:"lockdown"`

	Traffickers int `json:"traffickers"`
	Packagers   int `json:"packagers"`
	Retailers   int `json:"retailers"`
	Members     int `json:"members"`

	Treasury      float64 `json:"treasury"`
	DailyRevenue  float64 `json:"daily_revenue"`
	DailyExpenses float64 `json:"daily_expenses"`
	Revenues      float64 `json:"revenues"`
	Expenses      float64 `json:"expenses"`
	Profit        float64 `json:"profit"`
	Arrears       float64 `json:"arrears"`

	WholesalePrice float64 `json:"wholesale_price"`
	DosesDemanded  int     `json:"doses_demanded"`
	DosesSold      int     `json:"doses_sold"`

	Acquisitions  int `json:"acquisitions"`
	Recruits      int `json:"recruits"`
	ArrestedMinor int `json:"arrested_minor"`
	ArrestedMajor int `json:"arrested_major"`

	StockTraffickers float64 `json:"stock_traffickers"`
	StockPackagers   float64 `json:"stock_packagers"`
	StockRetailers   float64 `json:"stock_retailers"`
	SeizedDrug       float64 `json:"seized_drug"`

	ExhaustTraffickers int `json:"exhaust_traffickers"`
	ExhaustPackagers   int `json:"exhaust_packagers"`
	ExhaustRetailers   int `json:"exhaust_retailers"`

	StatsTick uint64        `json:"stats_tick"`
	Network   stats.Metrics `json:"network"`
}

// Stock is the total drug held by active members.
func (r Record) Stock() float64 {
	return r.StockTraffickers + r.StockPackagers + r.StockRetailers
}

// Summary is the global state at the end of a run.
type Summary struct {
	Ticks          uint64  `json:"ticks"`
	Viable         bool    `json:"viable"`
	CollapsedAt    uint64  `json:"collapsed_at,omitempty"`
	CollapseReason string  `json:"collapse_reason,omitempty"`
	Traffickers    int     `json:"traffickers"`
	Packagers      int     `json:"packagers"`
	Retailers      int     `json:"retailers"`
	Treasury       float64 `json:"treasury"`
	Profit         float64 `json:"profit"`
	Arrested       int     `json:"arrested"`
	Recruits       int     `json:"recruits"`
}
