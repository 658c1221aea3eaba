// Package organization holds the shared state of the trafficking
// organization: its treasury, cumulative finances, drug stocks, the
// post-disruption lockdown and the viability flag.
package organization

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/dtosim/internal/agents"
)

var (
	ErrNegativeAmount    = errors.New("negative amount")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// stockEpsilon absorbs float rounding on transfers that drain a stock exactly.
const stockEpsilon = 1e-9

// Finances are the cumulative money flows of a run.
type Finances struct {
	Revenues float64 `json:"revenues"` // treasury share of sales
	Expenses float64 `json:"expenses"` // acquisitions + wages + support

	AcquisitionCost float64 `json:"acquisition_cost"`
	TraffickerWages float64 `json:"trafficker_wages"`
	PackagerWages   float64 `json:"packager_wages"`
	RetailerTakings float64 `json:"retailer_takings"` // retailers' share, kept by them
	FamilySupport   float64 `json:"family_support"`   // paid for arrested members
	Arrears         float64 `json:"arrears"`          // owed but unpaid for lack of cash
}

// Profit is revenues net of expenses.
func (f Finances) Profit() float64 { return f.Revenues - f.Expenses }

// Arrests counts removals per role.
type Arrests struct {
	Minor [agents.NumRoles]int `json:"minor"`
	Major [agents.NumRoles]int `json:"major"`
}

// Total is the number of members removed so far.
func (a Arrests) Total() int {
	n := 0
	for i := range a.Minor {
		n += a.Minor[i] + a.Major[i]
	}
	return n
}

// Activity counts operational events.
type Activity struct {
	Acquisitions       int `json:"acquisitions"`
	FailedAcquisitions int `json:"failed_acquisitions"`
	Recruits           int `json:"recruits"`
	DosesSold          int `json:"doses_sold"`

	// Days on which a stage ran dry.
	ExhaustTraffickers int `json:"exhaust_traffickers"`
	ExhaustPackagers   int `json:"exhaust_packagers"`
	ExhaustRetailers   int `json:"exhaust_retailers"`
}

// Extremes tracks observed ranges of the acquisition signals.
type Extremes struct {
	MinWholesale float64 `json:"min_wholesale"`
	MaxWholesale float64 `json:"max_wholesale"`
	MinAcqIndex  float64 `json:"min_acq_index"`
	MaxAcqIndex  float64 `json:"max_acq_index"`
	PriceSeen    bool    `json:"price_seen"`
	IndexSeen    bool    `json:"index_seen"`
}

// ObservePrice widens the wholesale price range.
func (e *Extremes) ObservePrice(p float64) {
	if !e.PriceSeen {
		e.MinWholesale, e.MaxWholesale, e.PriceSeen = p, p, true
		return
	}
	e.MinWholesale = math.Min(e.MinWholesale, p)
	e.MaxWholesale = math.Max(e.MaxWholesale, p)
}

// ObserveIndex widens the acquisition index range.
func (e *Extremes) ObserveIndex(v float64) {
	if !e.IndexSeen {
		e.MinAcqIndex, e.MaxAcqIndex, e.IndexSeen = v, v, true
		return
	}
	e.MinAcqIndex = math.Min(e.MinAcqIndex, v)
	e.MaxAcqIndex = math.Max(e.MaxAcqIndex, v)
}

// Organization is the global state of a run. Only the trafficking
// activities and law enforcement mutate it.
type Organization struct {
	Treasury float64  `json:"treasury"` // shared cash box, never negative
	Finances Finances `json:"finances"`
	Arrests  Arrests  `json:"arrests"`
	Activity Activity `json:"activity"`
	Extremes Extremes `json:"extremes"`

	// Stock held per role, in grams, as of the last Recount.
	Stock      [agents.NumRoles]float64 `json:"stock"`
	SeizedDrug float64                  `json:"seized_drug"`

	// Post-disruption freeze: acquisition and recruitment are suspended on
	// the ticks after DisruptedAt up to and including LockdownUntil.
	DisruptedAt   uint64 `json:"disrupted_at,omitempty"`
	LockdownUntil uint64 `json:"lockdown_until,omitempty"`

	// Viable is monotonic: once false it never returns to true.
	Viable         bool   `json:"viable"`
	CollapsedAt    uint64 `json:"collapsed_at,omitempty"`
	CollapseReason string `json:"collapse_reason,omitempty"`
	InsolventTicks int    `json:"insolvent_ticks"`
}

// New creates a viable organization with the given start-up capital.
func New(startUp float64) (*Organization, error) {
	if startUp < 0 {
		return nil, fmt.Errorf("start-up capital: %w", ErrNegativeAmount)
	}
	return &Organization{Treasury: startUp, Viable: true}, nil
}

// Credit adds sale proceeds to the treasury.
func (o *Organization) Credit(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("credit %v: %w", amount, ErrNegativeAmount)
	}
	o.Treasury += amount
	o.Finances.Revenues += amount
	return nil
}

// Spend debits an acquisition. The cost must be covered by the treasury.
func (o *Organization) Spend(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("spend %v: %w", amount, ErrNegativeAmount)
	}
	if amount > o.Treasury+stockEpsilon {
		return fmt.Errorf("spend %.2f of %.2f: %w", amount, o.Treasury, ErrInsufficientFunds)
	}
	o.Treasury = math.Max(0, o.Treasury-amount)
	o.Finances.Expenses += amount
	o.Finances.AcquisitionCost += amount
	return nil
}

// Pay settles an obligation as far as the treasury allows. The unpaid
// remainder is recorded as arrears. It returns the amount actually paid.
func (o *Organization) Pay(amount float64) (float64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("pay %v: %w", amount, ErrNegativeAmount)
	}
	paid := math.Min(amount, o.Treasury)
	o.Treasury -= paid
	o.Finances.Expenses += paid
	o.Finances.Arrears += amount - paid
	return paid, nil
}

// InLockdown reports whether the post-disruption freeze is in force at tick.
func (o *Organization) InLockdown(tick uint64) bool {
	return o.DisruptedAt > 0 && tick > o.DisruptedAt && tick <= o.LockdownUntil
}

// BeginLockdown starts the freeze at tick for length ticks.
func (o *Organization) BeginLockdown(tick, length uint64) {
	o.DisruptedAt = tick
	o.LockdownUntil = tick + length
}

// MarkNonViable records the collapse. Later calls keep the first reason.
func (o *Organization) MarkNonViable(tick uint64, reason string) {
	if !o.Viable {
		return
	}
	o.Viable = false
	o.CollapsedAt = tick
	o.CollapseReason = reason
}

// ObserveTreasury advances the insolvency counter and reports whether the
// treasury has been empty for at least window consecutive ticks.
func (o *Organization) ObserveTreasury(window int) bool {
	if o.Treasury <= 0 {
		o.InsolventTicks++
	} else {
		o.InsolventTicks = 0
	}
	return o.InsolventTicks >= window
}

// Recount rebuilds the per-role stock totals from the active agents.
func (o *Organization) Recount(active []*agents.Agent) {
	o.Stock = [agents.NumRoles]float64{}
	for _, a := range active {
		o.Stock[a.Role] += a.Drug
	}
}

// TotalStock is the drug held across all roles.
func (o *Organization) TotalStock() float64 {
	return o.Stock[0] + o.Stock[1] + o.Stock[2]
}

// TransferStock moves grams of drug between two active agents.
func TransferStock(from, to *agents.Agent, grams float64) error {
	if grams < 0 {
		return fmt.Errorf("transfer %v from %s: %w", grams, from, ErrNegativeAmount)
	}
	if !from.Active || !to.Active {
		return fmt.Errorf("transfer %s → %s: inactive party", from, to)
	}
	if grams > from.Drug+stockEpsilon {
		return fmt.Errorf("transfer %.4f from %s holding %.4f: %w", grams, from, from.Drug, ErrInsufficientStock)
	}
	from.Drug = math.Max(0, from.Drug-grams)
	to.Drug += grams
	return nil
}
