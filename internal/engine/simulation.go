// Simulation ties together the organization's systems and runs them each tick.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/config"
	"github.com/talgya/dtosim/internal/economy"
	"github.com/talgya/dtosim/internal/entropy"
	"github.com/talgya/dtosim/internal/network"
	"github.com/talgya/dtosim/internal/organization"
	"github.com/talgya/dtosim/internal/series"
	"github.com/talgya/dtosim/internal/stats"
)

var (
	// ErrRunAborted is returned by every Step after a structural failure.
	ErrRunAborted = errors.New("run aborted")
	// ErrHorizonReached is returned by Step once the run is done.
	ErrHorizonReached = errors.New("horizon reached")
)

// Event is a notable occurrence in the run.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "arrest", "disruption", "recruit", "collapse"
}

// maxEvents bounds the in-memory event buffer.
const maxEvents = 1000

// Simulation holds the complete state of one run. It is single-threaded:
// callers sharing it across goroutines must serialize access (see Engine).
type Simulation struct {
	cfg  config.Config
	seed uint64
	tick uint64

	rng     *entropy.Source
	spawner *agents.Spawner
	market  *economy.Conditions
	graph   *network.Graph
	org     *organization.Organization
	params  economy.Params

	// Wholesale price drawn at the last acquisition round.
	wholesaleNow float64

	day     dayLedger
	metrics Observation
	series  *series.Series
	events  []Event

	err error
	log *slog.Logger
}

// dayLedger holds the per-tick activity that is reset at the start of every tick.
type dayLedger struct {
	revenue  float64
	expenses float64
	demanded int
	sold     int
	lockdown bool
}

// Observation caches the last computed network metrics.
type Observation struct {
	Metrics stats.Metrics `json:"metrics"`
	Tick    uint64        `json:"tick"`
	Version uint64        `json:"version"`
	Valid   bool          `json:"valid"`
}

func (o Observation) clone() Observation {
	o.Metrics.ComponentSizes = append([]int(nil), o.Metrics.ComponentSizes...)
	return o
}

// Result is the outcome of a completed run.
type Result struct {
	Seed    uint64               `json:"seed"`
	Series  map[string][]float64 `json:"series"`
	Records []series.Record      `json:"records"`
	Final   series.Summary       `json:"final"`
}

// New builds a run from a validated configuration and a seed.
func New(cfg config.Config, seed uint64) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	org, err := organization.New(cfg.Market.StartUpMoney)
	if err != nil {
		return nil, err
	}
	rng := entropy.New(seed)
	s := &Simulation{
		cfg:     cfg,
		seed:    seed,
		rng:     rng,
		spawner: agents.NewSpawner(rng),
		market:  economy.NewConditions(seed, cfg.Market.ConditionDrift),
		graph:   network.New(cfg.DirectRetail),
		org:     org,
		series:  series.New(nil),
		log:     slog.Default(),
	}
	if err := s.setup(); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	return s, nil
}

// SetLogger replaces the logger; nil restores the default.
func (s *Simulation) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	s.log = l
}

// Config returns the run configuration.
func (s *Simulation) Config() config.Config { return s.cfg }

// Seed returns the run seed.
func (s *Simulation) Seed() uint64 { return s.seed }

// Tick returns the most recently processed tick; 0 before the first step.
func (s *Simulation) Tick() uint64 { return s.tick }

// Graph exposes the member network for read access.
func (s *Simulation) Graph() *network.Graph { return s.graph }

// Organization exposes the global state for read access.
func (s *Simulation) Organization() *organization.Organization { return s.org }

// Params returns the current monthly market parameters.
func (s *Simulation) Params() economy.Params { return s.params }

// Series returns the records emitted so far.
func (s *Simulation) Series() *series.Series { return s.series }

// Metrics returns the last computed network metrics and the tick they describe.
func (s *Simulation) Metrics() (stats.Metrics, uint64) {
	return s.metrics.Metrics, s.metrics.Tick
}

// Events returns the buffered events.
func (s *Simulation) Events() []Event {
	return append([]Event(nil), s.events...)
}

// Done reports whether the run has nothing left to do: the horizon is
// reached, or the organization collapsed and the run halts on collapse.
func (s *Simulation) Done() bool {
	if s.tick >= s.cfg.TotalTicks() {
		return true
	}
	return s.cfg.HaltOnCollapse && !s.org.Viable
}

// Err returns the structural failure that aborted the run, if any.
func (s *Simulation) Err() error { return s.err }

// Step advances exactly one tick and returns its record.
func (s *Simulation) Step() (series.Record, error) {
	if s.err != nil {
		return series.Record{}, fmt.Errorf("%w: %w", ErrRunAborted, s.err)
	}
	if s.Done() {
		return series.Record{}, ErrHorizonReached
	}
	s.tick++
	if err := s.advance(); err != nil {
		s.err = fmt.Errorf("tick %d: %w", s.tick, err)
		s.log.Error("run aborted", "tick", s.tick, "error", err)
		return series.Record{}, s.err
	}
	rec := s.record()
	s.series.Append(rec)
	return rec, nil
}

// Run advances to the end of the run.
func (s *Simulation) Run() (*Result, error) {
	return s.RunContext(context.Background())
}

// RunContext advances to the end of the run, checking ctx between ticks.
func (s *Simulation) RunContext(ctx context.Context) (*Result, error) {
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.Step(); err != nil {
			return nil, err
		}
	}
	return s.Result(), nil
}

// Result assembles the series and final state produced so far.
func (s *Simulation) Result() *Result {
	return &Result{
		Seed:    s.seed,
		Series:  s.series.Columns(),
		Records: s.series.Records(),
		Final:   s.Summary(),
	}
}

// Summary is the current global state.
func (s *Simulation) Summary() series.Summary {
	counts := s.graph.CountByRole()
	return series.Summary{
		Ticks:          s.tick,
		Viable:         s.org.Viable,
		CollapsedAt:    s.org.CollapsedAt,
		CollapseReason: s.org.CollapseReason,
		Traffickers:    counts[agents.RoleTrafficker],
		Packagers:      counts[agents.RolePackager],
		Retailers:      counts[agents.RoleRetailer],
		Treasury:       s.org.Treasury,
		Profit:         s.org.Finances.Profit(),
		Arrested:       s.org.Arrests.Total(),
		Recruits:       s.org.Activity.Recruits,
	}
}

// advance runs the ordered phases of one tick. A collapsed organization
// is frozen: no phase mutates it any more.
func (s *Simulation) advance() error {
	s.day = dayLedger{}
	revenues, expenses := s.org.Finances.Revenues, s.org.Finances.Expenses

	if s.org.Viable {
		if err := s.operate(); err != nil {
			return err
		}
	}

	s.org.Recount(s.graph.ActiveAgents())
	s.day.lockdown = s.org.InLockdown(s.tick)
	s.day.revenue = s.org.Finances.Revenues - revenues
	s.day.expenses = s.org.Finances.Expenses - expenses
	s.observe()

	s.log.Debug("daily report",
		"tick", s.tick,
		"members", s.graph.ActiveCount(),
		"treasury", fmt.Sprintf("%.2f", s.org.Treasury),
		"stock", fmt.Sprintf("%.2f", s.org.TotalStock()),
		"sold", s.day.sold,
	)
	if s.tick%economy.TicksPerMonth == 0 {
		s.logMonth()
	}
	return nil
}

func (s *Simulation) operate() error {
	tick := s.tick
	if tick%economy.TicksPerMonth == 0 {
		s.updateParams()
		if !s.org.InLockdown(tick) {
			if err := s.acquire(); err != nil {
				return fmt.Errorf("acquire: %w", err)
			}
			s.org.Recount(s.graph.ActiveAgents())
		}
	}
	if err := s.distribute(); err != nil {
		return fmt.Errorf("distribute: %w", err)
	}
	if err := s.sell(); err != nil {
		return fmt.Errorf("sell: %w", err)
	}
	if tick%economy.TicksPerWeek == 0 {
		if err := s.settleExpenses(); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		if s.cfg.Recruitment && !s.org.InLockdown(tick) {
			if err := s.recruit(); err != nil {
				return fmt.Errorf("recruit: %w", err)
			}
		}
	}
	if tick%economy.TicksPerMonth == minorArrestDay {
		if err := s.minorArrest(); err != nil {
			return fmt.Errorf("minor arrest: %w", err)
		}
	}
	if tick == uint64(s.cfg.DisruptionTick) {
		if err := s.majorDisruption(); err != nil {
			return fmt.Errorf("major disruption: %w", err)
		}
	}
	s.checkViability()
	return nil
}

func (s *Simulation) updateParams() {
	s.params = economy.Compute(s.cfg.Market, s.cfg.EfficiencyVsSecurity, s.tick, s.graph.CountByRole())
}

func (s *Simulation) emit(category, format string, args ...any) {
	s.events = append(s.events, Event{
		Tick:        s.tick,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

func (s *Simulation) logMonth() {
	counts := s.graph.CountByRole()
	s.log.Info("monthly summary",
		"tick", s.tick,
		"viable", s.org.Viable,
		"traffickers", counts[agents.RoleTrafficker],
		"packagers", counts[agents.RolePackager],
		"retailers", counts[agents.RoleRetailer],
		"treasury", fmt.Sprintf("%.2f", s.org.Treasury),
		"stock", fmt.Sprintf("%.2f", s.org.TotalStock()),
		"acquisitions", s.org.Activity.Acquisitions,
	)
}
