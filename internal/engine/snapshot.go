// Snapshot and restore of a run at a tick boundary.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/config"
	"github.com/talgya/dtosim/internal/economy"
	"github.com/talgya/dtosim/internal/entropy"
	"github.com/talgya/dtosim/internal/network"
	"github.com/talgya/dtosim/internal/organization"
	"github.com/talgya/dtosim/internal/series"
)

// SnapshotFormat is bumped when the snapshot layout changes incompatibly.
const SnapshotFormat = 1

// Snapshot is the complete state of a run between two ticks. Restoring it
// and stepping reproduces the uninterrupted run exactly.
type Snapshot struct {
	Format       int                       `json:"format"`
	Config       config.Config             `json:"config"`
	Seed         uint64                    `json:"seed"`
	Tick         uint64                    `json:"tick"`
	RNG          []byte                    `json:"rng"`
	Network      network.State             `json:"network"`
	Organization organization.Organization `json:"organization"`
	Params       economy.Params            `json:"params"`
	WholesaleNow float64                   `json:"wholesale_now"`
	Observation  Observation               `json:"observation"`
	Records      []series.Record           `json:"records,omitempty"`
	Events       []Event                   `json:"events,omitempty"`
	Err          string                    `json:"err,omitempty"`
}

// Snapshot captures the run. The returned value shares no memory with it.
func (s *Simulation) Snapshot() (*Snapshot, error) {
	rng, err := s.rng.MarshalBinary()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Format:       SnapshotFormat,
		Config:       s.cfg.Clone(),
		Seed:         s.seed,
		Tick:         s.tick,
		RNG:          rng,
		Network:      s.graph.Export(),
		Organization: *s.org,
		Params:       s.params,
		WholesaleNow: s.wholesaleNow,
		Observation:  s.metrics.clone(),
		Records:      s.series.Records(),
		Events:       s.Events(),
	}
	if s.err != nil {
		snap.Err = s.err.Error()
	}
	return snap, nil
}

// Restore rebuilds a run from a snapshot.
func Restore(snap *Snapshot) (*Simulation, error) {
	if snap.Format != SnapshotFormat {
		return nil, fmt.Errorf("snapshot format %d, want %d", snap.Format, SnapshotFormat)
	}
	if snap.Err != "" {
		return nil, fmt.Errorf("%w: %s", ErrRunAborted, snap.Err)
	}
	if err := snap.Config.Validate(); err != nil {
		return nil, err
	}
	if snap.Tick > snap.Config.TotalTicks() {
		return nil, fmt.Errorf("snapshot tick %d beyond horizon %d", snap.Tick, snap.Config.TotalTicks())
	}
	rng := entropy.New(0)
	if err := rng.UnmarshalBinary(snap.RNG); err != nil {
		return nil, fmt.Errorf("rng state: %w", err)
	}
	g, err := network.Import(snap.Network)
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	if g.DirectRetail() != snap.Config.DirectRetail {
		return nil, fmt.Errorf("network direct-retail flag disagrees with config")
	}
	org := snap.Organization
	for _, a := range g.All() {
		if !a.Active && a.Drug != 0 {
			return nil, fmt.Errorf("arrested %s holds stock", a)
		}
		if a.Drug < 0 || a.Cash < 0 {
			return nil, fmt.Errorf("%s has negative balance", a)
		}
	}
	if org.Treasury < 0 {
		return nil, fmt.Errorf("negative treasury")
	}

	s := &Simulation{
		cfg:          snap.Config,
		seed:         snap.Seed,
		tick:         snap.Tick,
		rng:          rng,
		spawner:      agents.NewSpawner(rng),
		market:       economy.NewConditions(snap.Seed, snap.Config.Market.ConditionDrift),
		graph:        g,
		org:          &org,
		params:       snap.Params,
		wholesaleNow: snap.WholesaleNow,
		metrics:      snap.Observation,
		series:       series.New(snap.Records),
		events:       append([]Event(nil), snap.Events...),
		log:          slog.Default(),
	}
	return s, nil
}
