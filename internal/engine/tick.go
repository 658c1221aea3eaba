// Package engine provides the tick-based simulation of a drug trafficking
// organization and a paced loop for serving a live run.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/dtosim/internal/series"
)

// Engine drives a Simulation forward at a wall-clock pace. All access to
// the simulation while the engine runs goes through Do or Step.
type Engine struct {
	mu  sync.Mutex
	sim *Simulation

	speed    float64 // ticks per Interval; 0 = paused
	paused   bool
	Interval time.Duration // base tick interval (default 1 second)

	// Called after every tick with the engine lock held.
	OnRecord func(rec series.Record)
	// Called on the first tick of each simulated month with the lock held.
	OnMonth func(sim *Simulation)
	// Called with the wall time of every tick.
	OnTiming func(d time.Duration)
}

// NewEngine creates an engine for sim with default pacing.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		sim:      sim,
		speed:    1.0,
		Interval: time.Second,
	}
}

// Run steps the simulation until it is done or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed())
	defer func() { slog.Info("simulation engine stopped", "tick", e.Tick()) }()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		speed, paused := e.pacing()
		if paused || speed <= 0 {
			if !sleep(ctx, 100*time.Millisecond) {
				return nil
			}
			continue
		}

		start := time.Now()
		done, err := e.advance()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		// Sleep for the remainder of the tick interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if !sleep(ctx, target-elapsed) {
				return nil
			}
		}
	}
}

func (e *Engine) advance() (done bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sim.Done() {
		return true, nil
	}
	_, err = e.stepLocked()
	return false, err
}

func (e *Engine) stepLocked() (series.Record, error) {
	start := time.Now()
	rec, err := e.sim.Step()
	if err != nil {
		return rec, err
	}
	if e.OnTiming != nil {
		e.OnTiming(time.Since(start))
	}
	if e.OnRecord != nil {
		e.OnRecord(rec)
	}
	if rec.Tick%30 == 1 && e.OnMonth != nil {
		e.OnMonth(e.sim)
	}
	return rec, nil
}

// Step advances up to n ticks immediately, regardless of pacing. It stops
// early when the run is done.
func (e *Engine) Step(n int) ([]series.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []series.Record
	for i := 0; i < n && !e.sim.Done(); i++ {
		rec, err := e.stepLocked()
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Do runs fn with exclusive access to the simulation.
func (e *Engine) Do(fn func(sim *Simulation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sim)
}

// Tick returns the last processed tick.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.Tick()
}

// Speed returns the pacing multiplier.
func (e *Engine) Speed() float64 {
	speed, _ := e.pacing()
	return speed
}

// ErrInvalidSpeed is returned for negative speeds.
var ErrInvalidSpeed = errors.New("speed must be non-negative")

// SetSpeed changes the pacing multiplier: 1.0 = one tick per Interval.
func (e *Engine) SetSpeed(speed float64) error {
	if speed < 0 {
		return ErrInvalidSpeed
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
	return nil
}

// Pause suspends pacing; Step still works.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume restarts pacing after Pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

// Paused reports whether pacing is suspended.
func (e *Engine) Paused() bool {
	_, paused := e.pacing()
	return paused
}

func (e *Engine) pacing() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed, e.paused
}

// sleep waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
