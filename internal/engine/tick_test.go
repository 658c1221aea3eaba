package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/series"
)

func TestEngineRunsToCompletion(t *testing.T) {
	sim := newSim(t, oneYear(), 1)
	eng := NewEngine(sim)
	eng.Interval = time.Microsecond
	require.NoError(t, eng.SetSpeed(1000))

	var records, months, timed int
	eng.OnRecord = func(series.Record) { records++ }
	eng.OnMonth = func(*Simulation) { months++ }
	eng.OnTiming = func(time.Duration) { timed++ }

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, eng.Run(ctx))

	assert.Equal(t, uint64(365), eng.Tick())
	assert.Equal(t, 365, records)
	assert.Equal(t, 13, months)
	assert.Equal(t, 365, timed)
}

func TestEngineStepAndPause(t *testing.T) {
	eng := NewEngine(newSim(t, oneYear(), 2))
	eng.Pause()
	assert.True(t, eng.Paused())

	recs, err := eng.Step(10)
	require.NoError(t, err)
	assert.Len(t, recs, 10)
	assert.Equal(t, uint64(10), eng.Tick())

	recs, err = eng.Step(1000)
	require.NoError(t, err)
	assert.Len(t, recs, 355, "stops at the horizon")

	eng.Resume()
	assert.False(t, eng.Paused())
}

func TestEngineSpeed(t *testing.T) {
	eng := NewEngine(newSim(t, oneYear(), 3))
	assert.Equal(t, 1.0, eng.Speed())
	assert.ErrorIs(t, eng.SetSpeed(-1), ErrInvalidSpeed)
	require.NoError(t, eng.SetSpeed(0))
	assert.Zero(t, eng.Speed())
}

func TestEngineStopsOnCancel(t *testing.T) {
	eng := NewEngine(newSim(t, oneYear(), 4))
	eng.Pause()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.Zero(t, eng.Tick())
}

func TestEngineDo(t *testing.T) {
	eng := NewEngine(newSim(t, oneYear(), 5))
	_, err := eng.Step(3)
	require.NoError(t, err)
	var tick uint64
	eng.Do(func(sim *Simulation) { tick = sim.Tick() })
	assert.Equal(t, uint64(3), tick)
}
