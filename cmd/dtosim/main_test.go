package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/config"
	"github.com/talgya/dtosim/internal/persistence"
	"github.com/talgya/dtosim/internal/series"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestLoadConfigFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("years: 3\narrest_scenario: 10\n"), 0644))

	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--arrest", "50", "--scenario", "leadership", "--no-recruitment"}))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Years, "file value kept")
	assert.Equal(t, 50, cfg.ArrestScenario, "flag overrides file")
	assert.Equal(t, config.ScenarioLeadership, cfg.Scenario)
	assert.False(t, cfg.Recruitment)
	assert.Equal(t, config.Default().DisruptionTick, cfg.DisruptionTick, "unset flags leave defaults")
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "series.csv")
	out, err := execute(t, "run", "--quiet", "--years", "1", "--seed", "5", "--arrest", "30",
		"--disruption-tick", "100", "--out", csvPath, "--json")
	require.NoError(t, err)

	var res struct {
		Seed    uint64         `json:"seed"`
		Summary series.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint64(5), res.Seed)
	assert.Equal(t, uint64(365), res.Summary.Ticks)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 366, "header plus one row per day")
	assert.Equal(t, series.Names(), rows[0])
}

func TestRunAndResumeThroughDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	out, err := execute(t, "run", "--quiet", "--years", "1", "--seed", "9", "--db", dbPath,
		"--snapshot-every", "100", "--json")
	require.NoError(t, err)

	var first struct {
		RunID   string         `json:"run_id"`
		Summary series.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	require.NotEmpty(t, first.RunID)

	store, err := persistence.Open(dbPath)
	require.NoError(t, err)
	run, err := store.GetRun(first.RunID)
	require.NoError(t, err)
	assert.Equal(t, persistence.StatusFinished, run.Status)
	snaps, err := store.Snapshots(first.RunID)
	require.NoError(t, err)
	ticks := make([]uint64, len(snaps))
	for i, s := range snaps {
		ticks[i] = s.Tick
	}
	assert.Equal(t, []uint64{100, 200, 300, 365}, ticks)
	require.NoError(t, store.Close())

	// Resuming from day 200 replays the tail to the same end state.
	out, err = execute(t, "resume", "--db", dbPath, "--run", first.RunID, "--tick", "200", "--json")
	require.NoError(t, err)
	var resumed struct {
		Summary series.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resumed))
	assert.Equal(t, first.Summary, resumed.Summary)
}

func TestResumeFromFile(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "end.snap")
	_, err := execute(t, "run", "--quiet", "--years", "1", "--seed", "3", "--snapshot-out", snap)
	require.NoError(t, err)

	out, err := execute(t, "resume", "--snapshot", snap, "--json")
	require.NoError(t, err, "resuming a finished run is a no-op")
	assert.Contains(t, out, `"ticks":365`)
}

func TestResumeValidatesArguments(t *testing.T) {
	_, err := execute(t, "resume")
	assert.Error(t, err)

	_, err = execute(t, "resume", "--db", filepath.Join(t.TempDir(), "x.db"), "--run", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid run id")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--quiet", "--arrest", "150")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
