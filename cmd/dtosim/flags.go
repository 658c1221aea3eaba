package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/dtosim/internal/config"
	"github.com/talgya/dtosim/internal/engine"
	"github.com/talgya/dtosim/internal/entropy"
	"github.com/talgya/dtosim/internal/persistence"
	"github.com/talgya/dtosim/internal/series"
)

// addScenarioFlags registers the flags that override the configuration.
func addScenarioFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "YAML configuration file (defaults when empty)")
	f.Uint64("seed", 0, "Random seed (fresh seed when 0)")
	f.Int("years", 0, "Simulated years")
	f.Int("arrest", 0, "Percentage of members removed by the major disruption (0-100)")
	f.String("scenario", "", "Disruption scenario (random, leadership, prolonged)")
	f.Int("disruption-tick", 0, "Day of the major disruption")
	f.Float64("evs", 0, "Efficiency vs security (0-1)")
	f.Bool("direct-retail", false, "Permit trafficker-retailer links")
	f.Bool("no-recruitment", false, "Disable recruitment")
	f.Int("stats-every", 0, "Compute network statistics every N days")
}

// loadConfig reads the configuration file and applies flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()
	cfg := config.Default()
	if path, _ := f.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if f.Changed("years") {
		cfg.Years, _ = f.GetInt("years")
	}
	if f.Changed("arrest") {
		cfg.ArrestScenario, _ = f.GetInt("arrest")
	}
	if f.Changed("scenario") {
		cfg.Scenario, _ = f.GetString("scenario")
	}
	if f.Changed("disruption-tick") {
		cfg.DisruptionTick, _ = f.GetInt("disruption-tick")
	}
	if f.Changed("evs") {
		cfg.EfficiencyVsSecurity, _ = f.GetFloat64("evs")
	}
	if f.Changed("direct-retail") {
		cfg.DirectRetail, _ = f.GetBool("direct-retail")
	}
	if f.Changed("no-recruitment") {
		off, _ := f.GetBool("no-recruitment")
		cfg.Recruitment = !off
	}
	if f.Changed("stats-every") {
		cfg.StatsEvery, _ = f.GetInt("stats-every")
	}
	return cfg, nil
}

func seedFlag(cmd *cobra.Command) uint64 {
	seed, _ := cmd.Flags().GetUint64("seed")
	if seed == 0 {
		seed = entropy.NewSeed()
	}
	return seed
}

// runIDFlag returns the --run flag after checking it is a run identifier.
func runIDFlag(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("run")
	if id == "" {
		return "", nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", id, err)
	}
	return id, nil
}

// openDB opens the run store, creating its directory.
func openDB(path string) (*persistence.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return persistence.Open(path)
}

// writeResult writes the per-day series to path: CSV when the extension
// is .csv, JSON otherwise.
func writeResult(path string, res *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = writeCSV(f, res.Records)
	} else {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, recs []series.Record) error {
	cw := csv.NewWriter(w)
	names := series.Names()
	if err := cw.Write(names); err != nil {
		return err
	}
	cols := series.New(recs).Columns()
	row := make([]string, len(names))
	for i := range recs {
		for j, name := range names {
			row[j] = strconv.FormatFloat(cols[name][i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func printSummary(cmd *cobra.Command, runID string, seed uint64, sum series.Summary) {
	out := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		json.NewEncoder(out).Encode(map[string]any{
			"run_id":  runID,
			"seed":    seed,
			"summary": sum,
		})
		return
	}

	if runID != "" {
		fmt.Fprintf(out, "Run %s\n", runID)
	}
	fmt.Fprintf(out, "Seed %d, %d days\n", seed, sum.Ticks)
	fmt.Fprintf(out, "Members: %d traffickers, %d packagers, %d retailers\n",
		sum.Traffickers, sum.Packagers, sum.Retailers)
	fmt.Fprintf(out, "Treasury: %.2f  Profit: %.2f\n", sum.Treasury, sum.Profit)
	fmt.Fprintf(out, "Arrested: %d  Recruited: %d\n", sum.Arrested, sum.Recruits)
	if sum.Viable {
		fmt.Fprintln(out, "Organization viable")
	} else {
		fmt.Fprintf(out, "Organization collapsed on day %d: %s\n", sum.CollapsedAt, sum.CollapseReason)
	}
}
