package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/dtosim/internal/engine"
	"github.com/talgya/dtosim/internal/logging"
	"github.com/talgya/dtosim/internal/persistence"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation to its horizon",
		Long: `Run a simulation to its horizon and print the final state.

Examples:
  dtosim run                                   # calibrated defaults, no disruption
  dtosim run --arrest 90 --disruption-tick 365 # remove 90% of members after a year
  dtosim run --scenario leadership --arrest 20 --out series.csv
  dtosim run --db data/runs.db --snapshot-every 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			seed := seedFlag(cmd)
			sim, err := engine.New(cfg, seed)
			if err != nil {
				return err
			}
			quiet, _ := cmd.Flags().GetBool("quiet")
			if quiet {
				sim.SetLogger(logging.Discard())
			}

			var (
				store *persistence.DB
				runID string
			)
			if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
				if store, err = openDB(dbPath); err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer store.Close()
				if runID, err = store.SaveRun(cfg, seed); err != nil {
					return err
				}
				slog.Info("run registered", "run", runID, "seed", seed)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return finish(ctx, cmd, sim, store, runID, 0)
		},
	}
	addScenarioFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().Bool("quiet", false, "Suppress simulation logs")
	return cmd
}

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a run from a stored snapshot",
		Long: `Resume a run from a snapshot and continue it to its horizon.
The resumed run reproduces the uninterrupted run exactly.

Examples:
  dtosim resume --db data/runs.db --run <id>            # latest snapshot
  dtosim resume --db data/runs.db --run <id> --tick 300
  dtosim resume --snapshot run.snap --out series.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			snapPath, _ := cmd.Flags().GetString("snapshot")
			tick, _ := cmd.Flags().GetUint64("tick")
			runID, err := runIDFlag(cmd)
			if err != nil {
				return err
			}

			var (
				store *persistence.DB
				snap  *engine.Snapshot
			)
			switch {
			case snapPath != "":
				if snap, err = persistence.ReadSnapshotFile(snapPath); err != nil {
					return fmt.Errorf("read snapshot: %w", err)
				}
			case dbPath != "" && runID != "":
				if store, err = openDB(dbPath); err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer store.Close()
				snap, err = loadSnapshot(store, runID, tick)
				if err != nil {
					return err
				}
			default:
				return errors.New("resume needs --snapshot, or --db with --run")
			}

			sim, err := engine.Restore(snap)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			slog.Info("run resumed", "run", runID, "tick", sim.Tick(), "seed", sim.Seed())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return finish(ctx, cmd, sim, store, runID, snap.Tick)
		},
	}
	cmd.Flags().String("db", "", "Run database")
	cmd.Flags().String("run", "", "Run identifier")
	cmd.Flags().Uint64("tick", 0, "Snapshot tick (latest when 0)")
	cmd.Flags().String("snapshot", "", "Snapshot file written by --snapshot-out")
	addOutputFlags(cmd)
	return cmd
}

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Lookup("db") == nil {
		f.String("db", "", "Store the run in this SQLite database")
	}
	f.Int("snapshot-every", 0, "Save progress to the database every N days (0 = only at the end)")
	f.String("snapshot-out", "", "Write the final snapshot to this file")
	f.String("out", "", "Write the daily series to this file (.csv or .json)")
}

func loadSnapshot(store *persistence.DB, runID string, tick uint64) (*engine.Snapshot, error) {
	if tick == 0 {
		return store.LatestSnapshot(runID)
	}
	return store.LoadSnapshot(runID, tick)
}

// finish drives sim to its horizon, saving progress on the way, then
// writes the requested outputs and prints the summary.
func finish(ctx context.Context, cmd *cobra.Command, sim *engine.Simulation, store *persistence.DB, runID string, saved uint64) error {
	every, _ := cmd.Flags().GetInt("snapshot-every")

	save := func() error {
		if store == nil || sim.Tick() == saved {
			return nil
		}
		if err := store.SaveProgress(runID, sim, saved); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		saved = sim.Tick()
		return nil
	}

	var runErr error
	for !sim.Done() {
		if runErr = ctx.Err(); runErr != nil {
			slog.Warn("run interrupted", "tick", sim.Tick())
			break
		}
		if _, runErr = sim.Step(); runErr != nil {
			break
		}
		if every > 0 && sim.Tick()%uint64(every) == 0 {
			if err := save(); err != nil {
				return err
			}
		}
	}

	if store != nil {
		status := persistence.StatusFinished
		switch {
		case sim.Err() != nil:
			status = persistence.StatusAborted
			// An aborted run cannot be snapshotted usefully; keep its records.
			if err := store.SaveRecords(runID, sim.Series().Since(saved)); err != nil {
				return err
			}
		case runErr != nil:
			status = persistence.StatusRunning
			if err := save(); err != nil {
				return err
			}
		default:
			if err := save(); err != nil {
				return err
			}
		}
		if err := store.FinishRun(runID, status, sim.Summary()); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if path, _ := cmd.Flags().GetString("snapshot-out"); path != "" {
		snap, err := sim.Snapshot()
		if err != nil {
			return err
		}
		if err := persistence.WriteSnapshotFile(path, snap); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		if err := writeResult(path, sim.Result()); err != nil {
			return fmt.Errorf("write series: %w", err)
		}
	}

	printSummary(cmd, runID, sim.Seed(), sim.Summary())
	return nil
}
