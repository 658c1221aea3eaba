package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/dtosim/internal/api"
	"github.com/talgya/dtosim/internal/engine"
	"github.com/talgya/dtosim/internal/metrics"
	"github.com/talgya/dtosim/internal/persistence"
	"github.com/talgya/dtosim/internal/series"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a simulation live behind the HTTP API",
		Long: `Run a simulation at a wall-clock pace and serve it over HTTP.

GET endpoints under /api/v1 observe the run; POST endpoints (step,
speed, snapshot) need the bearer token in DTOSIM_ADMIN_KEY. Prometheus
metrics are served at /metrics. Progress is saved to the database on
the first day of every simulated month and on shutdown.

Examples:
  dtosim serve --db data/runs.db --port 8080 --speed 10
  dtosim serve --db data/runs.db --run <id>   # continue a stored run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			port, _ := cmd.Flags().GetInt("port")
			speed, _ := cmd.Flags().GetFloat64("speed")
			interval, _ := cmd.Flags().GetDuration("interval")
			paused, _ := cmd.Flags().GetBool("paused")
			runID, err := runIDFlag(cmd)
			if err != nil {
				return err
			}

			store, err := openDB(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer store.Close()
			slog.Info("database opened", "path", dbPath)

			var (
				sim   *engine.Simulation
				saved uint64
			)
			if runID != "" {
				snap, err := store.LatestSnapshot(runID)
				if err != nil {
					return err
				}
				if sim, err = engine.Restore(snap); err != nil {
					return fmt.Errorf("restore: %w", err)
				}
				saved = snap.Tick
				slog.Info("run resumed", "run", runID, "tick", saved)
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				seed := seedFlag(cmd)
				if sim, err = engine.New(cfg, seed); err != nil {
					return err
				}
				if runID, err = store.SaveRun(cfg, seed); err != nil {
					return err
				}
				slog.Info("run registered", "run", runID, "seed", seed)
			}

			reg := metrics.NewRegistry()
			eng := engine.NewEngine(sim)
			eng.Interval = interval
			if err := eng.SetSpeed(speed); err != nil {
				return err
			}
			if paused {
				eng.Pause()
			}

			adminKey := os.Getenv("DTOSIM_ADMIN_KEY")
			if adminKey == "" {
				slog.Warn("DTOSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
			}
			srv := &api.Server{
				Eng:      eng,
				DB:       store,
				Metrics:  reg,
				RunID:    runID,
				Port:     port,
				AdminKey: adminKey,
			}
			srv.SetSavedTick(saved)

			// Monthly autosave runs outside the engine lock.
			autosave := make(chan struct{}, 1)
			eng.OnRecord = reg.Observe
			eng.OnTiming = reg.RecordTick
			eng.OnMonth = func(*engine.Simulation) {
				select {
				case autosave <- struct{}{}:
				default:
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-autosave:
						if _, err := srv.SaveProgress(); err != nil {
							slog.Error("autosave failed", "error", err)
						}
					}
				}
			}()

			serveErr := make(chan error, 1)
			go func() { serveErr <- srv.ListenAndServe(ctx) }()

			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: http://localhost:%d/api/v1/status\n", runID, port)

			runErr := eng.Run(ctx)
			if runErr != nil {
				slog.Error("simulation stopped", "error", runErr)
			} else if ctx.Err() == nil {
				slog.Info("run complete, still serving (Ctrl+C to stop)", "tick", eng.Tick())
			}

			var httpErr error
			select {
			case httpErr = <-serveErr:
				stop()
			case <-ctx.Done():
				httpErr = <-serveErr
			}
			if errors.Is(httpErr, http.ErrServerClosed) {
				httpErr = nil
			}

			// Final save on shutdown.
			if _, err := srv.SaveProgress(); err != nil {
				slog.Error("final save failed", "error", err)
			}
			status := persistence.StatusRunning
			var final series.Summary
			eng.Do(func(sim *engine.Simulation) {
				final = sim.Summary()
				switch {
				case sim.Err() != nil:
					status = persistence.StatusAborted
				case sim.Done():
					status = persistence.StatusFinished
				}
			})
			if err := store.FinishRun(runID, status, final); err != nil {
				slog.Error("finish run failed", "error", err)
			}
			slog.Info("run saved", "run", runID, "status", status, "tick", final.Ticks)

			if runErr != nil {
				return runErr
			}
			return httpErr
		},
	}
	addScenarioFlags(cmd)
	cmd.Flags().String("db", "data/dtosim.db", "Run database")
	cmd.Flags().String("run", "", "Continue this stored run from its latest snapshot")
	cmd.Flags().Int("port", 8080, "HTTP port")
	cmd.Flags().Float64("speed", 1, "Days per interval")
	cmd.Flags().Duration("interval", time.Second, "Wall time of one day at speed 1")
	cmd.Flags().Bool("paused", false, "Start paused (advance with POST /api/v1/step)")
	return cmd
}
