package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			store, err := openDB(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer store.Close()

			runs, err := store.Runs(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored.")
				return nil
			}
			for _, r := range runs {
				snaps, err := store.Snapshots(r.ID)
				if err != nil {
					return err
				}
				last := "-"
				if len(snaps) > 0 {
					last = fmt.Sprintf("day %d", snaps[len(snaps)-1].Tick)
				}
				fmt.Fprintf(out, "%s  %-8s  seed=%-20d  arrest=%3d%% %-10s  snapshots=%d (%s)\n",
					r.ID, r.Status, r.Seed, r.Config.ArrestScenario, r.Config.ScenarioVariant(), len(snaps), last)
			}
			return nil
		},
	}
	cmd.Flags().String("db", "data/dtosim.db", "Run database")
	cmd.Flags().Int("limit", 20, "Maximum runs listed")
	return cmd
}
