// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-harvester/internal/arxiv"
	"github.com/pdiddy/arxiv-harvester/internal/notify"
	"github.com/pdiddy/arxiv-harvester/internal/scheduler"
	"github.com/pdiddy/arxiv-harvester/internal/store"
	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run one harvest cycle if it is due",
	Long: `Harvest checks the cadence state file, and when a run is due (or --force
is given) queries the arXiv API with the configured search parameters,
stores the results, and posts newly observed papers to the Slack webhook.

Flag values override the parameters remembered in the state file and are
persisted for subsequent runs.`,
	RunE: runHarvest,
}

func runHarvest(cmd *cobra.Command, args []string) error {
	statePath, _ := cmd.Flags().GetString("state-file")
	if statePath == "" {
		statePath = viper.GetString("state_file")
	}
	states := &scheduler.FileStateStore{Path: statePath}

	state, err := states.Load()
	if err != nil {
		return err
	}
	if changed := applyFlags(cmd, &state); changed {
		if err := states.Save(state); err != nil {
			return err
		}
	}

	db, err := store.Open(dbPath(cmd))
	if err != nil {
		return err
	}
	defer db.Close()

	client := arxiv.NewClient(clientConfig(), os.Stderr)
	notifier := &notify.Slack{}

	sched := scheduler.New(client, db, notifier, states, os.Stdout)

	force, _ := cmd.Flags().GetBool("force")
	result, err := sched.RunHarvest(context.Background(), force)
	if err != nil {
		return err
	}

	if result.Skipped {
		fmt.Println("Harvest not due; use --force to run anyway.")
		return nil
	}

	fmt.Printf("Harvest complete: %d fetched, %d new.\n", result.Fetched, len(result.NewPapers))
	if result.NotifyErr != nil {
		fmt.Fprintf(os.Stderr, "Notification failed (papers are stored): %v\n", result.NotifyErr)
	}
	return nil
}

// applyFlags overrides state parameters with explicitly set flags and
// reports whether anything changed.
func applyFlags(cmd *cobra.Command, state *scheduler.CadenceState) bool {
	changed := false

	if cmd.Flags().Changed("query") {
		state.Search.Query, _ = cmd.Flags().GetString("query")
		changed = true
	}
	if cmd.Flags().Changed("categories") {
		raw, _ := cmd.Flags().GetString("categories")
		state.Search.Categories = nil
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				state.Search.Categories = append(state.Search.Categories, c)
			}
		}
		changed = true
	}
	if cmd.Flags().Changed("max-results") {
		state.Search.MaxResults, _ = cmd.Flags().GetInt("max-results")
		changed = true
	}
	if cmd.Flags().Changed("schedule") {
		raw, _ := cmd.Flags().GetString("schedule")
		if f := types.Frequency(raw); f.Valid() {
			state.Frequency = f
			changed = true
		} else {
			fmt.Fprintf(os.Stderr, "warning: unknown schedule %q, keeping %q\n", raw, state.Frequency)
		}
	}
	if cmd.Flags().Changed("webhook") {
		state.WebhookURL, _ = cmd.Flags().GetString("webhook")
		changed = true
	}

	if !state.Frequency.Valid() {
		state.Frequency = types.FreqWeekly
	}
	return changed
}

func init() {
	harvestCmd.Flags().String("query", "", "search query (e.g. \"all:electron\")")
	harvestCmd.Flags().String("categories", "", "comma-separated arXiv categories (e.g. cs.AI,cs.LG)")
	harvestCmd.Flags().Int("max-results", 50, "maximum results per run (0 = fetch all)")
	harvestCmd.Flags().String("schedule", "", "harvest cadence: daily, weekly, or monthly")
	harvestCmd.Flags().String("state-file", "", "path to the cadence state file")
	harvestCmd.Flags().String("webhook", "", "Slack webhook URL for new-paper notifications")
	harvestCmd.Flags().Bool("force", false, "run regardless of schedule")

	rootCmd.AddCommand(harvestCmd)
}
