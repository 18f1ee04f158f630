// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scheduler orchestrates harvest runs: it decides whether a run
// is due, drives fetch and persistence, and emits the newly observed
// papers to the notifier. Runs against one state file/store pair must
// not overlap; the design assumes a single writer.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// Fetcher retrieves papers from the upstream API.
type Fetcher interface {
	Search(ctx context.Context, req types.SearchRequest) ([]types.Paper, error)
}

// Storer persists papers. Upsert returns the external IDs that were not
// previously present.
type Storer interface {
	Upsert(ctx context.Context, papers []types.Paper) ([]string, error)
	GetPaperByID(ctx context.Context, id string) (*types.Paper, error)
}

// Notifier delivers newly observed papers to a channel target. A send
// failure is reported, never retried.
type Notifier interface {
	Notify(ctx context.Context, papers []types.Paper, webhookURL string) error
}

// RunResult summarizes one harvest invocation.
type RunResult struct {
	// Skipped is true when the run was not due and not forced; no other
	// field is meaningful then.
	Skipped bool

	// Fetched is the number of papers returned by the search client.
	Fetched int

	// NewPapers holds the papers whose identifiers were first observed
	// during this run, re-read from the store.
	NewPapers []types.Paper

	// NotifyErr records a failed notification attempt. Non-nil does not
	// mean the run failed: harvested data is durable and cadence state
	// still advances.
	NotifyErr error
}

// Scheduler owns cadence state handling for harvest runs.
type Scheduler struct {
	fetcher  Fetcher
	store    Storer
	notifier Notifier
	states   StateStore
	w        io.Writer

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New builds a Scheduler. Progress and warnings are written to w; pass
// io.Discard (or nil) to silence them.
func New(fetcher Fetcher, store Storer, notifier Notifier, states StateStore, w io.Writer) *Scheduler {
	if w == nil {
		w = io.Discard
	}
	return &Scheduler{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		states:   states,
		w:        w,
		now:      time.Now,
	}
}

// Due reports whether a run is due: the configured interval has elapsed
// since the last run, or the harvester has never run.
func Due(state CadenceState, now time.Time) bool {
	if state.LastRunAt.IsZero() {
		return true
	}
	return now.Sub(state.LastRunAt) >= state.Frequency.Interval()
}

// RunHarvest executes one harvest run: fetch, persist, notify, advance
// cadence. When the run is not due and force is false it returns a
// skipped result without touching anything. A fetch or persistence
// failure aborts the run and leaves the cadence state unchanged. A
// notification failure is reported in the result but does not prevent
// state advancement.
func (s *Scheduler) RunHarvest(ctx context.Context, force bool) (RunResult, error) {
	state, err := s.states.Load()
	if err != nil {
		return RunResult{}, fmt.Errorf("loading cadence state: %w", err)
	}

	now := s.now()
	if !force && !Due(state, now) {
		fmt.Fprintf(s.w, "not due: last run %s, next after %s\n",
			state.LastRunAt.Format(time.RFC3339),
			state.LastRunAt.Add(state.Frequency.Interval()).Format(time.RFC3339))
		return RunResult{Skipped: true}, nil
	}

	papers, err := s.fetcher.Search(ctx, state.Search)
	if err != nil {
		return RunResult{}, fmt.Errorf("fetching papers: %w", err)
	}
	fmt.Fprintf(s.w, "fetched %d papers\n", len(papers))

	newIDs, err := s.store.Upsert(ctx, papers)
	if err != nil {
		return RunResult{}, fmt.Errorf("storing papers: %w", err)
	}
	fmt.Fprintf(s.w, "stored %d papers, %d new\n", len(papers), len(newIDs))

	result := RunResult{Fetched: len(papers)}

	// Re-read the new papers so the notification carries stored state
	// (timestamps, normalized authors).
	for _, id := range newIDs {
		p, err := s.store.GetPaperByID(ctx, id)
		if err != nil {
			return result, fmt.Errorf("re-reading new paper %s: %w", id, err)
		}
		result.NewPapers = append(result.NewPapers, *p)
	}

	if len(result.NewPapers) > 0 && state.WebhookURL != "" {
		if err := s.notifier.Notify(ctx, result.NewPapers, state.WebhookURL); err != nil {
			// Non-fatal: the data is durable, and re-running would
			// re-notify records that are no longer new.
			result.NotifyErr = err
			fmt.Fprintf(s.w, "warning: notification failed: %v\n", err)
		}
	}

	state.LastRunAt = s.now()
	if err := s.states.Save(state); err != nil {
		return result, fmt.Errorf("saving cadence state: %w", err)
	}

	return result, nil
}
