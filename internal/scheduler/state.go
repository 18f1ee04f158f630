// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// CadenceState is the persisted harvest cadence: when the last
// successful run happened, how often runs are due, and the search
// parameters for the next run. It is an explicit value passed through
// the scheduler, not process-global state.
type CadenceState struct {
	// LastRunAt is the completion time of the last successful run.
	// Zero means the harvester has never run, which makes it due
	// immediately.
	LastRunAt time.Time `json:"last_run_time"`

	// Frequency is the harvest cadence.
	Frequency types.Frequency `json:"schedule_type"`

	// Search holds the parameters used for the next run.
	Search types.SearchRequest `json:"search_parameters"`

	// WebhookURL is the notification delivery target. Empty disables
	// notification.
	WebhookURL string `json:"slack_webhook,omitempty"`
}

// StateStore loads and persists CadenceState.
type StateStore interface {
	Load() (CadenceState, error)
	Save(CadenceState) error
}

// FileStateStore persists CadenceState as a JSON document. Unknown
// fields in the file are ignored on read, so newer writers stay
// compatible with older readers.
type FileStateStore struct {
	Path string
}

// Load reads the state file. A missing or corrupt file yields a
// never-run state (due immediately) rather than an error. Frequencies
// the reader does not recognize fall back to weekly.
func (f *FileStateStore) Load() (CadenceState, error) {
	fallback := CadenceState{Frequency: types.FreqWeekly}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fallback, nil
	}

	var state CadenceState
	if err := json.Unmarshal(data, &state); err != nil {
		return fallback, nil
	}

	if !state.Frequency.Valid() {
		state.Frequency = types.FreqWeekly
	}
	return state, nil
}

// Save writes the state file, creating parent directories as needed.
func (f *FileStateStore) Save(state CadenceState) error {
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}
