// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Frequency is the harvest cadence.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// Valid reports whether f is a recognized frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// Interval returns the minimum gap between runs. Monthly is a fixed
// 30-day approximation, not a calendar month. Unrecognized frequencies
// fall back to weekly.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FreqDaily:
		return 24 * time.Hour
	case FreqMonthly:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}
