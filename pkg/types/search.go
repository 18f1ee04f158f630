// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the harvester:
// the canonical Paper record, search request parameters, and the
// cadence frequency enum.
package types

import "time"

// SortField selects the upstream ordering of search results.
type SortField string

const (
	SortRelevance       SortField = "relevance"
	SortLastUpdatedDate SortField = "lastUpdatedDate"
	SortSubmittedDate   SortField = "submittedDate"
)

// SortOrder selects the upstream sort direction.
type SortOrder string

const (
	OrderAscending  SortOrder = "ascending"
	OrderDescending SortOrder = "descending"
)

// SearchRequest holds the parameters for one search client call.
type SearchRequest struct {
	// Query is the free-text search query.
	Query string `json:"query" yaml:"query"`

	// Categories restricts results to the given arXiv categories.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// MaxResults caps the number of results. Zero means no cap: the
	// client pages until the upstream is exhausted.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// SortBy and SortOrder control upstream ordering. Empty values fall
	// back to relevance, descending.
	SortBy    SortField `json:"sort_by,omitempty" yaml:"sort_by,omitempty"`
	SortOrder SortOrder `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`

	// From and To bound the submitted-date range. Both must be set for
	// the range to apply.
	From time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To   time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}
