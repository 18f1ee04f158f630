// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper holds a harvested arXiv paper in canonical form. The search
// client normalizes raw API entries into this shape before they reach
// the store.
type Paper struct {
	// ExternalID is the stable arXiv identifier used as the dedup key:
	// the part of CanonicalID after the last path separator, version
	// suffix included (e.g. "2104.12345v2").
	ExternalID string `json:"arxiv_id" yaml:"arxiv_id"`

	// CanonicalID is the full upstream identifier, typically an abs URL
	// (e.g. "http://arxiv.org/abs/2104.12345v2").
	CanonicalID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Summary is the paper abstract. May be empty.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Authors lists the paper authors. Order is not significant.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Published is the upstream-supplied publication date.
	Published time.Time `json:"published_date" yaml:"published_date"`

	// SourceURL is the PDF link extracted from the entry. May be empty.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// Category is the primary arXiv category (e.g. "cs.AI"). May be empty.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// CreatedAt and UpdatedAt are maintained by the store. CreatedAt is
	// set on first observation and preserved across re-upserts.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ExternalIDFrom derives the dedup key from a canonical identifier: the
// part after the last path separator. Identifiers without a separator
// are returned unchanged.
func ExternalIDFrom(canonicalID string) string {
	for i := len(canonicalID) - 1; i >= 0; i-- {
		if canonicalID[i] == '/' {
			return canonicalID[i+1:]
		}
	}
	return canonicalID
}
