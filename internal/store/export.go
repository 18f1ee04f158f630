// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// exportDocument is the YAML export file layout.
type exportDocument struct {
	PaperCount int           `yaml:"paper_count"`
	Papers     []types.Paper `yaml:"papers"`
}

// ExportYAML writes all stored papers to w as a YAML document, ordered
// by publication date descending.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	papers, err := s.ListPapers(ctx, 0, 0, "published_date", true)
	if err != nil {
		return fmt.Errorf("loading papers for export: %w", err)
	}

	doc := exportDocument{
		PaperCount: len(papers),
		Papers:     papers,
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}
