// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// listColumns maps allowed ListPapers order fields to their columns.
var listColumns = map[string]string{
	"published_date": "published_date",
	"title":          "title",
	"arxiv_id":       "arxiv_id",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}

const paperColumns = `id, arxiv_id, title, summary, published_date, source_url, category, created_at, updated_at`

// GetPaperByID fetches one paper by external ID, falling back to the
// canonical identifier. Returns ErrNotFound for unknown IDs.
func (s *Store) GetPaperByID(ctx context.Context, id string) (*types.Paper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE arxiv_id = ? OR id = ?`, id, id)

	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching paper %s: %w", id, err)
	}

	if err := s.attachAuthors(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPapersByAuthor returns papers linked to the given author name,
// newest first.
func (s *Store) GetPapersByAuthor(ctx context.Context, name string) ([]types.Paper, error) {
	return s.queryPapers(ctx,
		`SELECT `+prefixed("p", paperColumns)+` FROM papers p
		 JOIN paper_authors pa ON pa.paper_id = p.id
		 JOIN authors a ON a.id = pa.author_id
		 WHERE a.name = ?
		 ORDER BY p.published_date DESC`, name)
}

// GetPapersByDateRange returns papers with start <= published_date <= end,
// inclusive on both ends, newest first.
func (s *Store) GetPapersByDateRange(ctx context.Context, start, end time.Time) ([]types.Paper, error) {
	return s.queryPapers(ctx,
		`SELECT `+paperColumns+` FROM papers
		 WHERE published_date != '' AND published_date >= ? AND published_date <= ?
		 ORDER BY published_date DESC`,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

// SearchPapers returns papers whose title or summary contains the given
// keywords (case-insensitive substring match). Empty keywords match
// everything.
func (s *Store) SearchPapers(ctx context.Context, titleKeyword, abstractKeyword string) ([]types.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE 1=1`
	var args []any

	if titleKeyword != "" {
		query += ` AND title LIKE ?`
		args = append(args, "%"+titleKeyword+"%")
	}
	if abstractKeyword != "" {
		query += ` AND summary LIKE ?`
		args = append(args, "%"+abstractKeyword+"%")
	}
	query += ` ORDER BY published_date DESC`

	return s.queryPapers(ctx, query, args...)
}

// ListPapers returns papers with pagination. orderBy must be one of the
// whitelisted fields (default published_date); descending reverses the
// order. limit <= 0 returns all papers.
func (s *Store) ListPapers(ctx context.Context, limit, offset int, orderBy string, descending bool) ([]types.Paper, error) {
	column, ok := listColumns[orderBy]
	if orderBy == "" {
		column = "published_date"
	} else if !ok {
		return nil, fmt.Errorf("invalid order field %q", orderBy)
	}

	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM papers ORDER BY %s %s`, paperColumns, column, direction)
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, offset)
	}

	return s.queryPapers(ctx, query, args...)
}

// GetRecentPapers returns the n most recently published papers.
func (s *Store) GetRecentPapers(ctx context.Context, n int) ([]types.Paper, error) {
	return s.ListPapers(ctx, n, 0, "published_date", true)
}

// CountByCategory returns the number of papers per category, skipping
// papers without one.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM papers
		 WHERE category IS NOT NULL
		 GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

// queryPapers runs a papers SELECT and attaches authors to each result.
func (s *Store) queryPapers(ctx context.Context, query string, args ...any) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range papers {
		if err := s.attachAuthors(ctx, &papers[i]); err != nil {
			return nil, err
		}
	}
	return papers, nil
}

func (s *Store) attachAuthors(ctx context.Context, p *types.Paper) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.name FROM authors a
		 JOIN paper_authors pa ON pa.author_id = a.id
		 WHERE pa.paper_id = ?
		 ORDER BY a.name`, p.CanonicalID)
	if err != nil {
		return fmt.Errorf("fetching authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		p.Authors = append(p.Authors, name)
	}
	return rows.Err()
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (*types.Paper, error) {
	var p types.Paper
	var summary, published, sourceURL, category sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.CanonicalID, &p.ExternalID, &p.Title, &summary,
		&published, &sourceURL, &category, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Summary = summary.String
	p.SourceURL = sourceURL.String
	p.Category = category.String

	if published.String != "" {
		if t, err := time.Parse(time.RFC3339, published.String); err == nil {
			p.Published = t
		}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

// prefixed qualifies each column in a comma-separated list with a table
// alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, c := range parts {
		parts[i] = alias + "." + c
	}
	return strings.Join(parts, ", ")
}
