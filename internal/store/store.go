// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists harvested papers in a SQLite database with
// normalized author relations. Writes are transactional and keyed on the
// arXiv identifier; the store assumes a single writer.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

var (
	// ErrValidation marks a malformed record batch. The batch transaction
	// is rolled back; nothing is partially written.
	ErrValidation = errors.New("validation failed")

	// ErrBackupFailed marks a backup whose source is missing or whose
	// destination cannot be created. The store itself is untouched.
	ErrBackupFailed = errors.New("backup failed")

	// ErrNotFound is returned by lookups for unknown identifiers.
	ErrNotFound = errors.New("paper not found")
)

// Store manages the papers SQLite database.
type Store struct {
	db   *sql.DB
	path string

	// mu serializes writes and the backup file copy.
	mu sync.Mutex
}

// Open opens or creates the papers database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			arxiv_id TEXT UNIQUE,
			title TEXT NOT NULL,
			summary TEXT,
			published_date TEXT,
			source_url TEXT,
			category TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paper_authors (
			paper_id TEXT,
			author_id INTEGER,
			PRIMARY KEY (paper_id, author_id),
			FOREIGN KEY (paper_id) REFERENCES papers (id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES authors (id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published ON papers(published_date)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert stores a batch of papers in one transaction and returns the
// external IDs that were newly inserted. A paper whose arxiv_id already
// exists has all fields replaced, created_at preserved, and is not
// reported as new. Author links are cleared and recreated from the
// current author list. Any validation or write error rolls back the
// whole batch.
func (s *Store) Upsert(ctx context.Context, papers []types.Paper) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	var newIDs []string

	for _, p := range papers {
		if p.CanonicalID == "" || p.Title == "" {
			return nil, fmt.Errorf("%w: paper missing id or title (id=%q title=%q)",
				ErrValidation, p.CanonicalID, p.Title)
		}

		extID := p.ExternalID
		if extID == "" {
			extID = types.ExternalIDFrom(p.CanonicalID)
		}

		published := ""
		if !p.Published.IsZero() {
			published = p.Published.UTC().Format(time.RFC3339)
		}

		var existingID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM papers WHERE arxiv_id = ?`, extID,
		).Scan(&existingID)

		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO papers (id, arxiv_id, title, summary, published_date, source_url, category, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.CanonicalID, extID, p.Title, p.Summary, published, p.SourceURL, nullable(p.Category), now, now,
			)
			if err != nil {
				return nil, fmt.Errorf("inserting paper %s: %w", extID, err)
			}
			newIDs = append(newIDs, extID)

		case err != nil:
			return nil, fmt.Errorf("checking paper %s: %w", extID, err)

		default:
			// Re-observation: full field replace, created_at preserved.
			// Old author links go first so a canonical ID change (e.g. a
			// new version suffix) cannot strand them.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM paper_authors WHERE paper_id = ?`, existingID,
			); err != nil {
				return nil, fmt.Errorf("clearing author links for %s: %w", extID, err)
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE papers SET id = ?, title = ?, summary = ?, published_date = ?,
					source_url = ?, category = ?, updated_at = ?
				 WHERE arxiv_id = ?`,
				p.CanonicalID, p.Title, p.Summary, published, p.SourceURL, nullable(p.Category), now, extID,
			)
			if err != nil {
				return nil, fmt.Errorf("updating paper %s: %w", extID, err)
			}
		}

		if err := linkAuthors(ctx, tx, p.CanonicalID, p.Authors); err != nil {
			return nil, fmt.Errorf("linking authors for %s: %w", extID, err)
		}
	}

	// Relinking can leave authors with no remaining papers.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM authors WHERE id NOT IN (SELECT DISTINCT author_id FROM paper_authors)`,
	); err != nil {
		return nil, fmt.Errorf("pruning orphaned authors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return newIDs, nil
}

// linkAuthors creates missing author rows and links them to the paper.
func linkAuthors(ctx context.Context, tx *sql.Tx, paperID string, authors []string) error {
	for _, name := range authors {
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO authors (name) VALUES (?)`, name,
		); err != nil {
			return err
		}

		var authorID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM authors WHERE name = ?`, name,
		).Scan(&authorID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO paper_authors (paper_id, author_id) VALUES (?, ?)`,
			paperID, authorID,
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a paper by external ID (falling back to canonical ID)
// and prunes authors left without any paper reference. It reports
// whether a paper was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var canonicalID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM papers WHERE arxiv_id = ? OR id = ?`, id, id,
	).Scan(&canonicalID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolving paper %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM papers WHERE id = ?`, canonicalID,
	); err != nil {
		return false, fmt.Errorf("deleting paper %s: %w", id, err)
	}

	// Cascade removed the links; prune authors with no remaining papers.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM authors WHERE id NOT IN (SELECT DISTINCT author_id FROM paper_authors)`,
	); err != nil {
		return false, fmt.Errorf("pruning orphaned authors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}
	return true, nil
}

// Backup copies the database file to dst, creating the destination
// directory if needed. It fails with ErrBackupFailed when the source
// database does not exist or the destination cannot be written. The
// copy runs under the store's write lock so no write interleaves.
func (s *Store) Backup(dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("%w: source database %s: %v", ErrBackupFailed, s.path, err)
	}

	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating backup directory: %v", ErrBackupFailed, err)
		}
	}

	src, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: opening source: %v", ErrBackupFailed, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrBackupFailed, dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("%w: copying database: %v", ErrBackupFailed, err)
	}
	return out.Sync()
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
