// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "papers.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePaper(extID string) types.Paper {
	return types.Paper{
		ExternalID:  extID,
		CanonicalID: "http://arxiv.org/abs/" + extID,
		Title:       "Paper " + extID,
		Summary:     "An abstract about electrons.",
		Authors:     []string{"Jane Smith", "Wei Chen"},
		Published:   time.Date(2021, 4, 26, 17, 59, 59, 0, time.UTC),
		SourceURL:   "http://arxiv.org/pdf/" + extID,
		Category:    "cs.AI",
	}
}

func mustUpsert(t *testing.T, s *Store, papers ...types.Paper) []string {
	t.Helper()
	newIDs, err := s.Upsert(context.Background(), papers)
	if err != nil {
		t.Fatal(err)
	}
	return newIDs
}

// --- schema ---

func TestOpenCreatesSchema(t *testing.T) {
	s := testStore(t)

	for _, table := range []string{"papers", "authors", "paper_authors"} {
		var count int
		err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

// --- upsert ---

func TestUpsertReportsNewIDs(t *testing.T) {
	s := testStore(t)

	newIDs := mustUpsert(t, s, samplePaper("2104.12345v1"), samplePaper("2104.99999v1"))
	if len(newIDs) != 2 {
		t.Fatalf("newIDs = %v, want 2 entries", newIDs)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := testStore(t)
	p := samplePaper("2104.12345")
	p.Title = "X"

	newIDs := mustUpsert(t, s, p)
	if len(newIDs) != 1 || newIDs[0] != "2104.12345" {
		t.Fatalf("first upsert newIDs = %v", newIDs)
	}

	recent, err := s.GetRecentPapers(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Title != "X" {
		t.Fatalf("recent = %+v, want single paper X", recent)
	}

	// Same record again: no new IDs, still one row.
	newIDs = mustUpsert(t, s, p)
	if len(newIDs) != 0 {
		t.Errorf("second upsert newIDs = %v, want empty", newIDs)
	}

	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM papers`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("paper rows = %d, want 1", count)
	}
}

func TestUpsertMixedBatchReportsExactDelta(t *testing.T) {
	s := testStore(t)
	mustUpsert(t, s, samplePaper("2101.00001v1"), samplePaper("2101.00002v1"))

	newIDs := mustUpsert(t, s,
		samplePaper("2101.00002v1"), // seen
		samplePaper("2101.00003v1"), // new
		samplePaper("2101.00001v1"), // seen
		samplePaper("2101.00004v1"), // new
	)
	if len(newIDs) != 2 || newIDs[0] != "2101.00003v1" || newIDs[1] != "2101.00004v1" {
		t.Errorf("newIDs = %v, want [2101.00003v1 2101.00004v1]", newIDs)
	}
}

func TestUpsertReplacePreservesCreatedAt(t *testing.T) {
	s := testStore(t)
	p := samplePaper("2104.12345v1")
	mustUpsert(t, s, p)

	before, err := s.GetPaperByID(context.Background(), "2104.12345v1")
	if err != nil {
		t.Fatal(err)
	}

	p.Title = "Revised Title"
	p.Summary = "Revised abstract."
	mustUpsert(t, s, p)

	after, err := s.GetPaperByID(context.Background(), "2104.12345v1")
	if err != nil {
		t.Fatal(err)
	}
	if after.Title != "Revised Title" || after.Summary != "Revised abstract." {
		t.Errorf("fields not replaced: %+v", after)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed: %v → %v", before.CreatedAt, after.CreatedAt)
	}
}

func TestUpsertValidationRollsBackBatch(t *testing.T) {
	s := testStore(t)

	bad := samplePaper("2101.00002v1")
	bad.Title = ""

	_, err := s.Upsert(context.Background(), []types.Paper{samplePaper("2101.00001v1"), bad})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	// The valid paper in the same batch must not be visible.
	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM papers`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("paper rows = %d, want 0 after rollback", count)
	}
}

func TestUpsertDerivesExternalID(t *testing.T) {
	s := testStore(t)
	p := samplePaper("2104.12345v2")
	p.ExternalID = ""

	newIDs := mustUpsert(t, s, p)
	if len(newIDs) != 1 || newIDs[0] != "2104.12345v2" {
		t.Errorf("newIDs = %v, want [2104.12345v2]", newIDs)
	}
}

// --- author linkage ---

func TestAuthorRelinkRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := samplePaper("2104.12345v1")
	p.Authors = []string{"A", "B"}
	mustUpsert(t, s, p)

	p.Authors = []string{"B", "C"}
	mustUpsert(t, s, p)

	got, err := s.GetPaperByID(ctx, "2104.12345v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "B" || got.Authors[1] != "C" {
		t.Errorf("authors = %v, want [B C]", got.Authors)
	}

	// A has no remaining references and must be pruned.
	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM authors WHERE name = 'A'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("author A not pruned")
	}
}

func TestAuthorSharedAcrossPapersSurvivesRelink(t *testing.T) {
	s := testStore(t)

	p1 := samplePaper("2101.00001v1")
	p1.Authors = []string{"A"}
	p2 := samplePaper("2101.00002v1")
	p2.Authors = []string{"A", "B"}
	mustUpsert(t, s, p1, p2)

	p2.Authors = []string{"B"}
	mustUpsert(t, s, p2)

	papers, err := s.GetPapersByAuthor(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 1 || papers[0].ExternalID != "2101.00001v1" {
		t.Errorf("papers by A = %+v", papers)
	}
}

// --- queries ---

func TestGetPaperByIDFallsBackToCanonical(t *testing.T) {
	s := testStore(t)
	mustUpsert(t, s, samplePaper("2104.12345v1"))

	byCanonical, err := s.GetPaperByID(context.Background(), "http://arxiv.org/abs/2104.12345v1")
	if err != nil {
		t.Fatal(err)
	}
	if byCanonical.ExternalID != "2104.12345v1" {
		t.Errorf("ExternalID = %q", byCanonical.ExternalID)
	}

	if _, err := s.GetPaperByID(context.Background(), "0000.00000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetPapersByDateRangeInclusive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	day := func(d int) time.Time {
		return time.Date(2021, 4, d, 12, 0, 0, 0, time.UTC)
	}
	for i, d := range []int{10, 15, 20} {
		p := samplePaper([]string{"2104.00010v1", "2104.00015v1", "2104.00020v1"}[i])
		p.Published = day(d)
		mustUpsert(t, s, p)
	}

	// Boundaries equal to stored timestamps are included on both ends.
	papers, err := s.GetPapersByDateRange(ctx, day(10), day(20))
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 3 {
		t.Fatalf("got %d papers, want 3", len(papers))
	}

	papers, err = s.GetPapersByDateRange(ctx, day(11), day(19))
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 1 || papers[0].ExternalID != "2104.00015v1" {
		t.Errorf("papers = %+v, want only the middle one", papers)
	}
}

func TestSearchPapersKeywords(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p1 := samplePaper("2101.00001v1")
	p1.Title = "Quantum Entanglement at Scale"
	p1.Summary = "We study entangled states."
	p2 := samplePaper("2101.00002v1")
	p2.Title = "Classical Field Theory"
	p2.Summary = "No quantum content here."
	mustUpsert(t, s, p1, p2)

	byTitle, err := s.SearchPapers(ctx, "quantum", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(byTitle) != 1 || byTitle[0].ExternalID != "2101.00001v1" {
		t.Errorf("title search = %+v", byTitle)
	}

	byAbstract, err := s.SearchPapers(ctx, "", "QUANTUM")
	if err != nil {
		t.Fatal(err)
	}
	if len(byAbstract) != 1 || byAbstract[0].ExternalID != "2101.00002v1" {
		t.Errorf("abstract search = %+v", byAbstract)
	}

	both, err := s.SearchPapers(ctx, "quantum", "entangled")
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 1 || both[0].ExternalID != "2101.00001v1" {
		t.Errorf("combined search = %+v", both)
	}
}

func TestListPapersPaginationAndOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		p := samplePaper(strings.Replace("2101.0000Xv1", "X", string(rune('0'+i)), 1))
		p.Published = time.Date(2021, 1, i, 0, 0, 0, 0, time.UTC)
		mustUpsert(t, s, p)
	}

	page, err := s.ListPapers(ctx, 2, 1, "published_date", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ExternalID != "2101.00004v1" || page[1].ExternalID != "2101.00003v1" {
		t.Errorf("page = %v %v", page[0].ExternalID, page[1].ExternalID)
	}

	if _, err := s.ListPapers(ctx, 0, 0, "title; DROP TABLE papers", false); err == nil {
		t.Error("expected error for non-whitelisted order field")
	}
}

func TestCountByCategory(t *testing.T) {
	s := testStore(t)

	p1 := samplePaper("2101.00001v1")
	p1.Category = "cs.AI"
	p2 := samplePaper("2101.00002v1")
	p2.Category = "cs.AI"
	p3 := samplePaper("2101.00003v1")
	p3.Category = "math.CO"
	p4 := samplePaper("2101.00004v1")
	p4.Category = ""
	mustUpsert(t, s, p1, p2, p3, p4)

	counts, err := s.CountByCategory(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts["cs.AI"] != 2 || counts["math.CO"] != 1 || len(counts) != 2 {
		t.Errorf("counts = %v", counts)
	}
}

// --- delete ---

func TestDeletePrunesOrphanedAuthors(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p1 := samplePaper("2101.00001v1")
	p1.Authors = []string{"Shared", "Solo"}
	p2 := samplePaper("2101.00002v1")
	p2.Authors = []string{"Shared"}
	mustUpsert(t, s, p1, p2)

	deleted, err := s.Delete(ctx, "2101.00001v1")
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	if _, err := s.GetPaperByID(ctx, "2101.00001v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("paper still present: %v", err)
	}

	var solo, shared int
	s.db.QueryRow(`SELECT count(*) FROM authors WHERE name = 'Solo'`).Scan(&solo)
	s.db.QueryRow(`SELECT count(*) FROM authors WHERE name = 'Shared'`).Scan(&shared)
	if solo != 0 {
		t.Error("orphaned author Solo not pruned")
	}
	if shared != 1 {
		t.Error("shared author wrongly pruned")
	}

	deleted, err = s.Delete(ctx, "no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("delete of unknown id reported true")
	}
}

// --- backup ---

func TestBackupRoundTrip(t *testing.T) {
	s := testStore(t)
	mustUpsert(t, s, samplePaper("2104.12345v1"))

	dst := filepath.Join(t.TempDir(), "backups", "papers.db")
	if err := s.Backup(dst); err != nil {
		t.Fatal(err)
	}

	restored, err := Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer restored.Close()

	p, err := restored.GetPaperByID(context.Background(), "2104.12345v1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Paper 2104.12345v1" {
		t.Errorf("restored title = %q", p.Title)
	}
}

func TestBackupMissingSource(t *testing.T) {
	s := testStore(t)
	s.Close()
	if err := os.Remove(s.path); err != nil {
		t.Fatal(err)
	}

	err := s.Backup(filepath.Join(t.TempDir(), "out.db"))
	if !errors.Is(err, ErrBackupFailed) {
		t.Errorf("err = %v, want ErrBackupFailed", err)
	}
}

func TestBackupBadDestination(t *testing.T) {
	s := testStore(t)
	mustUpsert(t, s, samplePaper("2104.12345v1"))

	// A file where the destination directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := s.Backup(filepath.Join(blocker, "out.db"))
	if !errors.Is(err, ErrBackupFailed) {
		t.Errorf("err = %v, want ErrBackupFailed", err)
	}
}

// --- export ---

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	mustUpsert(t, s, samplePaper("2104.12345v1"))

	var buf strings.Builder
	if err := s.ExportYAML(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "paper_count: 1") {
		t.Errorf("export missing count:\n%s", out)
	}
	if !strings.Contains(out, "2104.12345v1") {
		t.Errorf("export missing paper:\n%s", out)
	}
}
