package database

import (
	"fmt"
	"testing"
)

func newTestRepo(t *testing.T) *HistoryRepo {
	t.Helper()

	db, err := NewConnection(t.TempDir())
	if err != nil {
		t.Fatalf("Expected no error opening database, got: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Expected no error running migrations, got: %v", err)
	}

	return NewHistoryRepo(db)
}

func testEntry(i int, entryType string) HistoryEntry {
	return HistoryEntry{
		ID:           fmt.Sprintf("id-%d", i),
		Type:         entryType,
		SourceURL:    fmt.Sprintf("https://example.lofter.com/post/%d", i),
		Title:        fmt.Sprintf("title %d", i),
		Author:       "author",
		FilePath:     fmt.Sprintf("/tmp/file-%d.txt", i),
		Source:       "lofter",
		DownloadedAt: "2026-01-02 03:04:05",
		Timestamp:    int64(1700000000 + i),
	}
}

func TestIsDownloaded(t *testing.T) {
	repo := newTestRepo(t)

	entry := testEntry(1, "article")
	if err := repo.Record(entry); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	found, err := repo.IsDownloaded(entry.SourceURL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !found {
		t.Error("Expected recorded URL to be reported as downloaded")
	}

	found, err = repo.IsDownloaded("https://example.lofter.com/post/other")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if found {
		t.Error("Expected unknown URL to be reported as not downloaded")
	}
}

func TestRecordUpdatesStatsByCategory(t *testing.T) {
	repo := newTestRepo(t)

	for i, entryType := range []string{"image", "article", "ao3"} {
		if err := repo.Record(testEntry(i, entryType)); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Expected total 3, got: %d", stats.Total)
	}
	if stats.Images != 1 {
		t.Errorf("Expected 1 image, got: %d", stats.Images)
	}
	// Both "article" and "ao3" land in the articles bucket.
	if stats.Articles != 2 {
		t.Errorf("Expected 2 articles, got: %d", stats.Articles)
	}
}

func TestRecordDoesNotSelfDedupe(t *testing.T) {
	repo := newTestRepo(t)

	entry := testEntry(1, "article")
	if err := repo.Record(entry); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.Record(entry); err != nil {
		t.Fatalf("Expected duplicate write to be accepted, got: %v", err)
	}

	_, total, _, err := repo.List(1, 10, HistoryFilter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 entries for the same URL, got: %d", total)
	}
}

func TestRecordCapsAtThousandEntries(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 1001; i++ {
		if err := repo.Record(testEntry(i, "article")); err != nil {
			t.Fatalf("Expected no error at entry %d, got: %v", i, err)
		}
	}

	entries, total, _, err := repo.List(1, 5, HistoryFilter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if total != 1000 {
		t.Errorf("Expected exactly 1000 entries after cap, got: %d", total)
	}
	if entries[0].ID != "id-1000" {
		t.Errorf("Expected newest entry first, got: %s", entries[0].ID)
	}

	// The oldest entry was dropped.
	found, err := repo.IsDownloaded(testEntry(0, "article").SourceURL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if found {
		t.Error("Expected the oldest entry to be dropped")
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 5; i++ {
		if err := repo.Record(testEntry(i, "article")); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	img := testEntry(100, "image")
	img.Title = "special picture"
	if err := repo.Record(img); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	entries, total, _, err := repo.List(1, 10, HistoryFilter{Type: "image"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if total != 1 || len(entries) != 1 || entries[0].ID != "id-100" {
		t.Errorf("Expected only the image entry, got total=%d entries=%v", total, entries)
	}

	entries, total, _, err = repo.List(1, 10, HistoryFilter{Search: "SPECIAL"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Errorf("Expected case-insensitive title search to match, got total=%d", total)
	}

	entries, total, _, err = repo.List(2, 2, HistoryFilter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if total != 6 || len(entries) != 2 {
		t.Errorf("Expected page 2 of size 2 out of 6, got total=%d len=%d", total, len(entries))
	}
}

func TestDeleteAndClear(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		if err := repo.Record(testEntry(i, "image")); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	if err := repo.Delete("id-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	_, total, _, err := repo.List(1, 10, HistoryFilter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 entries after delete, got: %d", total)
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	entries, total, stats, err := repo.List(1, 10, HistoryFilter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if total != 0 || len(entries) != 0 {
		t.Errorf("Expected empty ledger after clear, got total=%d", total)
	}
	if stats != (HistoryStats{}) {
		t.Errorf("Expected zeroed stats after clear, got: %+v", stats)
	}
}
