package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// maxEntries caps the ledger; the oldest entries beyond it are dropped
// on every write.
const maxEntries = 1000

var _ HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo implements the download ledger over sqlite. Deduplication
// is enforced by the orchestrator's pre-download check, not here:
// Record never refuses a duplicate source URL.
type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// IsDownloaded reports whether an entry with exactly this source URL
// exists. No normalization is applied.
func (r *HistoryRepo) IsDownloaded(url string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM history_items WHERE source_url = ? LIMIT 1`, url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return true, nil
}

// Record prepends the entry, bumps the matching category counter and
// trims the ledger to the most recent entries, all in one transaction.
func (r *HistoryRepo) Record(entry HistoryEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO history_items (id, type, source_url, title, author, file_path, source, downloaded_at, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Type, entry.SourceURL, entry.Title, entry.Author,
		entry.FilePath, entry.Source, entry.DownloadedAt, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	counter := "articles"
	if entry.Type == "image" {
		counter = "images"
	}
	_, err = tx.Exec(fmt.Sprintf(`UPDATE history_stats SET total = total + 1, %s = %s + 1 WHERE id = 1`, counter, counter))
	if err != nil {
		return fmt.Errorf("failed to update history stats: %w", err)
	}

	_, err = tx.Exec(`
		DELETE FROM history_items WHERE seq NOT IN (
			SELECT seq FROM history_items ORDER BY seq DESC LIMIT ?
		)`, maxEntries)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history entry: %w", err)
	}
	return nil
}

// List returns one page of entries, newest first, plus the total match
// count and the aggregate stats.
func (r *HistoryRepo) List(page, pageSize int, filter HistoryFilter) ([]HistoryEntry, int, HistoryStats, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	where, args := buildHistoryWhere(filter)

	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM history_items`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, HistoryStats{}, fmt.Errorf("failed to count history: %w", err)
	}

	query := `
		SELECT id, type, source_url, title, author, file_path, source, downloaded_at, timestamp
		FROM history_items` + where + `
		ORDER BY seq DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return nil, 0, HistoryStats{}, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, pageSize)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.SourceURL, &e.Title, &e.Author,
			&e.FilePath, &e.Source, &e.DownloadedAt, &e.Timestamp); err != nil {
			return nil, 0, HistoryStats{}, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, HistoryStats{}, fmt.Errorf("failed to iterate history: %w", err)
	}

	stats, err := r.Stats()
	if err != nil {
		return nil, 0, HistoryStats{}, err
	}

	return entries, total, stats, nil
}

func buildHistoryWhere(filter HistoryFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Search != "" {
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)")
		needle := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, needle, needle)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *HistoryRepo) Stats() (HistoryStats, error) {
	var s HistoryStats
	err := r.db.QueryRow(`SELECT total, images, articles FROM history_stats WHERE id = 1`).
		Scan(&s.Total, &s.Images, &s.Articles)
	if err != nil {
		return HistoryStats{}, fmt.Errorf("failed to read history stats: %w", err)
	}
	return s, nil
}

func (r *HistoryRepo) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM history_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

// Clear resets the ledger to an empty sequence and zeroed counters.
func (r *HistoryRepo) Clear() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history_items`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if _, err := tx.Exec(`UPDATE history_stats SET total = 0, images = 0, articles = 0 WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to reset history stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}
