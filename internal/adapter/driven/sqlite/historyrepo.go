package sqlite

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agpm-go/agpm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*HistoryRepo)(nil)

// HistoryRepo implements the driven.HistoryStore port against the
// pull_requests table: writes go through DB.Writer, reads through
// DB.Reader, every row scanned by a single helper.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo wraps an already-migrated DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// record mirrors one pull_requests row.
type record struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Merged bool   `json:"merged"`
}

// Insert appends a new observation. The store is append-only except that
// merged may later transition false to true via UpdateMerged; inserting a
// number that already exists updates its title and merged flag in place.
func (r *HistoryRepo) Insert(ctx context.Context, number int, title string, merged bool) error {
	_, err := r.db.Writer.ExecContext(ctx, `
		INSERT INTO pull_requests (number, title, merged)
		VALUES (?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET title = excluded.title, merged = excluded.merged
	`, number, title, merged)
	if err != nil {
		return fmt.Errorf("inserting pull request %d: %w", number, err)
	}
	return nil
}

// UpdateMerged transitions a pull request's merged flag from false to true.
// A no-op (not an error) when number is not present.
func (r *HistoryRepo) UpdateMerged(ctx context.Context, number int) error {
	_, err := r.db.Writer.ExecContext(ctx, `
		UPDATE pull_requests SET merged = 1 WHERE number = ?
	`, number)
	if err != nil {
		return fmt.Errorf("updating merged flag for pull request %d: %w", number, err)
	}
	return nil
}

// ExportCSV writes every row to path as CSV with a header row, escaping
// fields containing commas, quotes, or newlines by wrapping in quotes and
// doubling embedded quotes (the Go encoding/csv writer already implements
// this escaping).
func (r *HistoryRepo) ExportCSV(ctx context.Context, path string) error {
	records, err := r.all(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv export %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"number", "title", "merged"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		merged := "false"
		if rec.Merged {
			merged = "true"
		}
		if err := w.Write([]string{fmt.Sprintf("%d", rec.Number), rec.Title, merged}); err != nil {
			return fmt.Errorf("writing csv row for pull request %d: %w", rec.Number, err)
		}
	}
	w.Flush()
	return w.Error()
}

// ExportJSON writes every row to path as a JSON array of
// {number,title,merged} objects with two-space indentation.
func (r *HistoryRepo) ExportJSON(ctx context.Context, path string) error {
	records, err := r.all(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling json export: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing json export %s: %w", path, err)
	}
	return nil
}

func (r *HistoryRepo) all(ctx context.Context) ([]record, error) {
	rows, err := r.db.Reader.QueryContext(ctx, `
		SELECT number, title, merged FROM pull_requests ORDER BY number
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pull requests: %w", err)
	}
	defer rows.Close()

	var records []record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pull requests: %w", err)
	}

	return records, nil
}

// scanRecord scans one row. A scanner narrows *sql.Rows to the Scan method
// so the same helper can be reused against a single-row query if one is
// added later.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (record, error) {
	var rec record
	var mergedInt int
	if err := s.Scan(&rec.Number, &rec.Title, &mergedInt); err != nil {
		return record{}, fmt.Errorf("scanning pull request row: %w", err)
	}
	rec.Merged = mergedInt != 0
	return rec, nil
}
