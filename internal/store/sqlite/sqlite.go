// Package sqlite implements the ledger store on an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jizhang/internal/core"
	"jizhang/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.Ledger = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and applies the
// embedded migrations. ":memory:" is accepted for tests.
func New(dbPath string) (*Store, error) {
	if !strings.Contains(dbPath, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite has a single writer; one pooled connection also keeps an
	// in-memory database visible across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, userID string, amount core.Money, reason string) (int64, error) {
	rec := core.Record{UserID: userID, Amount: amount, Reason: reason}
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, reason, created_at) VALUES (?, ?, ?, ?)`,
		userID, amount.Cents, reason, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"record_id", id,
		"user_id", userID,
		"amount_cents", amount.Cents)

	return id, nil
}

func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, reason, created_at
		 FROM expenses
		 WHERE user_id = ? AND deleted_at IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var (
			rec       core.Record
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount.Cents, &rec.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64, userID string) error {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM expenses WHERE id = ? AND deleted_at IS NULL`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("look up record %d: %w", id, err)
	}
	if owner != userID {
		return core.ErrNotOwner
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC().Unix(), id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Expense deleted", "record_id", id, "user_id", userID)
	return nil
}

func (s *Store) DeleteBulk(ctx context.Context, ids []int64, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk delete: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT user_id FROM expenses WHERE id IN (`+placeholders+`) AND deleted_at IS NULL`, args...)
	if err != nil {
		return 0, fmt.Errorf("look up bulk records: %w", err)
	}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan owner: %w", err)
		}
		if owner != userID {
			rows.Close()
			return 0, core.ErrNotOwner
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate owners: %w", err)
	}
	rows.Close()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ? WHERE id IN (`+placeholders+`) AND user_id = ? AND deleted_at IS NULL`,
		append(append([]any{time.Now().UTC().Unix()}, args...), userID)...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count bulk delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk delete: %w", err)
	}

	slog.InfoContext(ctx, "Bulk delete completed", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

func (s *Store) ClearAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = ? WHERE user_id = ? AND deleted_at IS NULL`,
		time.Now().UTC().Unix(), userID)
	if err != nil {
		return 0, fmt.Errorf("clear user records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared records: %w", err)
	}

	slog.InfoContext(ctx, "User ledger cleared", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

func (s *Store) MonthlyTotal(ctx context.Context, userID string, year int, month time.Month) (core.Money, int64, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0) // December rolls into January of year+1

	var (
		sum   int64
		count int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
		 FROM expenses
		 WHERE user_id = ? AND deleted_at IS NULL AND created_at >= ? AND created_at < ?`,
		userID, start.Unix(), end.Unix()).Scan(&sum, &count)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("monthly total: %w", err)
	}
	return core.Money{Cents: sum}, count, nil
}

func (s *Store) AllTimeStats(ctx context.Context, userID string) (core.AllTimeStats, error) {
	var (
		stats       core.AllTimeStats
		first, last sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*), MIN(created_at), MAX(created_at)
		 FROM expenses
		 WHERE user_id = ? AND deleted_at IS NULL`,
		userID).Scan(&stats.Total.Cents, &stats.Count, &first, &last)
	if err != nil {
		return core.AllTimeStats{}, fmt.Errorf("all-time totals: %w", err)
	}
	if first.Valid {
		stats.First = time.Unix(first.Int64, 0).UTC()
	}
	if last.Valid {
		stats.Last = time.Unix(last.Int64, 0).UTC()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', created_at, 'unixepoch'), SUM(amount_cents), COUNT(*)
		 FROM expenses
		 WHERE user_id = ? AND deleted_at IS NULL
		 GROUP BY strftime('%Y-%m', created_at, 'unixepoch')
		 ORDER BY strftime('%Y-%m', created_at, 'unixepoch') DESC
		 LIMIT 12`, userID)
	if err != nil {
		return core.AllTimeStats{}, fmt.Errorf("monthly breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key    string
			bucket core.MonthBucket
		)
		if err := rows.Scan(&key, &bucket.Total.Cents, &bucket.Count); err != nil {
			return core.AllTimeStats{}, fmt.Errorf("scan month bucket: %w", err)
		}
		ym, err := time.Parse("2006-01", key)
		if err != nil {
			return core.AllTimeStats{}, fmt.Errorf("parse month key %q: %w", key, err)
		}
		bucket.Year, bucket.Month = ym.Year(), ym.Month()
		stats.Monthly = append(stats.Monthly, bucket)
	}
	if err := rows.Err(); err != nil {
		return core.AllTimeStats{}, fmt.Errorf("iterate month buckets: %w", err)
	}
	return stats, nil
}

func (s *Store) WindowStats(ctx context.Context, userID string, since time.Time) (core.WindowStats, error) {
	var (
		stats       core.WindowStats
		first, last sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*), MIN(created_at), MAX(created_at)
		 FROM expenses
		 WHERE user_id = ? AND deleted_at IS NULL AND created_at >= ?`,
		userID, since.UTC().Unix()).Scan(&stats.Total.Cents, &stats.Count, &first, &last)
	if err != nil {
		return core.WindowStats{}, fmt.Errorf("window stats: %w", err)
	}
	if first.Valid {
		stats.First = time.Unix(first.Int64, 0).UTC()
	}
	if last.Valid {
		stats.Last = time.Unix(last.Int64, 0).UTC()
	}
	stats.Since = since.UTC()
	return stats, nil
}

func (s *Store) EarliestRecordTime(ctx context.Context, userID string) (time.Time, bool, error) {
	var earliest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(created_at) FROM expenses WHERE user_id = ? AND deleted_at IS NULL`,
		userID).Scan(&earliest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("earliest record: %w", err)
	}
	if !earliest.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(earliest.Int64, 0).UTC(), true, nil
}

func (s *Store) ResetWatermark(ctx context.Context, userID string) (time.Time, bool, error) {
	var wm int64
	err := s.db.QueryRowContext(ctx,
		`SELECT reset_watermark FROM user_settings WHERE user_id = ?`, userID).Scan(&wm)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read watermark: %w", err)
	}
	return time.Unix(wm, 0).UTC(), true, nil
}

func (s *Store) SetResetWatermark(ctx context.Context, userID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, reset_watermark, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET reset_watermark = excluded.reset_watermark`,
		userID, ts.UTC().Unix(), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}
